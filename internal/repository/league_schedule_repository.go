package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/league-scheduler-api/internal/models"
)

// LeagueScheduleRepository persists saved league schedules and their games.
type LeagueScheduleRepository struct {
	db *sqlx.DB
}

// NewLeagueScheduleRepository constructs repository.
func NewLeagueScheduleRepository(db *sqlx.DB) *LeagueScheduleRepository {
	return &LeagueScheduleRepository{db: db}
}

func (r *LeagueScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BeginTxx starts a transaction for saving a schedule together with its games.
func (r *LeagueScheduleRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// Create inserts the schedule header.
func (r *LeagueScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.LeagueSchedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.Name == "" || schedule.ProposalID == "" {
		return fmt.Errorf("name and proposal_id are required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if len(schedule.Teams) == 0 {
		schedule.Teams = types.JSONText(`[]`)
	}
	if len(schedule.Divisions) == 0 {
		schedule.Divisions = types.JSONText(`[]`)
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `
INSERT INTO league_schedules (id, name, proposal_id, solution_idx, weeks, teams, divisions, created_by, created_at, updated_at)
VALUES (:id, :name, :proposal_id, :solution_idx, :weeks, :teams, :divisions, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("insert league schedule: %w", err)
	}
	return nil
}

// InsertGames stores the games of a schedule.
func (r *LeagueScheduleRepository) InsertGames(ctx context.Context, exec sqlx.ExtContext, games []models.LeagueScheduleGame) error {
	if len(games) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO league_schedule_games (id, schedule_id, week, visitor, home)
VALUES (:id, :schedule_id, :week, :visitor, :home)`

	for i := range games {
		game := &games[i]
		if game.ID == "" {
			game.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, game); err != nil {
			return fmt.Errorf("insert league schedule game: %w", err)
		}
	}
	return nil
}

// List returns saved schedules, newest first, with the total count.
func (r *LeagueScheduleRepository) List(ctx context.Context, filter models.LeagueScheduleFilter) ([]models.LeagueSchedule, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, proposal_id, solution_idx, weeks, teams, divisions, created_by, created_at, updated_at
FROM league_schedules WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, size, offset)
	var schedules []models.LeagueSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list league schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM league_schedules WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count league schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID loads a schedule header by its identifier.
func (r *LeagueScheduleRepository) FindByID(ctx context.Context, id string) (*models.LeagueSchedule, error) {
	const query = `SELECT id, name, proposal_id, solution_idx, weeks, teams, divisions, created_by, created_at, updated_at FROM league_schedules WHERE id = $1`
	var schedule models.LeagueSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListGames returns the games of a schedule ordered by week then visitor.
func (r *LeagueScheduleRepository) ListGames(ctx context.Context, scheduleID string) ([]models.LeagueScheduleGame, error) {
	const query = `SELECT id, schedule_id, week, visitor, home
FROM league_schedule_games WHERE schedule_id = $1 ORDER BY week ASC, visitor ASC`
	var games []models.LeagueScheduleGame
	if err := r.db.SelectContext(ctx, &games, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list league schedule games: %w", err)
	}
	return games, nil
}

// Delete removes a schedule; its games cascade.
func (r *LeagueScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM league_schedules WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete league schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("league schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
