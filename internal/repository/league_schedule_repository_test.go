package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/league-scheduler-api/internal/models"
)

func newLeagueScheduleRepoMock(t *testing.T) (*LeagueScheduleRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLeagueScheduleRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestLeagueScheduleRepositoryCreate(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO league_schedules")).
		WithArgs(sqlmock.AnyArg(), "Spring", "prop-1", 2, 14, types.JSONText(`["ATL","BOS"]`), types.JSONText(`[]`), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.LeagueSchedule{
		Name:          "Spring",
		ProposalID:    "prop-1",
		SolutionIndex: 2,
		Weeks:         14,
		Teams:         types.JSONText(`["ATL","BOS"]`),
	}
	require.NoError(t, repo.Create(context.Background(), nil, record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryCreateRequiresName(t *testing.T) {
	repo, _ := newLeagueScheduleRepoMock(t)
	assert.Error(t, repo.Create(context.Background(), nil, &models.LeagueSchedule{ProposalID: "prop-1"}))
	assert.Error(t, repo.Create(context.Background(), nil, nil))
}

func TestLeagueScheduleRepositoryInsertGamesInTx(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO league_schedule_games")).
		WithArgs(sqlmock.AnyArg(), "sch-1", 1, "ATL", "BOS").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO league_schedule_games")).
		WithArgs(sqlmock.AnyArg(), "sch-1", 1, "CHI", "DAL").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	games := []models.LeagueScheduleGame{
		{ScheduleID: "sch-1", Week: 1, Visitor: "ATL", Home: "BOS"},
		{ScheduleID: "sch-1", Week: 1, Visitor: "CHI", Home: "DAL"},
	}
	require.NoError(t, repo.InsertGames(context.Background(), tx, games))
	require.NoError(t, tx.Commit())
	assert.NotEmpty(t, games[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryInsertGamesEmpty(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)
	require.NoError(t, repo.InsertGames(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryList(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "proposal_id", "solution_idx", "weeks", "teams", "divisions", "created_by", "created_at", "updated_at"}).
		AddRow("sch-1", "Spring", "prop-1", 0, 14, types.JSONText(`["ATL"]`), types.JSONText(`[]`), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM league_schedules WHERE 1=1 AND LOWER(name) LIKE $1 ORDER BY created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("%spring%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM league_schedules WHERE 1=1 AND LOWER(name) LIKE $1")).
		WithArgs("%spring%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.LeagueScheduleFilter{Search: "Spring", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Spring", list[0].Name)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryListDefaultsPaging(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM league_schedules WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.LeagueScheduleFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM league_schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryListGames(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "week", "visitor", "home"}).
		AddRow("g-1", "sch-1", 1, "ATL", "BOS").
		AddRow("g-2", "sch-1", 2, "BOS", "ATL")
	mock.ExpectQuery(regexp.QuoteMeta("FROM league_schedule_games WHERE schedule_id = $1 ORDER BY week ASC, visitor ASC")).
		WithArgs("sch-1").
		WillReturnRows(rows)

	games, err := repo.ListGames(context.Background(), "sch-1")
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "BOS", games[1].Visitor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueScheduleRepositoryDeleteNotFound(t *testing.T) {
	repo, mock := newLeagueScheduleRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM league_schedules WHERE id = $1")).
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "sch-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
