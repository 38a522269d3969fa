package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/internal/models"
	"github.com/noah-isme/league-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

type leagueGenerator interface {
	Generate(ctx context.Context, season *scheduler.Season, limit int) (*scheduler.Result, error)
	Preview(ctx context.Context, season *scheduler.Season) (*scheduler.Preview, error)
}

type leagueScheduleRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.LeagueSchedule) error
	InsertGames(ctx context.Context, exec sqlx.ExtContext, games []models.LeagueScheduleGame) error
	List(ctx context.Context, filter models.LeagueScheduleFilter) ([]models.LeagueSchedule, int, error)
	FindByID(ctx context.Context, id string) (*models.LeagueSchedule, error)
	ListGames(ctx context.Context, scheduleID string) ([]models.LeagueScheduleGame, error)
	Delete(ctx context.Context, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	ProposalTTL        time.Duration
	MaxTeams           int
	MaxWeeks           int
	PersistenceEnabled bool
}

// ScheduleGeneratorService turns league requests into schedule proposals and persists the chosen ones.
type ScheduleGeneratorService struct {
	generator leagueGenerator
	schedules leagueScheduleRepository
	tx        txProvider
	proposals proposalStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
}

// NewScheduleGeneratorService wires scheduler dependencies. Proposals live in Redis when the cache
// is enabled and in process memory otherwise.
func NewScheduleGeneratorService(
	generator leagueGenerator,
	schedules leagueScheduleRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	var store proposalStore = newMemoryProposalStore(cfg.ProposalTTL)
	if cache.Enabled() {
		store = newCacheProposalStore(cache, cfg.ProposalTTL)
	}
	return &ScheduleGeneratorService{
		generator: generator,
		schedules: schedules,
		tx:        tx,
		proposals: store,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate enumerates schedules for the league and keeps the result as a proposal.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	season, err := s.buildSeason(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.generator.Generate(ctx, season, req.MaxSolutions)
	if err != nil {
		return nil, generationError(err)
	}
	s.metrics.ObserveGeneration(string(result.Outcome), result.Stats.Accepted, result.Stats.Rejected, time.Since(start))

	resp := &dto.GenerateScheduleResponse{
		Status:        result.Outcome,
		EngineStatus:  result.EngineStatus,
		SolutionCount: len(result.Solutions),
		Solutions:     result.Solutions,
		Teams:         season.Teams(),
		Weeks:         season.NumWeeks(),
		Stats:         result.Stats,
		GeneratedAt:   time.Now().UTC(),
	}
	if resp.Solutions == nil {
		resp.Solutions = []scheduler.ProjectedSchedule{}
	}
	if len(result.Solutions) == 0 {
		return resp, nil
	}

	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		Teams:       resp.Teams,
		Divisions:   divisionsOf(season),
		Weeks:       resp.Weeks,
		Status:      result.Outcome,
		Solutions:   result.Solutions,
		RequestedAt: resp.GeneratedAt,
	}
	if err := s.proposals.Save(ctx, proposal); err != nil {
		s.logger.Warn("failed to store schedule proposal", zap.String("proposalId", proposal.ProposalID), zap.Error(err))
		return resp, nil
	}
	resp.ProposalID = proposal.ProposalID
	return resp, nil
}

// Validate checks a generation request without searching.
func (s *ScheduleGeneratorService) Validate(req dto.GenerateScheduleRequest) error {
	_, err := s.buildSeason(req)
	return err
}

// GenerateLegacy answers the original /generate contract: engine status, count and solutions.
func (s *ScheduleGeneratorService) GenerateLegacy(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.LegacyGenerateResponse, error) {
	resp, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return &dto.LegacyGenerateResponse{
		Status:        resp.EngineStatus,
		SolutionCount: resp.SolutionCount,
		Solutions:     resp.Solutions,
	}, nil
}

// Preview solves for a single candidate and reports whether it passes rematch validation.
func (s *ScheduleGeneratorService) Preview(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.PreviewScheduleResponse, error) {
	season, err := s.buildSeason(req)
	if err != nil {
		return nil, err
	}
	preview, err := s.generator.Preview(ctx, season)
	if err != nil {
		return nil, generationError(err)
	}
	return &dto.PreviewScheduleResponse{
		EngineStatus: preview.EngineStatus,
		Found:        preview.Found,
		Valid:        preview.Valid,
		Violation:    preview.Violation,
		Schedule:     preview.Schedule,
		Report:       preview.Report,
		Stats:        preview.Stats,
	}, nil
}

// Save persists one schedule of a proposal together with its games.
func (s *ScheduleGeneratorService) Save(ctx context.Context, req dto.SaveScheduleRequest) (string, error) {
	if err := s.requirePersistence(); err != nil {
		return "", err
	}
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, ok, err := s.proposals.Get(ctx, req.ProposalID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if req.SolutionIndex >= len(proposal.Solutions) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("solutionIndex must be below %d", len(proposal.Solutions)))
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	teamsJSON, err := json.Marshal(proposal.Teams)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode teams")
	}
	divisions := proposal.Divisions
	if divisions == nil {
		divisions = []dto.DivisionRequest{}
	}
	divisionsJSON, err := json.Marshal(divisions)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode divisions")
	}
	record := &models.LeagueSchedule{
		Name:          strings.TrimSpace(req.Name),
		ProposalID:    proposal.ProposalID,
		SolutionIndex: req.SolutionIndex,
		Weeks:         proposal.Weeks,
		Teams:         types.JSONText(teamsJSON),
		Divisions:     types.JSONText(divisionsJSON),
	}
	if req.CreatedBy != "" {
		createdBy := req.CreatedBy
		record.CreatedBy = &createdBy
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	start := time.Now()
	if err = s.schedules.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create league schedule")
		return "", err
	}
	games := gamesFromProjection(record.ID, proposal.Solutions[req.SolutionIndex], proposal.Weeks)
	if err = s.schedules.InsertGames(ctx, tx, games); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist league schedule games")
		return "", err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return "", err
	}
	s.metrics.ObserveDBQuery("league_schedules.save", time.Since(start))

	if delErr := s.proposals.Delete(ctx, req.ProposalID); delErr != nil {
		s.logger.Warn("failed to drop saved proposal", zap.String("proposalId", req.ProposalID), zap.Error(delErr))
	}
	s.logger.Info("league schedule saved",
		zap.String("scheduleId", record.ID),
		zap.String("proposalId", proposal.ProposalID),
		zap.Int("solutionIndex", req.SolutionIndex),
		zap.Int("games", len(games)),
	)
	return record.ID, nil
}

// List returns saved schedules.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.LeagueScheduleQuery) ([]models.LeagueSchedule, *models.Pagination, error) {
	if err := s.requirePersistence(); err != nil {
		return nil, nil, err
	}
	filter := models.LeagueScheduleFilter{Search: strings.TrimSpace(query.Search), Page: query.Page, PageSize: query.PageSize}
	start := time.Now()
	list, total, err := s.schedules.List(ctx, filter)
	s.metrics.ObserveDBQuery("league_schedules.list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list league schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return list, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a saved schedule with its report.
func (s *ScheduleGeneratorService) Get(ctx context.Context, id string) (*dto.LeagueScheduleDetail, error) {
	if err := s.requirePersistence(); err != nil {
		return nil, err
	}
	record, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "league schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load league schedule")
	}
	games, err := s.schedules.ListGames(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load league schedule games")
	}

	var teams []string
	if err := record.Teams.Unmarshal(&teams); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode teams")
	}
	var divisions []dto.DivisionRequest
	if len(record.Divisions) > 0 {
		if err := record.Divisions.Unmarshal(&divisions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode divisions")
		}
	}

	season, err := scheduler.NewSeason(scheduler.SeasonInput{Teams: teams, Divisions: toDivisions(divisions), Weeks: record.Weeks})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored league schedule is inconsistent")
	}
	sched, err := scheduleFromGames(season, games)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored league schedule is inconsistent")
	}

	return &dto.LeagueScheduleDetail{
		ID:        record.ID,
		Name:      record.Name,
		Weeks:     record.Weeks,
		Teams:     teams,
		Divisions: divisions,
		Schedule:  scheduler.Project(season, sched),
		Report:    scheduler.Analyze(season, sched),
		CreatedAt: record.CreatedAt,
	}, nil
}

// Delete removes a saved schedule.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, id string) error {
	if err := s.requirePersistence(); err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "league schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete league schedule")
	}
	return nil
}

func (s *ScheduleGeneratorService) requirePersistence() error {
	if !s.cfg.PersistenceEnabled || s.schedules == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule persistence is disabled")
	}
	return nil
}

func (s *ScheduleGeneratorService) buildSeason(req dto.GenerateScheduleRequest) (*scheduler.Season, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid schedule generation payload")
	}
	input, err := toSeasonInput(req)
	if err != nil {
		return nil, err
	}

	teamCount := len(input.Teams)
	if teamCount == 0 {
		for _, div := range input.Divisions {
			teamCount += len(div.Teams)
		}
	}
	if s.cfg.MaxTeams > 0 && teamCount > s.cfg.MaxTeams {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d teams are supported, got %d", s.cfg.MaxTeams, teamCount))
	}
	if s.cfg.MaxWeeks > 0 && input.Weeks > s.cfg.MaxWeeks {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d weeks are supported, got %d", s.cfg.MaxWeeks, input.Weeks))
	}
	return scheduler.NewSeason(input)
}

func toSeasonInput(req dto.GenerateScheduleRequest) (scheduler.SeasonInput, error) {
	input := scheduler.SeasonInput{
		Teams:     req.Teams,
		Divisions: toDivisions(req.Divisions),
		Weeks:     req.Weeks,
	}
	if len(req.WestTeams) > 0 || len(req.EastTeams) > 0 {
		if len(req.Divisions) > 0 {
			return input, appErrors.Clone(appErrors.ErrInvalidInput, "use either divisions or west_teams/east_teams, not both")
		}
		input.Divisions = []scheduler.Division{
			{Name: "West", Teams: req.WestTeams},
			{Name: "East", Teams: req.EastTeams},
		}
	}
	for _, fm := range req.FixedMatchups {
		input.FixedMatchups = append(input.FixedMatchups, scheduler.FixedMatchup{
			Week:      fm.Week,
			Team1:     fm.Team1,
			Team2:     fm.Team2,
			Direction: scheduler.Direction(strings.TrimSpace(fm.Direction)),
		})
	}
	return input, nil
}

func toDivisions(items []dto.DivisionRequest) []scheduler.Division {
	if len(items) == 0 {
		return nil
	}
	out := make([]scheduler.Division, len(items))
	for i, item := range items {
		out[i] = scheduler.Division{Name: item.Name, Teams: item.Teams}
	}
	return out
}

func divisionsOf(season *scheduler.Season) []dto.DivisionRequest {
	divs := season.Divisions()
	if len(divs) == 0 {
		return nil
	}
	out := make([]dto.DivisionRequest, len(divs))
	for i, div := range divs {
		out[i] = dto.DivisionRequest{Name: div.Name, Teams: append([]string(nil), div.Teams...)}
	}
	return out
}

func gamesFromProjection(scheduleID string, projected scheduler.ProjectedSchedule, weeks int) []models.LeagueScheduleGame {
	games := make([]models.LeagueScheduleGame, 0, len(projected)*4)
	for week := 1; week <= weeks; week++ {
		for _, m := range projected[week] {
			games = append(games, models.LeagueScheduleGame{
				ScheduleID: scheduleID,
				Week:       week,
				Visitor:    m.Visitor(),
				Home:       m.Home(),
			})
		}
	}
	return games
}

func scheduleFromGames(season *scheduler.Season, games []models.LeagueScheduleGame) (scheduler.Schedule, error) {
	sched := make(scheduler.Schedule, season.NumWeeks())
	for _, g := range games {
		if g.Week < 1 || g.Week > season.NumWeeks() {
			return nil, fmt.Errorf("game %s has week %d outside 1..%d", g.ID, g.Week, season.NumWeeks())
		}
		v, okV := season.TeamIndex(g.Visitor)
		h, okH := season.TeamIndex(g.Home)
		if !okV || !okH {
			return nil, fmt.Errorf("game %s references an unknown team", g.ID)
		}
		sched[g.Week-1] = append(sched[g.Week-1], scheduler.Game{Visitor: v, Home: h})
	}
	return sched, nil
}

func generationError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation cancelled")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate schedules")
}
