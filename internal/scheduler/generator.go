package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultSearchTimeout bounds one enumeration.
const DefaultSearchTimeout = 120 * time.Second

// Options configure a Generator.
type Options struct {
	SolutionCap   int
	SearchTimeout time.Duration
}

// Preview is a single candidate schedule with its diagnostics.
type Preview struct {
	EngineStatus string
	Found        bool
	Valid        bool
	Violation    string
	Schedule     ProjectedSchedule
	Report       *Report
	Stats        Stats
}

// Generator runs the compile, enumerate and accumulate pipeline for one season at a time.
type Generator struct {
	engine  SearchEngine
	cap     int
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator creates a generator backed by engine.
func NewGenerator(engine SearchEngine, opts Options, logger *zap.Logger) *Generator {
	if opts.SolutionCap <= 0 {
		opts.SolutionCap = DefaultSolutionCap
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{engine: engine, cap: opts.SolutionCap, timeout: opts.SearchTimeout, logger: logger}
}

// SolutionCap returns the configured cap.
func (g *Generator) SolutionCap() int { return g.cap }

// Generate enumerates schedules for season until limit schedules are accepted, the space is
// exhausted or the search times out. A limit outside 1..SolutionCap selects SolutionCap.
func (g *Generator) Generate(ctx context.Context, season *Season, limit int) (*Result, error) {
	if limit <= 0 || limit > g.cap {
		limit = g.cap
	}
	model := g.engine.NewModel()
	compiled, err := Compile(season, model)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	acc := NewAccumulator(compiled, limit, g.logger)
	status, err := g.engine.EnumerateAll(searchCtx, model, acc.OnSolution)
	if err != nil {
		return nil, fmt.Errorf("enumerate schedules: %w", err)
	}
	if status.State == SearchCancelled && errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}

	result := acc.Finish(status)
	g.logger.Info("schedule generation finished",
		zap.Int("teams", season.NumTeams()),
		zap.Int("weeks", season.NumWeeks()),
		zap.String("outcome", string(result.Outcome)),
		zap.String("engineStatus", result.EngineStatus),
		zap.Int("candidates", result.Stats.Candidates),
		zap.Int("accepted", result.Stats.Accepted),
		zap.Int("rejected", result.Stats.Rejected),
		zap.Duration("duration", status.WallTime),
	)
	return &result, nil
}

// Preview asks the engine for a single candidate without enumerating.
func (g *Generator) Preview(ctx context.Context, season *Season) (*Preview, error) {
	model := g.engine.NewModel()
	compiled, err := Compile(season, model)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	status, asg, err := g.engine.SolveOne(searchCtx, model)
	if err != nil {
		return nil, fmt.Errorf("solve schedule: %w", err)
	}
	preview := &Preview{
		EngineStatus: status.Name,
		Stats: Stats{
			Branches:   status.Branches,
			Conflicts:  status.Conflicts,
			DurationMS: status.WallTime.Milliseconds(),
		},
	}
	if asg == nil {
		return preview, nil
	}

	sched := ScheduleFromAssignment(compiled, asg)
	report := Analyze(season, sched)
	preview.Found = true
	preview.Schedule = Project(season, sched)
	preview.Report = &report
	preview.Stats.Candidates = 1
	if verr := ValidateRematchSpacing(sched, MinRematchGap); verr != nil {
		preview.Violation = describeViolation(season, verr)
		preview.Stats.Rejected = 1
	} else {
		preview.Valid = true
		preview.Stats.Accepted = 1
	}
	return preview, nil
}

func describeViolation(season *Season, err error) string {
	var spacing *RematchSpacingError
	if !errors.As(err, &spacing) {
		return err.Error()
	}
	return fmt.Sprintf("%s and %s meet in weeks %d and %d, less than %d weeks apart",
		season.Team(spacing.Team1), season.Team(spacing.Team2), spacing.Weeks[0]+1, spacing.Weeks[1]+1, spacing.MinGap)
}
