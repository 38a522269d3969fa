package scheduler

import (
	"errors"

	"go.uber.org/zap"
)

// DefaultSolutionCap is the number of accepted schedules after which enumeration stops.
const DefaultSolutionCap = 50

// Outcome is the final state of a generation.
type Outcome string

const (
	OutcomeSearching  Outcome = "SEARCHING"
	OutcomeCapReached Outcome = "CAP_REACHED"
	OutcomeExhausted  Outcome = "EXHAUSTED"
	OutcomeTimedOut   Outcome = "TIMED_OUT"
	OutcomeInfeasible Outcome = "INFEASIBLE"
)

// Stats are diagnostic counters of one generation.
type Stats struct {
	Candidates int   `json:"candidates"`
	Accepted   int   `json:"accepted"`
	Rejected   int   `json:"rejected"`
	Branches   int64 `json:"branches"`
	Conflicts  int64 `json:"conflicts"`
	DurationMS int64 `json:"durationMs"`
}

// Result is the report of a finished generation.
type Result struct {
	Outcome      Outcome
	EngineStatus string
	Schedules    []Schedule
	Solutions    []ProjectedSchedule
	Stats        Stats
}

// Accumulator receives raw candidates from an engine, keeps those passing rematch-spacing
// validation and asks the engine to stop once cap schedules were accepted. It is owned by a
// single search and is not safe for concurrent use.
type Accumulator struct {
	compiled *CompiledModel
	cap      int
	logger   *zap.Logger

	schedules []Schedule
	solutions []ProjectedSchedule
	seen      int
	rejected  int
	stopped   bool
	outcome   Outcome
}

// NewAccumulator creates an accumulator for the compiled model. A cap <= 0 selects
// DefaultSolutionCap.
func NewAccumulator(compiled *CompiledModel, cap int, logger *zap.Logger) *Accumulator {
	if cap <= 0 {
		cap = DefaultSolutionCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{
		compiled: compiled,
		cap:      cap,
		logger:   logger,
		outcome:  OutcomeSearching,
	}
}

// OnSolution is the enumeration callback. It returns false once the cap is reached.
func (a *Accumulator) OnSolution(asg Assignment) bool {
	if a.stopped {
		return false
	}
	a.seen++
	sched := ScheduleFromAssignment(a.compiled, asg)
	if err := ValidateRematchSpacing(sched, MinRematchGap); err != nil {
		a.rejected++
		var spacing *RematchSpacingError
		if errors.As(err, &spacing) && a.rejected == 1 {
			a.logger.Debug("candidate rejected",
				zap.String("team1", a.compiled.Season.Team(spacing.Team1)),
				zap.String("team2", a.compiled.Season.Team(spacing.Team2)),
				zap.Int("week", spacing.Weeks[0]+1),
				zap.Int("rematchWeek", spacing.Weeks[1]+1),
			)
		}
		return true
	}
	a.schedules = append(a.schedules, sched)
	a.solutions = append(a.solutions, Project(a.compiled.Season, sched))
	if len(a.schedules) >= a.cap {
		a.stopped = true
		return false
	}
	return true
}

// Accepted returns the number of schedules accepted so far.
func (a *Accumulator) Accepted() int { return len(a.schedules) }

// Outcome returns the current state; it stays SEARCHING until Finish is called.
func (a *Accumulator) Outcome() Outcome { return a.outcome }

// Finish settles the outcome from the engine status and returns the result.
func (a *Accumulator) Finish(status SearchStatus) Result {
	switch {
	case a.stopped:
		a.outcome = OutcomeCapReached
	case status.State == SearchComplete && a.seen == 0:
		a.outcome = OutcomeInfeasible
	case status.State == SearchComplete:
		a.outcome = OutcomeExhausted
	default:
		a.outcome = OutcomeTimedOut
	}
	return Result{
		Outcome:      a.outcome,
		EngineStatus: status.Name,
		Schedules:    a.schedules,
		Solutions:    a.solutions,
		Stats: Stats{
			Candidates: a.seen,
			Accepted:   len(a.schedules),
			Rejected:   a.rejected,
			Branches:   status.Branches,
			Conflicts:  status.Conflicts,
			DurationMS: status.WallTime.Milliseconds(),
		},
	}
}
