package cpsat

import (
	"context"
	"errors"
	"time"
)

// Status is the outcome of a search.
type Status int

const (
	// Unknown means the search was interrupted before any solution was found.
	Unknown Status = iota
	// ModelInvalid means the model could not be searched.
	ModelInvalid
	// Feasible means the search was interrupted after at least one solution.
	Feasible
	// Infeasible means the whole space was explored and no solution exists.
	Infeasible
	// Optimal means the whole space was explored and every solution was reported.
	Optimal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case ModelInvalid:
		return "MODEL_INVALID"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Optimal:
		return "OPTIMAL"
	default:
		return "UNKNOWN"
	}
}

// StopReason explains why a search ended before exhausting the space.
type StopReason int

const (
	StopNone StopReason = iota
	StopCallback
	StopTimeLimit
	StopCancelled
)

// String returns a short label for the reason.
func (r StopReason) String() string {
	switch r {
	case StopCallback:
		return "callback"
	case StopTimeLimit:
		return "time_limit"
	case StopCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Parameters tune a Solver.
type Parameters struct {
	// MaxTime bounds the wall-clock duration of one search. Zero means no limit
	// beyond the caller's context.
	MaxTime time.Duration
	// CheckInterval is the number of branches between two context checks.
	CheckInterval int
}

// DefaultParameters are used when a zero Parameters value is given.
var DefaultParameters = Parameters{
	MaxTime:       120 * time.Second,
	CheckInterval: 256,
}

// Response summarises a finished search.
type Response struct {
	Status       Status
	StopReason   StopReason
	NumSolutions int
	NumBranches  int64
	NumConflicts int64
	WallTime     time.Duration
	// Solution holds the first solution found by Solve.
	Solution []bool
}

// Solution exposes the current assignment to a SolutionCallback. It is only valid for
// the duration of the callback.
type Solution interface {
	Value(v BoolVar) bool
	Values() []bool
}

// SolutionCallback receives each solution. Returning false stops the search.
type SolutionCallback func(Solution) bool

// Solver searches models.
type Solver struct {
	params Parameters
}

// NewSolver creates a solver with the given parameters.
func NewSolver(params Parameters) *Solver {
	if params.CheckInterval <= 0 {
		params.CheckInterval = DefaultParameters.CheckInterval
	}
	return &Solver{params: params}
}

// Solve returns the first solution found, if any.
func (s *Solver) Solve(ctx context.Context, model *Builder) (Response, error) {
	var first []bool
	resp, err := s.SearchAllSolutions(ctx, model, func(sol Solution) bool {
		first = sol.Values()
		return false
	})
	resp.Solution = first
	return resp, err
}

// SearchAllSolutions enumerates every solution of the model, invoking cb for each one
// in discovery order. Callbacks are delivered sequentially on the calling goroutine.
func (s *Solver) SearchAllSolutions(ctx context.Context, model *Builder, cb SolutionCallback) (Response, error) {
	start := time.Now()
	if model == nil {
		return Response{Status: ModelInvalid}, errors.New("cpsat: nil model")
	}
	if err := model.Err(); err != nil {
		return Response{Status: ModelInvalid}, err
	}
	if s.params.MaxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.MaxTime)
		defer cancel()
	}

	st := newSearch(ctx, model, cb, s.params.CheckInterval)
	st.run()

	resp := Response{
		StopReason:   st.stop,
		NumSolutions: st.solutions,
		NumBranches:  st.branches,
		NumConflicts: st.conflicts,
		WallTime:     time.Since(start),
	}
	switch {
	case st.stop == StopNone && st.solutions == 0:
		resp.Status = Infeasible
	case st.stop == StopNone:
		resp.Status = Optimal
	case st.solutions > 0:
		resp.Status = Feasible
	default:
		resp.Status = Unknown
	}
	return resp, nil
}
