package scheduler

import (
	"context"
	"errors"
	"time"
)

// ErrForeignModel is returned by an engine asked to search a model it did not create.
var ErrForeignModel = errors.New("scheduler: model was not created by this engine")

// Var is an opaque handle to a boolean decision variable of a Model.
type Var int

// Constraint is a constraint that can be made conditional on a variable.
type Constraint interface {
	// OnlyEnforceIf enforces the constraint only when cond is true.
	OnlyEnforceIf(cond Var) Constraint
	// OnlyEnforceIfNot enforces the constraint only when cond is false.
	OnlyEnforceIfNot(cond Var) Constraint
}

// Model collects boolean variables and linear constraints over them.
type Model interface {
	NewBoolVar(tag string) Var
	AddLinearEquality(vars []Var, target int) Constraint
	AddLinearRange(vars []Var, lo, hi int) Constraint
}

// Assignment exposes the values of a complete satisfying assignment. Assignments handed to
// an enumeration callback are only valid during that call.
type Assignment interface {
	Value(v Var) bool
}

// SearchState tells how a search ended.
type SearchState int

const (
	// SearchComplete means the whole space was explored.
	SearchComplete SearchState = iota
	// SearchStopped means the solution callback asked the engine to stop.
	SearchStopped
	// SearchTimedOut means the deadline of the search context passed.
	SearchTimedOut
	// SearchCancelled means the search context was cancelled.
	SearchCancelled
)

// String returns a short label for the state.
func (s SearchState) String() string {
	switch s {
	case SearchStopped:
		return "stopped"
	case SearchTimedOut:
		return "timed_out"
	case SearchCancelled:
		return "cancelled"
	default:
		return "complete"
	}
}

// SearchStatus summarises a finished search.
type SearchStatus struct {
	State SearchState
	// Name is the engine's own status label, e.g. OPTIMAL or INFEASIBLE.
	Name      string
	Solutions int
	Branches  int64
	Conflicts int64
	WallTime  time.Duration
}

// SearchEngine is the feasibility search backing the scheduler.
type SearchEngine interface {
	// NewModel returns an empty model owned by the engine.
	NewModel() Model
	// EnumerateAll reports every satisfying assignment of model to onSolution, one at a time
	// on the calling goroutine. Returning false from onSolution stops the search.
	EnumerateAll(ctx context.Context, model Model, onSolution func(Assignment) bool) (SearchStatus, error)
	// SolveOne returns a single satisfying assignment, or nil when none was found.
	SolveOne(ctx context.Context, model Model) (SearchStatus, Assignment, error)
}
