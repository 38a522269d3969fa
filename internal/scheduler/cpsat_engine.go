package scheduler

import (
	"context"

	"github.com/noah-isme/league-scheduler-api/pkg/cpsat"
)

// CPSATEngine runs searches on the in-process cpsat solver.
type CPSATEngine struct {
	params cpsat.Parameters
}

// NewCPSATEngine creates an engine. A zero MaxTime leaves the deadline to the caller's context.
func NewCPSATEngine(params cpsat.Parameters) *CPSATEngine {
	return &CPSATEngine{params: params}
}

// NewModel implements SearchEngine.
func (e *CPSATEngine) NewModel() Model {
	return &cpsatModel{builder: cpsat.NewCpModelBuilder()}
}

// EnumerateAll implements SearchEngine.
func (e *CPSATEngine) EnumerateAll(ctx context.Context, model Model, onSolution func(Assignment) bool) (SearchStatus, error) {
	m, ok := model.(*cpsatModel)
	if !ok {
		return SearchStatus{}, ErrForeignModel
	}
	resp, err := cpsat.NewSolver(e.params).SearchAllSolutions(ctx, m.builder, func(sol cpsat.Solution) bool {
		if onSolution == nil {
			return true
		}
		return onSolution(cpsatAssignment{model: m, sol: sol})
	})
	if err != nil {
		return SearchStatus{Name: resp.Status.String()}, err
	}
	return toSearchStatus(resp), nil
}

// SolveOne implements SearchEngine.
func (e *CPSATEngine) SolveOne(ctx context.Context, model Model) (SearchStatus, Assignment, error) {
	m, ok := model.(*cpsatModel)
	if !ok {
		return SearchStatus{}, nil, ErrForeignModel
	}
	resp, err := cpsat.NewSolver(e.params).Solve(ctx, m.builder)
	if err != nil {
		return SearchStatus{Name: resp.Status.String()}, nil, err
	}
	status := toSearchStatus(resp)
	if resp.Solution == nil {
		return status, nil, nil
	}
	return status, valuesAssignment{model: m, values: resp.Solution}, nil
}

func toSearchStatus(resp cpsat.Response) SearchStatus {
	status := SearchStatus{
		Name:      resp.Status.String(),
		Solutions: resp.NumSolutions,
		Branches:  resp.NumBranches,
		Conflicts: resp.NumConflicts,
		WallTime:  resp.WallTime,
	}
	switch resp.StopReason {
	case cpsat.StopCallback:
		status.State = SearchStopped
	case cpsat.StopTimeLimit:
		status.State = SearchTimedOut
	case cpsat.StopCancelled:
		status.State = SearchCancelled
	default:
		status.State = SearchComplete
	}
	return status
}

type cpsatModel struct {
	builder *cpsat.Builder
	vars    []cpsat.BoolVar
}

func (m *cpsatModel) NewBoolVar(string) Var {
	m.vars = append(m.vars, m.builder.NewBoolVar())
	return Var(len(m.vars) - 1)
}

func (m *cpsatModel) literals(vars []Var) []cpsat.BoolVar {
	lits := make([]cpsat.BoolVar, len(vars))
	for i, v := range vars {
		lits[i] = m.literal(v)
	}
	return lits
}

// literal maps unknown handles to an out-of-range literal so the builder records the error.
func (m *cpsatModel) literal(v Var) cpsat.BoolVar {
	if int(v) < 0 || int(v) >= len(m.vars) {
		return m.builder.VarAt(-1)
	}
	return m.vars[v]
}

func (m *cpsatModel) AddLinearEquality(vars []Var, target int) Constraint {
	return cpsatConstraint{model: m, ct: m.builder.AddEquality(m.literals(vars), target)}
}

func (m *cpsatModel) AddLinearRange(vars []Var, lo, hi int) Constraint {
	return cpsatConstraint{model: m, ct: m.builder.AddLinearConstraint(m.literals(vars), lo, hi)}
}

type cpsatConstraint struct {
	model *cpsatModel
	ct    cpsat.Constraint
}

func (c cpsatConstraint) OnlyEnforceIf(cond Var) Constraint {
	c.ct.OnlyEnforceIf(c.model.literal(cond))
	return c
}

func (c cpsatConstraint) OnlyEnforceIfNot(cond Var) Constraint {
	c.ct.OnlyEnforceIf(c.model.literal(cond).Not())
	return c
}

type cpsatAssignment struct {
	model *cpsatModel
	sol   cpsat.Solution
}

func (a cpsatAssignment) Value(v Var) bool {
	if int(v) < 0 || int(v) >= len(a.model.vars) {
		return false
	}
	return a.sol.Value(a.model.vars[v])
}

type valuesAssignment struct {
	model  *cpsatModel
	values []bool
}

func (a valuesAssignment) Value(v Var) bool {
	if int(v) < 0 || int(v) >= len(a.model.vars) {
		return false
	}
	lit := a.model.vars[v]
	return a.values[lit.Index()] != lit.Negated()
}
