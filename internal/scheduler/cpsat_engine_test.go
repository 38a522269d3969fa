package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/league-scheduler-api/pkg/cpsat"
)

func TestCPSATEngineEnforcementLiterals(t *testing.T) {
	engine := NewCPSATEngine(cpsat.Parameters{})
	model := engine.NewModel()
	cond := model.NewBoolVar("cond")
	x := model.NewBoolVar("x")
	y := model.NewBoolVar("y")
	model.AddLinearEquality([]Var{x, y}, 2).OnlyEnforceIf(cond)
	model.AddLinearEquality([]Var{x, y}, 0).OnlyEnforceIfNot(cond)

	var seen [][3]bool
	status, err := engine.EnumerateAll(context.Background(), model, func(a Assignment) bool {
		seen = append(seen, [3]bool{a.Value(cond), a.Value(x), a.Value(y)})
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, SearchComplete, status.State)
	assert.Equal(t, "OPTIMAL", status.Name)
	assert.ElementsMatch(t, [][3]bool{{true, true, true}, {false, false, false}}, seen)
}

func TestCPSATEngineSolveOne(t *testing.T) {
	engine := NewCPSATEngine(cpsat.Parameters{})
	model := engine.NewModel()
	vars := []Var{model.NewBoolVar("a"), model.NewBoolVar("b"), model.NewBoolVar("c")}
	model.AddLinearRange(vars, 2, 2)
	model.AddLinearEquality(vars[:1], 0)

	status, asg, err := engine.SolveOne(context.Background(), model)
	require.NoError(t, err)
	require.NotNil(t, asg)
	assert.Equal(t, SearchStopped, status.State)
	assert.False(t, asg.Value(vars[0]))
	assert.True(t, asg.Value(vars[1]))
	assert.True(t, asg.Value(vars[2]))
	assert.False(t, asg.Value(Var(42)))

	model.AddLinearEquality(vars[1:2], 0)
	status, asg, err = engine.SolveOne(context.Background(), model)
	require.NoError(t, err)
	assert.Nil(t, asg)
	assert.Equal(t, "INFEASIBLE", status.Name)
}

func TestCPSATEngineRejectsForeignModels(t *testing.T) {
	engine := NewCPSATEngine(cpsat.Parameters{})
	_, err := engine.EnumerateAll(context.Background(), newRecordingModel(), nil)
	assert.ErrorIs(t, err, ErrForeignModel)
	_, _, err = engine.SolveOne(context.Background(), newRecordingModel())
	assert.ErrorIs(t, err, ErrForeignModel)
}

func TestCPSATEngineRejectsUnknownVariables(t *testing.T) {
	engine := NewCPSATEngine(cpsat.Parameters{})
	model := engine.NewModel()
	model.NewBoolVar("a")
	model.AddLinearEquality([]Var{Var(7)}, 1)

	_, err := engine.EnumerateAll(context.Background(), model, nil)
	assert.ErrorIs(t, err, cpsat.ErrMixedModels)
}
