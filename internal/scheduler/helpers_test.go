package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedConstraint struct {
	vars      []Var
	lo, hi    int
	enforce   []Var
	enforceNo []Var
}

// recordingModel keeps everything a compiler emits so tests can inspect and evaluate it.
type recordingModel struct {
	tags        []string
	byTag       map[string]Var
	constraints []*recordedConstraint
}

func newRecordingModel() *recordingModel {
	return &recordingModel{byTag: make(map[string]Var)}
}

func (m *recordingModel) NewBoolVar(tag string) Var {
	m.tags = append(m.tags, tag)
	v := Var(len(m.tags) - 1)
	m.byTag[tag] = v
	return v
}

func (m *recordingModel) AddLinearEquality(vars []Var, target int) Constraint {
	return m.AddLinearRange(vars, target, target)
}

func (m *recordingModel) AddLinearRange(vars []Var, lo, hi int) Constraint {
	ct := &recordedConstraint{vars: append([]Var(nil), vars...), lo: lo, hi: hi}
	m.constraints = append(m.constraints, ct)
	return ct
}

func (c *recordedConstraint) OnlyEnforceIf(cond Var) Constraint {
	c.enforce = append(c.enforce, cond)
	return c
}

func (c *recordedConstraint) OnlyEnforceIfNot(cond Var) Constraint {
	c.enforceNo = append(c.enforceNo, cond)
	return c
}

// violated returns the index of the first constraint the assignment breaks, or -1.
func (m *recordingModel) violated(a Assignment) int {
	for i, ct := range m.constraints {
		active := true
		for _, v := range ct.enforce {
			active = active && a.Value(v)
		}
		for _, v := range ct.enforceNo {
			active = active && !a.Value(v)
		}
		if !active {
			continue
		}
		sum := 0
		for _, v := range ct.vars {
			if a.Value(v) {
				sum++
			}
		}
		if sum < ct.lo || sum > ct.hi {
			return i
		}
	}
	return -1
}

type setAssignment map[Var]bool

func (s setAssignment) Value(v Var) bool { return s[v] }

// assignmentFor encodes a schedule as an assignment over a recording model's tags.
func assignmentFor(t *testing.T, m *recordingModel, sched Schedule) setAssignment {
	t.Helper()
	out := setAssignment{}
	for w, games := range sched {
		for _, g := range games {
			v, ok := m.byTag[fmt.Sprintf("game_w%d_%d_at_%d", w, g.Visitor, g.Home)]
			require.True(t, ok, "missing variable for week %d game %v", w, g)
			out[v] = true
		}
	}
	return out
}

// scriptedEngine replays fixed schedules as raw solutions.
type scriptedEngine struct {
	t         *testing.T
	script    []Schedule
	state     SearchState
	delivered int
	stopped   bool
	model     *recordingModel
}

func (e *scriptedEngine) NewModel() Model {
	e.model = newRecordingModel()
	return e.model
}

func (e *scriptedEngine) EnumerateAll(_ context.Context, model Model, onSolution func(Assignment) bool) (SearchStatus, error) {
	m, ok := model.(*recordingModel)
	if !ok {
		return SearchStatus{}, ErrForeignModel
	}
	for _, sched := range e.script {
		e.delivered++
		if !onSolution(assignmentFor(e.t, m, sched)) {
			e.stopped = true
			return SearchStatus{State: SearchStopped, Name: "FEASIBLE", Solutions: e.delivered}, nil
		}
	}
	name := "OPTIMAL"
	if e.delivered == 0 {
		name = "INFEASIBLE"
	}
	if e.state != SearchComplete {
		name = "UNKNOWN"
	}
	return SearchStatus{State: e.state, Name: name, Solutions: e.delivered}, nil
}

func (e *scriptedEngine) SolveOne(_ context.Context, model Model) (SearchStatus, Assignment, error) {
	m, ok := model.(*recordingModel)
	if !ok {
		return SearchStatus{}, nil, ErrForeignModel
	}
	if len(e.script) == 0 {
		return SearchStatus{State: SearchComplete, Name: "INFEASIBLE"}, nil, nil
	}
	return SearchStatus{State: SearchStopped, Name: "FEASIBLE", Solutions: 1}, assignmentFor(e.t, m, e.script[0]), nil
}

func mustSeason(t *testing.T, in SeasonInput) *Season {
	t.Helper()
	season, err := NewSeason(in)
	require.NoError(t, err)
	return season
}

var fourTeams = []string{"ATL", "BOS", "CHI", "DAL"}

// Single round robin for four teams over three weeks.
var roundRobinFour = Schedule{
	{{0, 1}, {2, 3}},
	{{0, 2}, {1, 3}},
	{{1, 2}, {3, 0}},
}

// Satisfies the compiled model for five weeks, but ATL and CHI meet in weeks 2 and 3.
var lateRematchFour = Schedule{
	{{0, 1}, {2, 3}},
	{{0, 2}, {1, 3}},
	{{2, 0}, {3, 1}},
	{{0, 3}, {1, 2}},
	{{1, 2}, {3, 0}},
}

// checkInvariants verifies a schedule independently of the compiled model.
func checkInvariants(t *testing.T, season *Season, sched Schedule) {
	t.Helper()
	n, weeks := season.NumTeams(), season.NumWeeks()
	require.Len(t, sched, weeks)

	home := make([][]bool, n)
	for i := range home {
		home[i] = make([]bool, weeks)
	}
	for w, games := range sched {
		played := make([]int, n)
		for _, g := range games {
			require.NotEqual(t, g.Visitor, g.Home)
			played[g.Visitor]++
			played[g.Home]++
			home[g.Home][w] = true
		}
		for team, count := range played {
			require.Equal(t, 1, count, "team %s plays %d games in week %d", season.Team(team), count, w+1)
		}
	}

	lo, hi := (weeks-1)/2, (weeks+1)/2
	for team := 0; team < n; team++ {
		homes := 0
		for w := 0; w < weeks; w++ {
			if home[team][w] {
				homes++
			}
			if w >= 2 {
				run := 0
				for k := w - 2; k <= w; k++ {
					if home[team][k] {
						run++
					}
				}
				require.True(t, run > 0 && run < 3, "team %s has three straight home or away games ending week %d", season.Team(team), w+1)
			}
		}
		require.GreaterOrEqual(t, homes, lo)
		require.LessOrEqual(t, homes, hi)
		require.GreaterOrEqual(t, weeks-homes, lo)
		require.LessOrEqual(t, weeks-homes, hi)
	}

	last := map[[2]int]int{}
	for w, games := range sched {
		for _, g := range games {
			key := [2]int{g.Visitor, g.Home}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if prev, ok := last[key]; ok {
				require.GreaterOrEqual(t, w-prev, MinRematchGap, "pair %v meets in weeks %d and %d", key, prev+1, w+1)
			}
			last[key] = w
		}
	}
}
