package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/league-scheduler-api/pkg/cpsat"
)

func newTestGenerator(cap int, timeout time.Duration) *Generator {
	return NewGenerator(NewCPSATEngine(cpsat.Parameters{}), Options{SolutionCap: cap, SearchTimeout: timeout}, nil)
}

func scheduleKey(s Schedule) string {
	return fmt.Sprint(s)
}

func TestGeneratorStopsAtCap(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCapReached, result.Outcome)
	assert.Equal(t, "FEASIBLE", result.EngineStatus)
	assert.Len(t, result.Solutions, DefaultSolutionCap)
	assert.Equal(t, DefaultSolutionCap, result.Stats.Accepted)
	assert.Equal(t, DefaultSolutionCap, result.Stats.Candidates)
	for _, sched := range result.Schedules {
		checkInvariants(t, season, sched)
	}
}

func TestGeneratorEnumeratesWholeSpace(t *testing.T) {
	gen := newTestGenerator(1000, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)

	// 6 orderings of the 3 weekly pairings times 24 orientations giving every team 1 or 2 home games.
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, "OPTIMAL", result.EngineStatus)
	assert.Equal(t, 144, result.Stats.Accepted)
	assert.Zero(t, result.Stats.Rejected)

	seen := map[string]bool{}
	for _, sched := range result.Schedules {
		checkInvariants(t, season, sched)
		seen[scheduleKey(sched)] = true
	}
	assert.Len(t, seen, 144)
}

func TestGeneratorLimitCannotExceedCap(t *testing.T) {
	gen := newTestGenerator(10, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3})

	result, err := gen.Generate(context.Background(), season, 4)
	require.NoError(t, err)
	assert.Len(t, result.Solutions, 4)

	result, err = gen.Generate(context.Background(), season, 500)
	require.NoError(t, err)
	assert.Len(t, result.Solutions, 10)
	assert.Equal(t, 10, gen.SolutionCap())
}

func TestGeneratorRejectsLateSeasonRematches(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 5})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Empty(t, result.Solutions)
	assert.Greater(t, result.Stats.Rejected, 0)
	assert.Equal(t, result.Stats.Candidates, result.Stats.Rejected)
}

func TestGeneratorDivisionalDoubleRoundRejectsShortGaps(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{
		Divisions: []Division{
			{Name: "North", Teams: []string{"ATL", "BOS"}},
			{Name: "South", Teams: []string{"CHI", "DAL"}},
		},
		Weeks: 4,
	})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Empty(t, result.Solutions)
	assert.Greater(t, result.Stats.Candidates, 0)
}

func TestGeneratorInfeasibleSeason(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 6})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInfeasible, result.Outcome)
	assert.Equal(t, "INFEASIBLE", result.EngineStatus)
	assert.Empty(t, result.Solutions)
	assert.Zero(t, result.Stats.Candidates)
}

func TestGeneratorConflictingFixedMatchups(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3, FixedMatchups: []FixedMatchup{
		{Week: 1, Team1: "ATL", Team2: "BOS", Direction: DirectionTeam1Away},
		{Week: 1, Team1: "ATL", Team2: "CHI", Direction: DirectionTeam1Away},
	}})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInfeasible, result.Outcome)
	assert.Empty(t, result.Solutions)
}

func TestGeneratorHonoursFixedMatchups(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3, FixedMatchups: []FixedMatchup{
		{Week: 1, Team1: "ATL", Team2: "BOS", Direction: DirectionTeam1Away},
	}})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Len(t, result.Solutions, 24)
	for _, sol := range result.Solutions {
		assert.Contains(t, sol[1], Matchup{"ATL", "BOS"})
	}

	either := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3, FixedMatchups: []FixedMatchup{
		{Week: 1, Team1: "ATL", Team2: "BOS", Direction: DirectionEither},
		{Week: 2, Team1: "ATL", Team2: "CHI", Direction: DirectionTeam2Away},
	}})
	result, err = gen.Generate(context.Background(), either, 0)
	require.NoError(t, err)
	assert.Len(t, result.Solutions, 12)
	for _, sol := range result.Solutions {
		week1 := sol[1]
		assert.True(t, containsMatchup(week1, Matchup{"ATL", "BOS"}) || containsMatchup(week1, Matchup{"BOS", "ATL"}))
		assert.Contains(t, sol[2], Matchup{"CHI", "ATL"})
	}
}

func containsMatchup(list []Matchup, m Matchup) bool {
	for _, item := range list {
		if item == m {
			return true
		}
	}
	return false
}

func TestGeneratorSixTeams(t *testing.T) {
	gen := newTestGenerator(5, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: []string{"A", "B", "C", "D", "E", "F"}, Weeks: 5})

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCapReached, result.Outcome)
	require.Len(t, result.Schedules, 5)
	for _, sched := range result.Schedules {
		checkInvariants(t, season, sched)
	}
}

func TestGeneratorRepeatedRunsAcceptSameSchedules(t *testing.T) {
	cases := []struct {
		name  string
		input SeasonInput
		cap   int
	}{
		{name: "four teams whole space", input: SeasonInput{Teams: fourTeams, Weeks: 3}, cap: 1000},
		{name: "six teams capped", input: SeasonInput{Teams: []string{"A", "B", "C", "D", "E", "F"}, Weeks: 5}, cap: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accepted := func() map[string]bool {
				gen := newTestGenerator(tc.cap, time.Minute)
				season := mustSeason(t, tc.input)
				result, err := gen.Generate(context.Background(), season, 0)
				require.NoError(t, err)
				require.NotEqual(t, OutcomeTimedOut, result.Outcome)

				keys := map[string]bool{}
				for _, sched := range result.Schedules {
					checkInvariants(t, season, sched)
					keys[scheduleKey(sched)] = true
				}
				return keys
			}

			first := accepted()
			second := accepted()
			require.NotEmpty(t, first)
			assert.Equal(t, first, second)
		})
	}
}

func TestGeneratorTenTeamDivisionalSeason(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running search")
	}
	gen := newTestGenerator(3, 5*time.Second)
	season := mustSeason(t, westEast(14))

	result, err := gen.Generate(context.Background(), season, 0)
	require.NoError(t, err)
	assert.Contains(t, []Outcome{OutcomeCapReached, OutcomeTimedOut, OutcomeExhausted}, result.Outcome)
	assert.LessOrEqual(t, len(result.Schedules), 3)
	for _, sched := range result.Schedules {
		checkInvariants(t, season, sched)
		report := Analyze(season, sched)
		for _, team := range report.Teams {
			assert.Equal(t, 7, team.Home)
			assert.Equal(t, 7, team.Away)
		}
	}
}

func TestGeneratorReturnsCallerCancellation(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.Generate(ctx, season, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGeneratorTimeoutFromScriptedEngine(t *testing.T) {
	engine := &scriptedEngine{t: t, script: []Schedule{roundRobinFour}, state: SearchTimedOut}
	gen := NewGenerator(engine, Options{SolutionCap: 5}, nil)

	result, err := gen.Generate(context.Background(), mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3}), 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
	assert.Len(t, result.Solutions, 1)
}

func TestGeneratorPreview(t *testing.T) {
	gen := newTestGenerator(DefaultSolutionCap, 30*time.Second)

	preview, err := gen.Preview(context.Background(), mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3}))
	require.NoError(t, err)
	assert.True(t, preview.Found)
	assert.True(t, preview.Valid)
	assert.Empty(t, preview.Violation)
	require.NotNil(t, preview.Report)
	assert.Len(t, preview.Schedule, 3)

	preview, err = gen.Preview(context.Background(), mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 5}))
	require.NoError(t, err)
	assert.True(t, preview.Found)
	assert.False(t, preview.Valid)
	assert.Contains(t, preview.Violation, "less than 5 weeks apart")
	assert.Greater(t, preview.Report.Warnings, 0)

	preview, err = gen.Preview(context.Background(), mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 6}))
	require.NoError(t, err)
	assert.False(t, preview.Found)
	assert.Equal(t, "INFEASIBLE", preview.EngineStatus)
	assert.Nil(t, preview.Report)
}

func TestGeneratorPreviewWithScriptedEngine(t *testing.T) {
	engine := &scriptedEngine{t: t, script: []Schedule{lateRematchFour}}
	gen := NewGenerator(engine, Options{}, nil)

	preview, err := gen.Preview(context.Background(), mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 5}))
	require.NoError(t, err)
	assert.False(t, preview.Valid)
	assert.Equal(t, "ATL and CHI meet in weeks 2 and 3, less than 5 weeks apart", preview.Violation)
}
