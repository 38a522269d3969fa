package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRoundRobin(t *testing.T) {
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3})
	report := Analyze(season, roundRobinFour)

	require.Len(t, report.Teams, 4)
	atl := report.Teams[0]
	assert.Equal(t, "ATL", atl.Team)
	assert.Equal(t, 1, atl.Home)
	assert.Equal(t, 2, atl.Away)
	assert.Equal(t, 2, atl.MaxAwayStreak)
	assert.Equal(t, 1, atl.MaxHomeStreak)
	assert.Equal(t, map[string]int{"BOS": 1, "CHI": 1, "DAL": 1}, atl.Opponents)

	require.Len(t, report.Pairs, 6)
	assert.Equal(t, PairReport{Team1: "ATL", Team2: "BOS", Weeks: []int{1}}, report.Pairs[0])
	assert.Zero(t, report.Warnings)
}

func TestAnalyzeFlagsShortGaps(t *testing.T) {
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 5})
	report := Analyze(season, lateRematchFour)

	var atlChi PairReport
	for _, p := range report.Pairs {
		if p.Team1 == "ATL" && p.Team2 == "CHI" {
			atlChi = p
		}
	}
	assert.Equal(t, []int{2, 3}, atlChi.Weeks)
	assert.Equal(t, 1, atlChi.MinGap)
	assert.True(t, atlChi.Warning)
	assert.Greater(t, report.Warnings, 0)
}

func TestProjectUsesOneBasedWeeks(t *testing.T) {
	season := mustSeason(t, SeasonInput{Teams: fourTeams, Weeks: 3})
	projected := Project(season, roundRobinFour)

	require.Len(t, projected, 3)
	_, ok := projected[0]
	assert.False(t, ok)
	assert.Equal(t, []Matchup{{"ATL", "CHI"}, {"BOS", "DAL"}}, projected[2])
	assert.Equal(t, "ATL", projected[2][0].Visitor())
	assert.Equal(t, "CHI", projected[2][0].Home())
}
