package scheduler

// Matchup is a [visitor, home] pair of team identifiers.
type Matchup [2]string

// Visitor returns the travelling team.
func (m Matchup) Visitor() string { return m[0] }

// Home returns the hosting team.
func (m Matchup) Home() string { return m[1] }

// ProjectedSchedule maps a 1-based week to its matchups.
type ProjectedSchedule map[int][]Matchup

// Project renders a Schedule with team identifiers and 1-based weeks. Game order within a
// week is preserved.
func Project(season *Season, s Schedule) ProjectedSchedule {
	out := make(ProjectedSchedule, len(s))
	for w, games := range s {
		week := make([]Matchup, len(games))
		for i, g := range games {
			week[i] = Matchup{season.Team(g.Visitor), season.Team(g.Home)}
		}
		out[w+1] = week
	}
	return out
}
