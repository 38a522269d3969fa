// Package scheduler builds round-robin league schedules. A Season describes the teams,
// their optional divisions and the season length; Compile turns it into a boolean
// constraint model for a SearchEngine, and an Accumulator collects the candidates that
// survive the rematch-spacing validation.
package scheduler

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

const (
	// DefaultWeeks is the season length used when none is given.
	DefaultWeeks = 14
	// MinRematchGap is the smallest number of weeks allowed between two meetings of the same pair.
	MinRematchGap = 5
	// rematchWindow is the number of weeks after a meeting covered by the compiled spacing rule.
	rematchWindow = MinRematchGap - 1
	// longSeasonWeeks is the season length from which cross-division pairs may meet twice.
	longSeasonWeeks = 14
)

// Direction constrains which side travels in a fixed matchup.
type Direction string

const (
	DirectionEither    Direction = "either"
	DirectionTeam1Away Direction = "team1_away"
	DirectionTeam2Away Direction = "team2_away"
)

// Valid reports whether the direction is recognised.
func (d Direction) Valid() bool {
	switch d {
	case DirectionEither, DirectionTeam1Away, DirectionTeam2Away:
		return true
	}
	return false
}

// Division is a named group of team identifiers.
type Division struct {
	Name  string
	Teams []string
}

// FixedMatchup forces a game between two teams in a given 1-based week.
type FixedMatchup struct {
	Week      int
	Team1     string
	Team2     string
	Direction Direction
}

// SeasonInput is the caller-facing description of a season.
type SeasonInput struct {
	// Teams fixes the team order. When empty, the order of the division listings is used.
	Teams         []string
	Divisions     []Division
	Weeks         int
	FixedMatchups []FixedMatchup
}

type fixedGame struct {
	week      int
	team1     int
	team2     int
	direction Direction
}

// pairBounds limits how often two teams meet over the season, in total and per orientation.
type pairBounds struct {
	min, max               int
	orderedMin, orderedMax int
}

// Season is a validated, index-based view of a SeasonInput.
type Season struct {
	teams     []string
	index     map[string]int
	weeks     int
	divisions []Division
	groupOf   []int
	groupSize []int
	fixed     []fixedGame
}

// NewSeason validates the input and builds a Season. Every failure is an INVALID_INPUT error.
func NewSeason(in SeasonInput) (*Season, error) {
	weeks := in.Weeks
	if weeks == 0 {
		weeks = DefaultWeeks
	}
	if weeks < 0 {
		return nil, invalidInput("weeks must be positive, got %d", weeks)
	}

	teams := in.Teams
	if len(teams) == 0 {
		for _, div := range in.Divisions {
			teams = append(teams, div.Teams...)
		}
	}
	if len(teams) < 2 {
		return nil, invalidInput("at least 2 teams are required, got %d", len(teams))
	}

	s := &Season{
		teams: make([]string, len(teams)),
		index: make(map[string]int, len(teams)),
		weeks: weeks,
	}
	for i, raw := range teams {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, invalidInput("team %d has an empty identifier", i+1)
		}
		if _, dup := s.index[id]; dup {
			return nil, invalidInput("team %q is listed more than once", id)
		}
		s.teams[i] = id
		s.index[id] = i
	}

	n := len(s.teams)
	if n%2 != 0 {
		return nil, invalidInput("an even number of teams is required, got %d", n)
	}
	if weeks < n-1 {
		return nil, invalidInput("%d teams need at least %d weeks to meet every opponent, got %d", n, n-1, weeks)
	}

	if err := s.assignGroups(in.Divisions); err != nil {
		return nil, err
	}
	if err := s.bindFixedMatchups(in.FixedMatchups); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Season) assignGroups(divisions []Division) error {
	n := len(s.teams)
	s.groupOf = make([]int, n)
	if len(divisions) == 0 {
		s.groupSize = []int{n}
		return nil
	}
	if len(divisions) < 2 {
		return invalidInput("divisional play needs at least 2 divisions, got %d", len(divisions))
	}

	for i := range s.groupOf {
		s.groupOf[i] = -1
	}
	s.groupSize = make([]int, len(divisions))
	s.divisions = make([]Division, len(divisions))
	for gi, div := range divisions {
		name := strings.TrimSpace(div.Name)
		if name == "" {
			name = fmt.Sprintf("division_%d", gi+1)
		}
		if len(div.Teams) == 0 {
			return invalidInput("division %q has no teams", name)
		}
		members := make([]string, 0, len(div.Teams))
		for _, raw := range div.Teams {
			id := strings.TrimSpace(raw)
			idx, ok := s.index[id]
			if !ok {
				return invalidInput("division %q names unknown team %q", name, id)
			}
			if s.groupOf[idx] != -1 {
				return invalidInput("team %q belongs to more than one division", id)
			}
			s.groupOf[idx] = gi
			s.groupSize[gi]++
			members = append(members, id)
		}
		s.divisions[gi] = Division{Name: name, Teams: members}
	}
	for i, g := range s.groupOf {
		if g == -1 {
			return invalidInput("team %q is not assigned to a division", s.teams[i])
		}
	}

	maxCross := s.maxCrossMeetings()
	for i := range s.teams {
		g := s.groupSize[s.groupOf[i]]
		intra := 2 * (g - 1)
		opponents := n - g
		cross := s.weeks - intra
		if cross < opponents {
			return invalidInput("%d weeks cannot host %d home-and-away divisional games and %d cross-division opponents for team %q",
				s.weeks, intra, opponents, s.teams[i])
		}
		if cross > maxCross*opponents {
			return invalidInput("%d weeks leave %d cross-division games for team %q but only %d are allowed",
				s.weeks, cross, s.teams[i], maxCross*opponents)
		}
	}
	return nil
}

func (s *Season) bindFixedMatchups(items []FixedMatchup) error {
	s.fixed = make([]fixedGame, 0, len(items))
	for k, fm := range items {
		t1, ok := s.index[strings.TrimSpace(fm.Team1)]
		if !ok {
			return invalidInput("fixed matchup %d names unknown team %q", k+1, fm.Team1)
		}
		t2, ok := s.index[strings.TrimSpace(fm.Team2)]
		if !ok {
			return invalidInput("fixed matchup %d names unknown team %q", k+1, fm.Team2)
		}
		if t1 == t2 {
			return invalidInput("fixed matchup %d pairs team %q with itself", k+1, fm.Team1)
		}
		if fm.Week < 1 || fm.Week > s.weeks {
			return invalidInput("fixed matchup %d week %d is outside 1..%d", k+1, fm.Week, s.weeks)
		}
		if !fm.Direction.Valid() {
			return invalidInput("fixed matchup %d has unrecognised direction %q", k+1, fm.Direction)
		}
		s.fixed = append(s.fixed, fixedGame{week: fm.Week - 1, team1: t1, team2: t2, direction: fm.Direction})
	}
	return nil
}

// NumTeams returns N.
func (s *Season) NumTeams() int { return len(s.teams) }

// NumWeeks returns W.
func (s *Season) NumWeeks() int { return s.weeks }

// Team returns the identifier of the team at index i.
func (s *Season) Team(i int) string { return s.teams[i] }

// Teams returns a copy of the team identifiers in index order.
func (s *Season) Teams() []string {
	out := make([]string, len(s.teams))
	copy(out, s.teams)
	return out
}

// TeamIndex resolves a team identifier.
func (s *Season) TeamIndex(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Divisional reports whether the season is split into divisions.
func (s *Season) Divisional() bool { return len(s.divisions) > 0 }

// Divisions returns the normalised divisions, or nil in flat mode.
func (s *Season) Divisions() []Division { return s.divisions }

// SameGroup reports whether two teams share a division. In flat mode every pair does.
func (s *Season) SameGroup(i, j int) bool { return s.groupOf[i] == s.groupOf[j] }

// FixedMatchups returns the fixed matchups with team identifiers normalised.
func (s *Season) FixedMatchups() []FixedMatchup {
	out := make([]FixedMatchup, len(s.fixed))
	for k, f := range s.fixed {
		out[k] = FixedMatchup{Week: f.week + 1, Team1: s.teams[f.team1], Team2: s.teams[f.team2], Direction: f.direction}
	}
	return out
}

func (s *Season) maxCrossMeetings() int {
	if s.weeks >= longSeasonWeeks {
		return 2
	}
	return 1
}

func (s *Season) pairBounds(i, j int) pairBounds {
	if s.Divisional() {
		if s.SameGroup(i, j) {
			return pairBounds{min: 2, max: 2, orderedMin: 1, orderedMax: 1}
		}
		maxCross := s.maxCrossMeetings()
		return pairBounds{min: 1, max: maxCross, orderedMin: 0, orderedMax: maxCross}
	}
	n := len(s.teams)
	lo := s.weeks / (n - 1)
	hi := (s.weeks + n - 2) / (n - 1)
	b := pairBounds{min: lo, max: hi, orderedMin: 0, orderedMax: hi}
	if s.weeks >= 2*(n-1) {
		b.orderedMin = 1
	}
	return b
}

// crossTotal is the number of cross-division games team i plays.
func (s *Season) crossTotal(i int) int {
	return s.weeks - 2*(s.groupSize[s.groupOf[i]]-1)
}

// balanceBounds limits the home and the away count of every team.
func (s *Season) balanceBounds() (int, int) {
	return (s.weeks - 1) / 2, (s.weeks + 1) / 2
}

func invalidInput(format string, args ...any) error {
	return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf(format, args...))
}
