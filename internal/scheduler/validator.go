package scheduler

import (
	"fmt"
	"sort"
)

// Game is one fixture, by team index.
type Game struct {
	Visitor int
	Home    int
}

// Schedule lists the games of each 0-based week, ordered by visitor then home index.
type Schedule [][]Game

// ScheduleFromAssignment reads the game variables of a compiled model back into a Schedule.
func ScheduleFromAssignment(c *CompiledModel, a Assignment) Schedule {
	n := c.Season.NumTeams()
	sched := make(Schedule, c.Season.NumWeeks())
	for w := range sched {
		games := make([]Game, 0, n/2)
		for v := 0; v < n; v++ {
			for h := 0; h < n; h++ {
				if v != h && a.Value(c.games[w][v][h]) {
					games = append(games, Game{Visitor: v, Home: h})
				}
			}
		}
		sched[w] = games
	}
	return sched
}

// RematchSpacingError reports two meetings of the same pair that are too close together.
type RematchSpacingError struct {
	Team1, Team2 int
	// Weeks are the 0-based weeks of the offending meetings.
	Weeks [2]int
	MinGap int
}

func (e *RematchSpacingError) Error() string {
	return fmt.Sprintf("teams %d and %d meet in weeks %d and %d, less than %d weeks apart",
		e.Team1, e.Team2, e.Weeks[0]+1, e.Weeks[1]+1, e.MinGap)
}

// ValidateRematchSpacing checks that consecutive meetings of every pair, in either
// orientation, are at least minGap weeks apart. It returns the first violation found.
func ValidateRematchSpacing(s Schedule, minGap int) error {
	meetings := pairMeetings(s)
	keys := make([][2]int, 0, len(meetings))
	for k := range meetings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, k := range keys {
		weeks := meetings[k]
		for i := 1; i < len(weeks); i++ {
			if weeks[i]-weeks[i-1] < minGap {
				return &RematchSpacingError{Team1: k[0], Team2: k[1], Weeks: [2]int{weeks[i-1], weeks[i]}, MinGap: minGap}
			}
		}
	}
	return nil
}

// pairMeetings maps each unordered pair (lower index first) to its ascending meeting weeks.
func pairMeetings(s Schedule) map[[2]int][]int {
	out := make(map[[2]int][]int)
	for w, games := range s {
		for _, g := range games {
			key := [2]int{g.Visitor, g.Home}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			out[key] = append(out[key], w)
		}
	}
	return out
}
