package scheduler

import "sort"

// TeamReport summarises one team's season.
type TeamReport struct {
	Team          string         `json:"team"`
	Home          int            `json:"home"`
	Away          int            `json:"away"`
	MaxHomeStreak int            `json:"maxHomeStreak"`
	MaxAwayStreak int            `json:"maxAwayStreak"`
	Opponents     map[string]int `json:"opponents"`
}

// PairReport lists the weeks in which two teams meet.
type PairReport struct {
	Team1   string `json:"team1"`
	Team2   string `json:"team2"`
	Weeks   []int  `json:"weeks"`
	MinGap  int    `json:"minGap,omitempty"`
	Warning bool   `json:"warning"`
}

// Report is a diagnostic breakdown of a schedule.
type Report struct {
	Teams []TeamReport `json:"teams"`
	Pairs []PairReport `json:"pairs"`
	// Warnings counts pairs meeting less than MinRematchGap weeks apart.
	Warnings int `json:"warnings"`
}

// Analyze computes home/away counts, streaks, opponent tallies and rematch gaps.
func Analyze(season *Season, s Schedule) Report {
	n := season.NumTeams()
	teams := make([]TeamReport, n)
	for i := range teams {
		teams[i] = TeamReport{Team: season.Team(i), Opponents: make(map[string]int)}
	}

	// homeWeek[t][w] is 1 when t hosts in week w, 0 when t travels, -1 when idle.
	homeWeek := make([][]int, n)
	for t := range homeWeek {
		homeWeek[t] = make([]int, len(s))
		for w := range homeWeek[t] {
			homeWeek[t][w] = -1
		}
	}
	for w, games := range s {
		for _, g := range games {
			teams[g.Home].Home++
			teams[g.Visitor].Away++
			teams[g.Home].Opponents[season.Team(g.Visitor)]++
			teams[g.Visitor].Opponents[season.Team(g.Home)]++
			homeWeek[g.Home][w] = 1
			homeWeek[g.Visitor][w] = 0
		}
	}
	for t := range teams {
		teams[t].MaxHomeStreak = longestRun(homeWeek[t], 1)
		teams[t].MaxAwayStreak = longestRun(homeWeek[t], 0)
	}

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

	report := Report{Teams: teams, Pairs: make([]PairReport, 0, len(keys))}
	for _, k := range keys {
		weeks := meetings[k]
		pr := PairReport{Team1: season.Team(k[0]), Team2: season.Team(k[1]), Weeks: make([]int, len(weeks))}
		for i, w := range weeks {
			pr.Weeks[i] = w + 1
			if i == 0 {
				continue
			}
			gap := weeks[i] - weeks[i-1]
			if pr.MinGap == 0 || gap < pr.MinGap {
				pr.MinGap = gap
			}
		}
		if len(weeks) > 1 && pr.MinGap < MinRematchGap {
			pr.Warning = true
			report.Warnings++
		}
		report.Pairs = append(report.Pairs, pr)
	}
	return report
}

func longestRun(values []int, target int) int {
	best, cur := 0, 0
	for _, v := range values {
		if v == target {
			cur++
			if cur > best {
				best = cur
			}
			continue
		}
		cur = 0
	}
	return best
}
