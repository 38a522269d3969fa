package scheduler

import (
	"errors"
	"fmt"
)

// CompiledModel is a Model populated with the constraints of a Season, together with the
// grid of game variables indexed by week, visitor and home.
type CompiledModel struct {
	Season *Season
	Model  Model
	games  [][][]Var
}

// Game returns the variable that is true when visitor plays at home in the 0-based week.
func (c *CompiledModel) Game(week, visitor, home int) Var {
	return c.games[week][visitor][home]
}

// NumVariables returns the number of game variables, W*N*(N-1).
func (c *CompiledModel) NumVariables() int {
	n := c.Season.NumTeams()
	return c.Season.NumWeeks() * n * (n - 1)
}

// Compile declares one game variable per (week, visitor, home) on model and adds the
// constraints of a legal schedule for season.
func Compile(season *Season, model Model) (*CompiledModel, error) {
	if season == nil {
		return nil, errors.New("scheduler: nil season")
	}
	if model == nil {
		return nil, errors.New("scheduler: nil model")
	}
	c := &CompiledModel{Season: season, Model: model}
	c.declareGames()
	c.addCoverage()
	c.addPairing()
	c.addBalance()
	c.addStreakLimits()
	c.addRematchSpacing()
	c.addFixedMatchups()
	return c, nil
}

func (c *CompiledModel) declareGames() {
	n, weeks := c.Season.NumTeams(), c.Season.NumWeeks()
	c.games = make([][][]Var, weeks)
	for w := 0; w < weeks; w++ {
		c.games[w] = make([][]Var, n)
		for v := 0; v < n; v++ {
			c.games[w][v] = make([]Var, n)
			for h := 0; h < n; h++ {
				if v == h {
					c.games[w][v][h] = -1
					continue
				}
				c.games[w][v][h] = c.Model.NewBoolVar(fmt.Sprintf("game_w%d_%d_at_%d", w, v, h))
			}
		}
	}
}

// meetings returns both orientations of the pair in the given week.
func (c *CompiledModel) meetings(week, i, j int) []Var {
	return []Var{c.games[week][i][j], c.games[week][j][i]}
}

// Every team plays exactly one game per week.
func (c *CompiledModel) addCoverage() {
	n := c.Season.NumTeams()
	for w := range c.games {
		for t := 0; t < n; t++ {
			vars := make([]Var, 0, 2*(n-1))
			for o := 0; o < n; o++ {
				if o != t {
					vars = append(vars, c.games[w][t][o], c.games[w][o][t])
				}
			}
			c.Model.AddLinearEquality(vars, 1)
		}
	}
}

func (c *CompiledModel) addPairing() {
	n, weeks := c.Season.NumTeams(), c.Season.NumWeeks()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			b := c.Season.pairBounds(i, j)
			total := make([]Var, 0, 2*weeks)
			for w := 0; w < weeks; w++ {
				total = append(total, c.meetings(w, i, j)...)
			}
			c.Model.AddLinearRange(total, b.min, b.max)
			if b.orderedMin == 0 && b.orderedMax >= b.max {
				continue
			}
			for _, pair := range [2][2]int{{i, j}, {j, i}} {
				ordered := make([]Var, weeks)
				for w := 0; w < weeks; w++ {
					ordered[w] = c.games[w][pair[0]][pair[1]]
				}
				c.Model.AddLinearRange(ordered, b.orderedMin, b.orderedMax)
			}
		}
	}

	if !c.Season.Divisional() {
		return
	}
	for t := 0; t < n; t++ {
		cross := make([]Var, 0, 2*weeks*n)
		for o := 0; o < n; o++ {
			if o == t || c.Season.SameGroup(t, o) {
				continue
			}
			for w := 0; w < weeks; w++ {
				cross = append(cross, c.meetings(w, t, o)...)
			}
		}
		total := c.Season.crossTotal(t)
		c.Model.AddLinearEquality(cross, total)
	}
}

func (c *CompiledModel) addBalance() {
	n := c.Season.NumTeams()
	lo, hi := c.Season.balanceBounds()
	for t := 0; t < n; t++ {
		c.Model.AddLinearRange(c.teamGames(t, 0, len(c.games), true), lo, hi)
		c.Model.AddLinearRange(c.teamGames(t, 0, len(c.games), false), lo, hi)
	}
}

// No team plays three consecutive home games or three consecutive away games.
func (c *CompiledModel) addStreakLimits() {
	n := c.Season.NumTeams()
	for t := 0; t < n; t++ {
		for w := 0; w+3 <= len(c.games); w++ {
			c.Model.AddLinearRange(c.teamGames(t, w, w+3, true), 0, 2)
			c.Model.AddLinearRange(c.teamGames(t, w, w+3, false), 0, 2)
		}
	}
}

// teamGames collects the home (or away) variables of team t for weeks [from, to).
func (c *CompiledModel) teamGames(t, from, to int, home bool) []Var {
	n := c.Season.NumTeams()
	vars := make([]Var, 0, (to-from)*(n-1))
	for w := from; w < to; w++ {
		for o := 0; o < n; o++ {
			if o == t {
				continue
			}
			if home {
				vars = append(vars, c.games[w][o][t])
			} else {
				vars = append(vars, c.games[w][t][o])
			}
		}
	}
	return vars
}

// addRematchSpacing forbids a pair meeting in week w from meeting again within
// rematchWindow weeks. Only weeks w < W-rematchWindow are covered; meetings that are
// both inside the trailing window are left to the Validator.
func (c *CompiledModel) addRematchSpacing() {
	n, weeks := c.Season.NumTeams(), c.Season.NumWeeks()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for w := 0; w < weeks-rematchWindow; w++ {
				for gap := 1; gap <= rematchWindow; gap++ {
					if w+gap >= weeks {
						continue
					}
					vars := append(c.meetings(w, i, j), c.meetings(w+gap, i, j)...)
					c.Model.AddLinearRange(vars, 0, 1)
				}
			}
		}
	}
}

func (c *CompiledModel) addFixedMatchups() {
	for _, f := range c.Season.fixed {
		switch f.direction {
		case DirectionTeam1Away:
			c.Model.AddLinearEquality([]Var{c.games[f.week][f.team1][f.team2]}, 1)
		case DirectionTeam2Away:
			c.Model.AddLinearEquality([]Var{c.games[f.week][f.team2][f.team1]}, 1)
		default:
			c.Model.AddLinearEquality(c.meetings(f.week, f.team1, f.team2), 1)
		}
	}
}
