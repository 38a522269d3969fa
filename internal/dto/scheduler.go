package dto

import (
	"time"

	"github.com/noah-isme/league-scheduler-api/internal/scheduler"
)

// DivisionRequest groups teams that play each other home and away.
type DivisionRequest struct {
	Name  string   `json:"name" validate:"omitempty,max=64"`
	Teams []string `json:"teams"`
}

// FixedMatchupRequest pins a game to a week. Direction is one of either, team1_away or team2_away.
type FixedMatchupRequest struct {
	Week      int    `json:"week"`
	Team1     string `json:"team1"`
	Team2     string `json:"team2"`
	Direction string `json:"direction"`
}

// GenerateScheduleRequest describes the league to schedule. Teams may be given as a flat
// list, as west_teams/east_teams, or as explicit divisions.
type GenerateScheduleRequest struct {
	Teams         []string              `json:"teams,omitempty"`
	WestTeams     []string              `json:"west_teams,omitempty"`
	EastTeams     []string              `json:"east_teams,omitempty"`
	Divisions     []DivisionRequest     `json:"divisions,omitempty" validate:"omitempty,dive"`
	Weeks         int                   `json:"weeks,omitempty" validate:"omitempty,min=1"`
	FixedMatchups []FixedMatchupRequest `json:"fixed_matchups,omitempty"`
	MaxSolutions  int                   `json:"max_solutions,omitempty" validate:"omitempty,min=1"`
}

// GenerateScheduleResponse returns the accepted schedules of one generation.
type GenerateScheduleResponse struct {
	ProposalID    string                        `json:"proposalId"`
	Status        scheduler.Outcome             `json:"status"`
	EngineStatus  string                        `json:"engineStatus"`
	SolutionCount int                           `json:"solution_count"`
	Solutions     []scheduler.ProjectedSchedule `json:"solutions"`
	Teams         []string                      `json:"teams"`
	Weeks         int                           `json:"weeks"`
	Stats         scheduler.Stats               `json:"stats"`
	GeneratedAt   time.Time                     `json:"generatedAt"`
}

// LegacyGenerateResponse mirrors the response of the original /generate endpoint.
type LegacyGenerateResponse struct {
	Status        string                        `json:"status"`
	SolutionCount int                           `json:"solution_count"`
	Solutions     []scheduler.ProjectedSchedule `json:"solutions"`
}

// PreviewScheduleResponse returns one candidate with its diagnostics.
type PreviewScheduleResponse struct {
	EngineStatus string                      `json:"engineStatus"`
	Found        bool                        `json:"found"`
	Valid        bool                        `json:"valid"`
	Violation    string                      `json:"violation,omitempty"`
	Schedule     scheduler.ProjectedSchedule `json:"schedule,omitempty"`
	Report       *scheduler.Report           `json:"report,omitempty"`
	Stats        scheduler.Stats             `json:"stats"`
}

// SaveScheduleRequest persists one accepted schedule of a proposal.
type SaveScheduleRequest struct {
	ProposalID    string `json:"proposalId" validate:"required"`
	SolutionIndex int    `json:"solutionIndex" validate:"min=0"`
	Name          string `json:"name" validate:"required,max=120"`
	CreatedBy     string `json:"-"`
}

// LeagueScheduleQuery filters saved schedules.
type LeagueScheduleQuery struct {
	Search   string `form:"search" json:"search"`
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"pageSize" json:"pageSize"`
}

// LeagueScheduleDetail is a saved schedule with its games regrouped by week.
type LeagueScheduleDetail struct {
	ID        string                      `json:"id"`
	Name      string                      `json:"name"`
	Weeks     int                         `json:"weeks"`
	Teams     []string                    `json:"teams"`
	Divisions []DivisionRequest           `json:"divisions,omitempty"`
	Schedule  scheduler.ProjectedSchedule `json:"schedule"`
	Report    scheduler.Report            `json:"report"`
	CreatedAt time.Time                   `json:"createdAt"`
}

// GenerationRunResponse describes an asynchronous generation run.
type GenerationRunResponse struct {
	RunID      string                    `json:"runId"`
	Status     string                    `json:"status"`
	Attempts   int                       `json:"attempts"`
	Error      string                    `json:"error,omitempty"`
	Result     *GenerateScheduleResponse `json:"result,omitempty"`
	CreatedAt  time.Time                 `json:"createdAt"`
	StartedAt  *time.Time                `json:"startedAt,omitempty"`
	FinishedAt *time.Time                `json:"finishedAt,omitempty"`
}
