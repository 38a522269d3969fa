package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LeagueSchedule is a saved schedule chosen from a generation proposal.
type LeagueSchedule struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	ProposalID    string         `db:"proposal_id" json:"proposal_id"`
	SolutionIndex int            `db:"solution_idx" json:"solution_index"`
	Weeks         int            `db:"weeks" json:"weeks"`
	Teams         types.JSONText `db:"teams" json:"teams"`
	Divisions     types.JSONText `db:"divisions" json:"divisions,omitempty"`
	CreatedBy     *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// LeagueScheduleGame is one fixture of a saved schedule. Week is 1-based.
type LeagueScheduleGame struct {
	ID         string `db:"id" json:"id"`
	ScheduleID string `db:"schedule_id" json:"schedule_id"`
	Week       int    `db:"week" json:"week"`
	Visitor    string `db:"visitor" json:"visitor"`
	Home       string `db:"home" json:"home"`
}

// LeagueScheduleFilter narrows saved schedule listings.
type LeagueScheduleFilter struct {
	Search   string
	Page     int
	PageSize int
}
