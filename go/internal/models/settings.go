package models

import (
	"github.com/google/uuid"
)

// DraftType defines the ordering rule used when generating the schedule.
type DraftType string

const (
	DraftTypeSnake  DraftType = "SNAKE"
	DraftTypeLinear DraftType = "LINEAR"
	// DraftTypeManual signals intent for per-pick manual assignment.
	// Schedule generation treats it exactly like SNAKE.
	DraftTypeManual DraftType = "MANUAL"
)

// DraftSettings holds the singleton draft configuration for a league season.
type DraftSettings struct {
	Rounds         int         `json:"rounds"`
	TeamCount      int         `json:"team_count"`
	Season         string      `json:"season"`
	DraftType      DraftType   `json:"draft_type"`
	DraftOrder     []uuid.UUID `json:"draft_order,omitempty"`
	TimePerPickSec int         `json:"time_per_pick_sec"`
}

// DefaultDraftSettings returns the configuration applied when no settings
// row has been written yet.
func DefaultDraftSettings() DraftSettings {
	return DraftSettings{
		Rounds:         13,
		TeamCount:      10,
		DraftType:      DraftTypeSnake,
		TimePerPickSec: 90,
	}
}

// ValidDraftType reports whether t is one of the supported draft types.
func ValidDraftType(t DraftType) bool {
	switch t {
	case DraftTypeSnake, DraftTypeLinear, DraftTypeManual:
		return true
	}
	return false
}
