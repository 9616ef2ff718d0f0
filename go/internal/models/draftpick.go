package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick represents a single scheduled selection slot.
type DraftPick struct {
	ID          uuid.UUID `json:"id"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`         // pick number in the round, 1-based
	OverallPick int       `json:"overall_pick"` // pick number overall, 1-based

	// OriginalTeamID is the owner at generation time, never rewritten.
	// CurrentTeamID moves with trades and reassignments.
	OriginalTeamID uuid.UUID  `json:"original_team_id"`
	CurrentTeamID  uuid.UUID  `json:"current_team_id"`
	PlayerID       *uuid.UUID `json:"player_id,omitempty"` // nil until the slot is used
	PickedAt       *time.Time `json:"picked_at,omitempty"`
	IsUsed         bool       `json:"is_used"`
}
