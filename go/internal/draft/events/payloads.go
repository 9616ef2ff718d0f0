// Package events holds the change-notification and broadcast payload types
// shared between the engine, bus and gateway packages.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind identifies which collaborator's data changed.
type ChangeKind string

const (
	ChangeSettings ChangeKind = "settings"
	ChangeTeams    ChangeKind = "teams"
	ChangePicks    ChangeKind = "picks"
)

// Change is the notification emitted after a write to the settings store,
// team directory or pick table. Subscribers re-read and re-decide; the
// change itself carries no row data.
type Change struct {
	ID         uuid.UUID  `json:"id"`
	Kind       ChangeKind `json:"kind"`
	Origin     string     `json:"origin,omitempty"` // instance that performed the write
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewChange builds a change notification stamped with the writer's instance id.
func NewChange(kind ChangeKind, origin string) Change {
	return Change{
		ID:         uuid.New(),
		Kind:       kind,
		Origin:     origin,
		OccurredAt: time.Now().UTC(),
	}
}

// PickMadePayload is broadcast to clients when a pick slot is consumed.
type PickMadePayload struct {
	PickID      string    `json:"pick_id"`
	TeamID      string    `json:"team_id"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`
	OverallPick int       `json:"overall_pick"`
	MadeAt      time.Time `json:"made_at"`
}

// PickTradedPayload is broadcast after a successful ownership change.
type PickTradedPayload struct {
	Round      int    `json:"round"`
	Pick       int    `json:"pick"`
	FromTeamID string `json:"from_team_id"`
	ToTeamID   string `json:"to_team_id"`
}

// ScheduleResetPayload is broadcast after a full schedule regeneration.
type ScheduleResetPayload struct {
	Rounds     int       `json:"rounds"`
	TeamCount  int       `json:"team_count"`
	TotalPicks int       `json:"total_picks"`
	ResetAt    time.Time `json:"reset_at"`
}

// LivePickPayload describes the current "on the clock" position.
type LivePickPayload struct {
	State          string `json:"state"`
	Index          int    `json:"index"`
	Round          int    `json:"round,omitempty"`
	Pick           int    `json:"pick,omitempty"`
	OverallPick    int    `json:"overall_pick,omitempty"`
	TeamID         string `json:"team_id,omitempty"`
	TimePerPickSec int    `json:"time_per_pick_sec,omitempty"`
}

// TimerTickPayload carries the informational pick-clock countdown. The
// server never acts on it; clients render it and the engine enforces nothing.
type TimerTickPayload struct {
	OverallPick      int       `json:"overall_pick"`
	TeamID           string    `json:"team_id"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	TickedAt         time.Time `json:"ticked_at"`
}
