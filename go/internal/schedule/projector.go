package schedule

import (
	"github.com/hooplab/draftroom/go/internal/models"
)

// State describes what the live-pick projection derived from the pick table.
type State string

const (
	// StateUninitialized means the pick table is empty.
	StateUninitialized State = "UNINITIALIZED"
	// StateLive means at least one pick is still unused.
	StateLive State = "LIVE"
	// StateComplete means every pick has been used.
	StateComplete State = "COMPLETE"
)

// Projection is the derived "on the clock" position. Index is the zero-based
// position in the canonical round-major sequence; on a complete draft it is
// clamped to the last pick.
type Projection struct {
	State State
	Index int
}

// Project derives the live pick from the pick table contents. It is always
// recomputed from a full read, never patched incrementally.
func Project(picks []models.DraftPick) Projection {
	if len(picks) == 0 {
		return Projection{State: StateUninitialized}
	}

	// The first unused slot in canonical order is the live pick. Keyed off
	// overall_pick so the result does not depend on input ordering.
	liveOverall := 0
	for _, p := range picks {
		if p.IsUsed {
			continue
		}
		if liveOverall == 0 || p.OverallPick < liveOverall {
			liveOverall = p.OverallPick
		}
	}

	if liveOverall == 0 {
		return Projection{State: StateComplete, Index: len(picks) - 1}
	}
	return Projection{State: StateLive, Index: liveOverall - 1}
}

// At returns the pick occupying the given zero-based canonical index, or nil
// if no such pick exists.
func At(picks []models.DraftPick, index int) *models.DraftPick {
	for i := range picks {
		if picks[i].OverallPick == index+1 {
			return &picks[i]
		}
	}
	return nil
}
