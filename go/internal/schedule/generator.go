// Package schedule contains the pure scheduling core: generating the ordered
// list of draft pick slots and projecting the live pick from a pick table.
// Nothing in this package performs I/O.
package schedule

import (
	"github.com/google/uuid"

	"github.com/hooplab/draftroom/go/internal/models"
)

// Slot is one generated (round, pick, team) tuple. The flattened slice of
// slots in round-major, pick-minor order is the canonical draft sequence.
type Slot struct {
	Round       int
	Pick        int // 1-based position within the round
	OverallPick int // 1-based position in the canonical sequence
	TeamID      uuid.UUID
}

// Generate produces the full pick schedule for the given round count, draft
// type and round-one team order. Snake drafts reverse the order on even
// rounds; linear drafts keep the same order every round; manual drafts
// generate exactly like snake.
//
// Callers are responsible for passing an order that contains every
// participating team exactly once (see ResolveOrder).
func Generate(rounds int, draftType models.DraftType, order []uuid.UUID) []Slot {
	numTeams := len(order)
	if rounds <= 0 || numTeams == 0 {
		return nil
	}

	slots := make([]Slot, 0, rounds*numTeams)
	overall := 1

	for round := 1; round <= rounds; round++ {
		roundOrder := order
		if draftType != models.DraftTypeLinear && round%2 == 0 {
			reversed := make([]uuid.UUID, numTeams)
			for i, teamID := range order {
				reversed[numTeams-1-i] = teamID
			}
			roundOrder = reversed
		}

		for i, teamID := range roundOrder {
			slots = append(slots, Slot{
				Round:       round,
				Pick:        i + 1,
				OverallPick: overall,
				TeamID:      teamID,
			})
			overall++
		}
	}

	return slots
}

// ResolveOrder derives the effective round-one order from the configured
// draft order and the team directory. Configured ids that no longer exist in
// the directory are dropped; directory teams missing from the configured
// order are appended in directory order. The result contains every directory
// team exactly once, so every team gets one slot per round even when the
// configured order is partial or stale.
func ResolveOrder(configured []uuid.UUID, teams []models.Team) []uuid.UUID {
	known := make(map[uuid.UUID]bool, len(teams))
	for _, t := range teams {
		known[t.ID] = true
	}

	order := make([]uuid.UUID, 0, len(teams))
	seen := make(map[uuid.UUID]bool, len(teams))
	for _, id := range configured {
		if known[id] && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, t := range teams {
		if !seen[t.ID] {
			order = append(order, t.ID)
			seen[t.ID] = true
		}
	}

	return order
}

// Picks converts generated slots into pick table rows. Each row starts
// unused with the current owner equal to the original owner.
func Picks(slots []Slot) []models.DraftPick {
	picks := make([]models.DraftPick, len(slots))
	for i, s := range slots {
		picks[i] = models.DraftPick{
			ID:             uuid.New(),
			Round:          s.Round,
			Pick:           s.Pick,
			OverallPick:    s.OverallPick,
			OriginalTeamID: s.TeamID,
			CurrentTeamID:  s.TeamID,
		}
	}
	return picks
}
