package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a participating fantasy team. The team directory is the
// authoritative ground truth for schedule validity checks.
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
