// Package player holds the one write the draft engine performs against
// player records: releasing drafted flags on a schedule reset.
package player

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ClearDraftedFlags marks previously drafted, non-keeper players as
// available again and returns how many were released. Keepers stay drafted
// across resets.
func (r *Repository) ClearDraftedFlags(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE players SET drafted = FALSE WHERE drafted = TRUE AND keeper = FALSE`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear drafted flags: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected count: %w", err)
	}
	return int(affected), nil
}
