// Package settings persists the singleton draft configuration.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hooplab/draftroom/go/internal/models"
)

// ErrNotFound is returned when no settings row has been written yet.
var ErrNotFound = errors.New("draft settings not found")

// Repository stores draft settings as a single JSONB row, keyed by a
// constant true id so at most one row can ever exist.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get reads the settings row. Returns ErrNotFound when the league has not
// been configured yet; callers decide whether to apply defaults.
func (r *Repository) Get(ctx context.Context) (*models.DraftSettings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT settings FROM draft_settings WHERE id = TRUE`,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft settings: %w", err)
	}

	var s models.DraftSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}
	return &s, nil
}

// Put upserts the settings row.
func (r *Repository) Put(ctx context.Context, s models.DraftSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO draft_settings (id, settings, updated_at)
		VALUES (TRUE, $1, now())
		ON CONFLICT (id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()`,
		raw,
	)
	if err != nil {
		return fmt.Errorf("failed to put draft settings: %w", err)
	}
	return nil
}
