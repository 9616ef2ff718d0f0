// Package teams reads the team directory. The engine treats the directory as
// authoritative ground truth and never writes to it.
package teams

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hooplab/draftroom/go/internal/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns all participating teams in directory order (join time, then
// id as a tiebreak). That order is what ResolveOrder appends by.
func (r *Repository) List(ctx context.Context) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM teams ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read teams: %w", err)
	}
	return teams, nil
}
