// Package pick persists the draft pick table: one row per scheduled
// selection, identified by (round, pick).
package pick

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hooplab/draftroom/go/internal/models"
	"github.com/hooplab/draftroom/go/internal/sqlutil"
)

var (
	// ErrNotFound is returned when no row matches (round, pick).
	ErrNotFound = errors.New("draft pick not found")
	// ErrOwnershipConflict is returned when a trade's expected owner no
	// longer matches the row. Recoverable: re-read and retry.
	ErrOwnershipConflict = errors.New("pick ownership changed")
	// ErrAlreadyUsed is returned when a pick slot has already been consumed.
	ErrAlreadyUsed = errors.New("pick already made")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const pickColumns = `id, round, pick, overall_pick, original_team_id, current_team_id, player_id, picked_at, is_used`

// List returns every pick row in canonical round-major, pick-minor order.
func (r *Repository) List(ctx context.Context) ([]models.DraftPick, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pickColumns+` FROM draft_picks ORDER BY round, pick`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, err
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read draft picks: %w", err)
	}
	return picks, nil
}

// CreateBatch inserts all pick rows in one statement via unnest.
func (r *Repository) CreateBatch(ctx context.Context, picks []models.DraftPick) error {
	if len(picks) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, batchInsertSQL, batchInsertArgs(picks)...)
	if err != nil {
		return fmt.Errorf("failed to batch create draft picks: %w", err)
	}
	return nil
}

// Rewrite atomically replaces the entire pick table with a freshly generated
// schedule. Used by reset and reconciliation so readers never observe a
// half-written table.
func (r *Repository) Rewrite(ctx context.Context, picks []models.DraftPick) (deleted int, err error) {
	err = sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM draft_picks`)
		if err != nil {
			return fmt.Errorf("failed to delete draft picks: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get deleted row count: %w", err)
		}
		deleted = int(n)

		if len(picks) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, batchInsertSQL, batchInsertArgs(picks)...); err != nil {
			return fmt.Errorf("failed to batch create draft picks: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Trade updates the row's current owner only if it still matches the
// expected owner at write time.
func (r *Repository) Trade(ctx context.Context, round, pickNum int, expectedOwner, newOwner uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE draft_picks SET current_team_id = $1
		WHERE round = $2 AND pick = $3 AND current_team_id = $4`,
		newOwner, round, pickNum, expectedOwner,
	)
	if err != nil {
		return fmt.Errorf("failed to trade pick: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected count: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a lost race.
		var owner uuid.UUID
		err := r.db.QueryRowContext(ctx,
			`SELECT current_team_id FROM draft_picks WHERE round = $1 AND pick = $2`,
			round, pickNum,
		).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check pick ownership: %w", err)
		}
		return fmt.Errorf("expected owner %s, current owner %s: %w", expectedOwner, owner, ErrOwnershipConflict)
	}
	return nil
}

// Reassign unconditionally updates the row's current owner.
func (r *Repository) Reassign(ctx context.Context, round, pickNum int, newOwner uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE draft_picks SET current_team_id = $1
		WHERE round = $2 AND pick = $3`,
		newOwner, round, pickNum,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign pick: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected count: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRound gives every pick in the round to the new owner and returns how
// many rows were rewritten.
func (r *Repository) AssignRound(ctx context.Context, round int, newOwner uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE draft_picks SET current_team_id = $1 WHERE round = $2`,
		newOwner, round,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to assign round: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected count: %w", err)
	}
	return int(affected), nil
}

// MakePick consumes a slot by recording the player. The is_used predicate
// makes this a set-once write: a second attempt affects zero rows.
func (r *Repository) MakePick(ctx context.Context, round, pickNum int, playerID uuid.UUID) (*models.DraftPick, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE draft_picks
		SET player_id = $1, is_used = TRUE, picked_at = now()
		WHERE round = $2 AND pick = $3 AND is_used = FALSE
		RETURNING `+pickColumns,
		playerID, round, pickNum,
	)
	p, err := scanPick(row)
	if errors.Is(err, errScanNoRows) {
		var exists bool
		if qErr := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM draft_picks WHERE round = $1 AND pick = $2)`,
			round, pickNum,
		).Scan(&exists); qErr != nil {
			return nil, fmt.Errorf("failed to check pick existence: %w", qErr)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyUsed
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const batchInsertSQL = `
	INSERT INTO draft_picks (id, round, pick, overall_pick, original_team_id, current_team_id)
	SELECT * FROM unnest($1::uuid[], $2::int[], $3::int[], $4::int[], $5::uuid[], $6::uuid[])`

func batchInsertArgs(picks []models.DraftPick) []any {
	ids := make([]uuid.UUID, len(picks))
	rounds := make([]int64, len(picks))
	pickNumbers := make([]int64, len(picks))
	overallPicks := make([]int64, len(picks))
	originalTeamIDs := make([]uuid.UUID, len(picks))
	currentTeamIDs := make([]uuid.UUID, len(picks))

	for i, p := range picks {
		ids[i] = p.ID
		rounds[i] = int64(p.Round)
		pickNumbers[i] = int64(p.Pick)
		overallPicks[i] = int64(p.OverallPick)
		originalTeamIDs[i] = p.OriginalTeamID
		currentTeamIDs[i] = p.CurrentTeamID
	}

	return []any{
		pq.Array(ids),
		pq.Array(rounds),
		pq.Array(pickNumbers),
		pq.Array(overallPicks),
		pq.Array(originalTeamIDs),
		pq.Array(currentTeamIDs),
	}
}

var errScanNoRows = errors.New("no rows")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPick(row rowScanner) (models.DraftPick, error) {
	var p models.DraftPick
	var playerID uuid.NullUUID
	var pickedAt sql.NullTime

	err := row.Scan(&p.ID, &p.Round, &p.Pick, &p.OverallPick,
		&p.OriginalTeamID, &p.CurrentTeamID, &playerID, &pickedAt, &p.IsUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return p, errScanNoRows
	}
	if err != nil {
		return p, fmt.Errorf("failed to scan draft pick: %w", err)
	}

	if playerID.Valid {
		p.PlayerID = &playerID.UUID
	}
	if pickedAt.Valid {
		t := pickedAt.Time
		p.PickedAt = &t
	}
	return p, nil
}
