// Package engine orchestrates the draft schedule: it decides when the
// persisted schedule is stale versus authoritative, drives (re)generation,
// derives the live pick and exposes the administrative mutation operations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/events"
	"github.com/hooplab/draftroom/go/internal/draft/settings"
	"github.com/hooplab/draftroom/go/internal/models"
	"github.com/hooplab/draftroom/go/internal/schedule"
)

// ErrUnknownTeam is returned when a mutation names a team that is not in the
// team directory. Pick ownership must always reference a directory team.
var ErrUnknownTeam = errors.New("team not in directory")

// SettingsStore defines what the engine needs from the settings collaborator.
type SettingsStore interface {
	Get(ctx context.Context) (*models.DraftSettings, error)
}

// PickStore defines what the engine needs from the pick table collaborator.
type PickStore interface {
	List(ctx context.Context) ([]models.DraftPick, error)
	CreateBatch(ctx context.Context, picks []models.DraftPick) error
	Rewrite(ctx context.Context, picks []models.DraftPick) (int, error)
	Trade(ctx context.Context, round, pick int, expectedOwner, newOwner uuid.UUID) error
	Reassign(ctx context.Context, round, pick int, newOwner uuid.UUID) error
	AssignRound(ctx context.Context, round int, newOwner uuid.UUID) (int, error)
	MakePick(ctx context.Context, round, pick int, playerID uuid.UUID) (*models.DraftPick, error)
}

// TeamDirectory defines what the engine needs from the team roster.
type TeamDirectory interface {
	List(ctx context.Context) ([]models.Team, error)
}

// PlayerFlags is the one side effect reset performs on player records.
type PlayerFlags interface {
	ClearDraftedFlags(ctx context.Context) (int, error)
}

// ChangeBus publishes change notifications after engine writes.
type ChangeBus interface {
	Publish(ctx context.Context, change events.Change) error
}

// LiveStatus is the derived "on the clock" position plus the pick row it
// points at.
type LiveStatus struct {
	State      schedule.State    `json:"state"`
	Index      int               `json:"index"`
	TotalPicks int               `json:"total_picks"`
	Pick       *models.DraftPick `json:"pick,omitempty"`
}

// Engine is the draft state orchestrator. The pick table is the single
// source of truth; the only state held across calls is the bootstrap session
// flag and the derived cursor, which is always recomputed from a fresh read.
type Engine struct {
	settings SettingsStore
	picks    PickStore
	teams    TeamDirectory
	players  PlayerFlags
	bus      ChangeBus // optional; nil disables notifications

	session    *Session
	instanceID string

	mu     sync.Mutex
	state  schedule.State
	cursor int
	total  int
}

// New creates an engine. The session must be constructed once per process
// and shared by every engine instance that writes to the same pick table.
func New(session *Session, s SettingsStore, p PickStore, t TeamDirectory, pl PlayerFlags, b ChangeBus) *Engine {
	return &Engine{
		settings:   s,
		picks:      p,
		teams:      t,
		players:    pl,
		bus:        b,
		session:    session,
		instanceID: uuid.New().String()[:8],
		state:      schedule.StateUninitialized,
	}
}

// InstanceID identifies this engine in logs and change notifications.
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Sync is the read-and-decide cycle run on every change notification:
// bootstrap if this session has never initialized, otherwise reconcile, then
// re-project the live index from a fresh read.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.session.Bootstrapped() {
		if err := e.InitializeIfNeeded(ctx); err != nil {
			return err
		}
	} else {
		if err := e.Reconcile(ctx); err != nil {
			return err
		}
	}
	return e.RefreshLiveIndex(ctx)
}

// InitializeIfNeeded generates and inserts the schedule once per session,
// and only when the directory is non-empty, the configured counts are
// positive and the pick table is empty. Missing or incomplete configuration
// is expected during league setup and declines silently.
func (e *Engine) InitializeIfNeeded(ctx context.Context) error {
	cfg, err := e.loadSettings(ctx)
	if err != nil {
		return err
	}
	teams, err := e.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	if len(teams) == 0 || cfg.Rounds <= 0 || cfg.TeamCount <= 0 {
		log.Debug().
			Str("instance", e.instanceID).
			Int("teams", len(teams)).
			Int("rounds", cfg.Rounds).
			Msg("declining schedule bootstrap; configuration incomplete")
		return nil
	}

	existing, err := e.picks.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list draft picks: %w", err)
	}
	if len(existing) > 0 {
		// A schedule already exists; future changes go through Reconcile.
		e.session.markBootstrapped()
		return nil
	}

	if !e.session.claim() {
		return nil
	}

	order := schedule.ResolveOrder(cfg.DraftOrder, teams)
	rows := schedule.Picks(schedule.Generate(cfg.Rounds, cfg.DraftType, order))
	if err := e.picks.CreateBatch(ctx, rows); err != nil {
		e.session.release()
		return fmt.Errorf("failed to bootstrap schedule: %w", err)
	}

	log.Info().
		Str("instance", e.instanceID).
		Int("rounds", cfg.Rounds).
		Int("teams", len(order)).
		Int("total_picks", len(rows)).
		Str("draft_type", string(cfg.DraftType)).
		Msg("bootstrapped draft schedule")

	e.publishChange(ctx, events.ChangePicks)
	return nil
}

// Reconcile checks the persisted schedule against current settings and the
// team directory. Any mismatch discards and regenerates the whole schedule;
// incremental repair of an in-progress draft against a changed roster has no
// unambiguous semantics, so the conservative full reset wins.
func (e *Engine) Reconcile(ctx context.Context) error {
	cfg, err := e.loadSettings(ctx)
	if err != nil {
		return err
	}
	teams, err := e.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	if cfg.Rounds <= 0 || len(teams) == 0 {
		return nil
	}

	picks, err := e.picks.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list draft picks: %w", err)
	}

	expected := cfg.Rounds * len(teams)
	if len(picks) == expected && everyTeamOwnsARow(picks, teams) {
		return nil
	}

	log.Warn().
		Str("instance", e.instanceID).
		Int("expected_picks", expected).
		Int("actual_picks", len(picks)).
		Msg("persisted schedule no longer matches configuration; resetting")
	return e.Reset(ctx)
}

// Reset deletes every pick row, re-inserts a freshly generated schedule and
// releases drafted flags on non-keeper players. Destructive and irreversible
// by design; this is an administrative operation.
func (e *Engine) Reset(ctx context.Context) error {
	cfg, err := e.loadSettings(ctx)
	if err != nil {
		return err
	}
	teams, err := e.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	if len(teams) == 0 || cfg.Rounds <= 0 {
		return fmt.Errorf("cannot reset schedule: no teams or rounds configured")
	}

	order := schedule.ResolveOrder(cfg.DraftOrder, teams)
	rows := schedule.Picks(schedule.Generate(cfg.Rounds, cfg.DraftType, order))

	deleted, err := e.picks.Rewrite(ctx, rows)
	if err != nil {
		return fmt.Errorf("failed to reset schedule: %w", err)
	}
	released, err := e.players.ClearDraftedFlags(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear drafted flags: %w", err)
	}

	e.mu.Lock()
	e.state = schedule.StateLive
	e.cursor = 0
	e.total = len(rows)
	e.mu.Unlock()
	e.session.markBootstrapped()

	log.Info().
		Str("instance", e.instanceID).
		Int("deleted_picks", deleted).
		Int("new_picks", len(rows)).
		Int("players_released", released).
		Msg("reset draft schedule")

	e.publishChange(ctx, events.ChangePicks)
	return nil
}

// CurrentSchedule returns the pick table contents, always read fresh.
func (e *Engine) CurrentSchedule(ctx context.Context) ([]models.DraftPick, error) {
	return e.picks.List(ctx)
}

// LivePick reads the pick table and derives the live position, replacing the
// cached cursor with the fresh projection.
func (e *Engine) LivePick(ctx context.Context) (*LiveStatus, error) {
	picks, err := e.picks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft picks: %w", err)
	}
	proj := schedule.Project(picks)

	e.mu.Lock()
	e.state = proj.State
	e.cursor = proj.Index
	e.total = len(picks)
	e.mu.Unlock()

	return &LiveStatus{
		State:      proj.State,
		Index:      proj.Index,
		TotalPicks: len(picks),
		Pick:       schedule.At(picks, proj.Index),
	}, nil
}

// RefreshLiveIndex recomputes the cached cursor from a fresh read. On read
// failure the prior cached projection is left untouched.
func (e *Engine) RefreshLiveIndex(ctx context.Context) error {
	_, err := e.LivePick(ctx)
	return err
}

// Advance moves the cursor forward one pick, bounded to the schedule. A
// presentation convenience; it does not touch the pick table.
func (e *Engine) Advance() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor < e.total-1 {
		e.cursor++
	}
	return e.cursor
}

// Retreat moves the cursor back one pick, bounded at zero.
func (e *Engine) Retreat() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor > 0 {
		e.cursor--
	}
	return e.cursor
}

// GoTo jumps the cursor to an explicit position, clamped to the schedule.
func (e *Engine) GoTo(index int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = index
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.total > 0 && e.cursor > e.total-1 {
		e.cursor = e.total - 1
	}
	return e.cursor
}

// Cursor returns the cached projection without touching the pick table.
func (e *Engine) Cursor() (schedule.State, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.cursor
}

// TradePick conditionally moves ownership of one slot. The update only
// applies if the row's owner still equals expectedOwner at write time; a
// lost race surfaces as pick.ErrOwnershipConflict, which callers recover
// from by re-reading and retrying. Trading a slot to its current owner is a
// no-op, reported as such rather than an error.
func (e *Engine) TradePick(ctx context.Context, round, pickNum int, expectedOwner, newOwner uuid.UUID) (bool, error) {
	if newOwner == expectedOwner {
		log.Info().
			Int("round", round).
			Int("pick", pickNum).
			Str("team_id", newOwner.String()).
			Msg("trade is a no-op; pick already owned by target team")
		return false, nil
	}
	if err := e.requireTeam(ctx, newOwner); err != nil {
		return false, err
	}

	if err := e.picks.Trade(ctx, round, pickNum, expectedOwner, newOwner); err != nil {
		return false, err
	}

	e.publishChange(ctx, events.ChangePicks)
	return true, nil
}

// ReassignPick unconditionally rewrites a slot's owner, for administrative
// correction without the ownership precondition.
func (e *Engine) ReassignPick(ctx context.Context, round, pickNum int, newOwner uuid.UUID) error {
	if err := e.requireTeam(ctx, newOwner); err != nil {
		return err
	}
	if err := e.picks.Reassign(ctx, round, pickNum, newOwner); err != nil {
		return err
	}
	e.publishChange(ctx, events.ChangePicks)
	return nil
}

// AssignRound transfers every pick in a round to one team, overwriting all
// prior owners. Callers are expected to confirm this destructive intent.
func (e *Engine) AssignRound(ctx context.Context, round int, newOwner uuid.UUID) (int, error) {
	if err := e.requireTeam(ctx, newOwner); err != nil {
		return 0, err
	}
	updated, err := e.picks.AssignRound(ctx, round, newOwner)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		e.publishChange(ctx, events.ChangePicks)
	}
	return updated, nil
}

// MakePick consumes the slot by recording the player; the slot transitions
// unused to used exactly once and only a full reset reverses it.
func (e *Engine) MakePick(ctx context.Context, round, pickNum int, playerID uuid.UUID) (*models.DraftPick, error) {
	made, err := e.picks.MakePick(ctx, round, pickNum, playerID)
	if err != nil {
		return nil, err
	}
	e.publishChange(ctx, events.ChangePicks)
	return made, nil
}

// loadSettings reads configuration, falling back to defaults when no
// settings row exists yet.
func (e *Engine) loadSettings(ctx context.Context) (*models.DraftSettings, error) {
	cfg, err := e.settings.Get(ctx)
	if errors.Is(err, settings.ErrNotFound) {
		defaults := models.DefaultDraftSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft settings: %w", err)
	}
	return cfg, nil
}

func (e *Engine) requireTeam(ctx context.Context, teamID uuid.UUID) error {
	teams, err := e.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	for _, t := range teams {
		if t.ID == teamID {
			return nil
		}
	}
	return fmt.Errorf("team %s: %w", teamID, ErrUnknownTeam)
}

func (e *Engine) publishChange(ctx context.Context, kind events.ChangeKind) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, events.NewChange(kind, e.instanceID)); err != nil {
		// The write itself succeeded; peers will catch up on their next read.
		log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to publish change notification")
	}
}

func everyTeamOwnsARow(picks []models.DraftPick, teams []models.Team) bool {
	owners := make(map[uuid.UUID]bool, len(teams))
	for _, p := range picks {
		owners[p.CurrentTeamID] = true
	}
	for _, t := range teams {
		if !owners[t.ID] {
			return false
		}
	}
	return true
}
