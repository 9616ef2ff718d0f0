package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooplab/draftroom/go/internal/draft/events"
	"github.com/hooplab/draftroom/go/internal/draft/pick"
	"github.com/hooplab/draftroom/go/internal/draft/settings"
	"github.com/hooplab/draftroom/go/internal/models"
	"github.com/hooplab/draftroom/go/internal/schedule"
)

// fakeWorld implements every engine collaborator in memory.
type fakeWorld struct {
	mu sync.Mutex

	settings    *models.DraftSettings
	settingsErr error
	teams       []models.Team
	picks       []models.DraftPick

	createCalls  int
	rewriteCalls int
	released     int
	published    []events.Change
}

func (w *fakeWorld) Get(context.Context) (*models.DraftSettings, error) {
	if w.settingsErr != nil {
		return nil, w.settingsErr
	}
	if w.settings == nil {
		return nil, settings.ErrNotFound
	}
	s := *w.settings
	return &s, nil
}

func (w *fakeWorld) List(context.Context) ([]models.Team, error) {
	return w.teams, nil
}

func (w *fakeWorld) ListPicks(context.Context) ([]models.DraftPick, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.DraftPick, len(w.picks))
	copy(out, w.picks)
	return out, nil
}

func (w *fakeWorld) CreateBatch(_ context.Context, picks []models.DraftPick) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.createCalls++
	w.picks = append(w.picks, picks...)
	return nil
}

func (w *fakeWorld) Rewrite(_ context.Context, picks []models.DraftPick) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rewriteCalls++
	deleted := len(w.picks)
	w.picks = append([]models.DraftPick(nil), picks...)
	return deleted, nil
}

func (w *fakeWorld) Trade(_ context.Context, round, pickNum int, expectedOwner, newOwner uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.picks {
		if w.picks[i].Round == round && w.picks[i].Pick == pickNum {
			if w.picks[i].CurrentTeamID != expectedOwner {
				return fmt.Errorf("expected owner %s: %w", expectedOwner, pick.ErrOwnershipConflict)
			}
			w.picks[i].CurrentTeamID = newOwner
			return nil
		}
	}
	return pick.ErrNotFound
}

func (w *fakeWorld) Reassign(_ context.Context, round, pickNum int, newOwner uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.picks {
		if w.picks[i].Round == round && w.picks[i].Pick == pickNum {
			w.picks[i].CurrentTeamID = newOwner
			return nil
		}
	}
	return pick.ErrNotFound
}

func (w *fakeWorld) AssignRound(_ context.Context, round int, newOwner uuid.UUID) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updated := 0
	for i := range w.picks {
		if w.picks[i].Round == round {
			w.picks[i].CurrentTeamID = newOwner
			updated++
		}
	}
	return updated, nil
}

func (w *fakeWorld) MakePick(_ context.Context, round, pickNum int, playerID uuid.UUID) (*models.DraftPick, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.picks {
		if w.picks[i].Round == round && w.picks[i].Pick == pickNum {
			if w.picks[i].IsUsed {
				return nil, pick.ErrAlreadyUsed
			}
			now := time.Now()
			w.picks[i].PlayerID = &playerID
			w.picks[i].PickedAt = &now
			w.picks[i].IsUsed = true
			made := w.picks[i]
			return &made, nil
		}
	}
	return nil, pick.ErrNotFound
}

func (w *fakeWorld) ClearDraftedFlags(context.Context) (int, error) {
	w.released++
	return 3, nil
}

func (w *fakeWorld) Publish(_ context.Context, c events.Change) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.published = append(w.published, c)
	return nil
}

// pickLister adapts ListPicks to the PickStore method name used by the engine.
type pickLister struct{ *fakeWorld }

func (p pickLister) List(ctx context.Context) ([]models.DraftPick, error) {
	return p.ListPicks(ctx)
}

func newWorld(teamCount int) (*fakeWorld, []models.Team) {
	teams := make([]models.Team, teamCount)
	base := time.Now()
	for i := range teams {
		teams[i] = models.Team{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("Team %d", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	order := make([]uuid.UUID, teamCount)
	for i, t := range teams {
		order[i] = t.ID
	}
	w := &fakeWorld{
		settings: &models.DraftSettings{
			Rounds:         3,
			TeamCount:      teamCount,
			DraftType:      models.DraftTypeSnake,
			DraftOrder:     order,
			TimePerPickSec: 60,
		},
		teams: teams,
	}
	return w, teams
}

func newEngine(w *fakeWorld) *Engine {
	return New(NewSession(), w, pickLister{w}, w, w, w)
}

func TestSyncBootstrapsOnce(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(4)
	e := newEngine(w)

	require.NoError(t, e.Sync(ctx))
	assert.Len(t, w.picks, 12)
	assert.Equal(t, 1, w.createCalls)

	// A second cycle reconciles instead of inserting again.
	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, 1, w.createCalls)
	assert.Equal(t, 0, w.rewriteCalls)

	state, cursor := e.Cursor()
	assert.Equal(t, schedule.StateLive, state)
	assert.Equal(t, 0, cursor)
}

func TestInitializeDeclinesDuringSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("no teams", func(t *testing.T) {
		w, _ := newWorld(4)
		w.teams = nil
		e := newEngine(w)
		require.NoError(t, e.Sync(ctx))
		assert.Empty(t, w.picks)
	})

	t.Run("zero rounds", func(t *testing.T) {
		w, _ := newWorld(4)
		w.settings.Rounds = 0
		e := newEngine(w)
		require.NoError(t, e.Sync(ctx))
		assert.Empty(t, w.picks)
	})
}

func TestInitializeAdoptsExistingSchedule(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(2)
	existing := schedule.Picks(schedule.Generate(3, models.DraftTypeSnake,
		[]uuid.UUID{teams[0].ID, teams[1].ID}))
	w.picks = existing

	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	assert.Equal(t, 0, w.createCalls, "existing schedule must not be re-inserted")
	assert.True(t, e.session.Bootstrapped())
}

func TestInitializeOverlappingNotifications(t *testing.T) {
	// Two overlapping bootstrap attempts against one session: only one
	// insert happens.
	ctx := context.Background()
	w, _ := newWorld(3)
	session := NewSession()
	e1 := New(session, w, pickLister{w}, w, w, w)
	e2 := New(session, w, pickLister{w}, w, w, w)

	require.NoError(t, e1.InitializeIfNeeded(ctx))
	require.NoError(t, e2.InitializeIfNeeded(ctx))

	assert.Equal(t, 1, w.createCalls)
	assert.Len(t, w.picks, 9)
}

func TestInitializeUsesDefaultsWhenSettingsMissing(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(2)
	w.settings = nil

	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	// Default rounds x 2 directory teams.
	defaults := models.DefaultDraftSettings()
	assert.Len(t, w.picks, defaults.Rounds*2)
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(4)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	require.NoError(t, e.Reconcile(ctx))
	require.NoError(t, e.Reconcile(ctx))
	assert.Equal(t, 0, w.rewriteCalls, "unchanged configuration must not reset")
}

func TestReconcileResetsWhenDirectoryShrinks(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(4)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))
	require.Len(t, w.picks, 12)

	// A team leaves the league: 12 persisted rows vs expected 9.
	w.teams = teams[:3]

	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, 1, w.rewriteCalls)
	assert.Len(t, w.picks, 9)

	owners := make(map[uuid.UUID]bool)
	for _, p := range w.picks {
		owners[p.CurrentTeamID] = true
	}
	assert.False(t, owners[teams[3].ID], "departed team must not own any slot")
}

func TestReconcileResetsWhenTeamOwnsNoRow(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(2)
	w.settings.Rounds = 1
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))
	require.Len(t, w.picks, 2)

	// Both slots end up with one owner: row count still matches but a
	// directory team no longer appears anywhere.
	_, err := w.AssignRound(ctx, 1, teams[0].ID)
	require.NoError(t, err)

	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, 1, w.rewriteCalls)
}

func TestResetClearsUsage(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(3)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	playerID := uuid.New()
	_, err := e.MakePick(ctx, 1, 1, playerID)
	require.NoError(t, err)
	_, err = e.MakePick(ctx, 1, 2, uuid.New())
	require.NoError(t, err)

	require.NoError(t, e.Reset(ctx))

	for _, p := range w.picks {
		assert.False(t, p.IsUsed)
		assert.Nil(t, p.PlayerID)
	}
	assert.Equal(t, 1, w.released, "reset releases drafted non-keeper players")

	state, cursor := e.Cursor()
	assert.Equal(t, schedule.StateLive, state)
	assert.Equal(t, 0, cursor)
}

func TestLivePickAfterRoundOne(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(4)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	for pickNum := 1; pickNum <= 4; pickNum++ {
		_, err := e.MakePick(ctx, 1, pickNum, uuid.New())
		require.NoError(t, err)
	}

	live, err := e.LivePick(ctx)
	require.NoError(t, err)
	assert.Equal(t, schedule.StateLive, live.State)
	assert.Equal(t, 4, live.Index, "the 5th overall pick is on the clock")
	require.NotNil(t, live.Pick)
	assert.Equal(t, 2, live.Pick.Round)
	assert.Equal(t, 1, live.Pick.Pick)
}

func TestLivePickComplete(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(2)
	w.settings.Rounds = 1
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	_, err := e.MakePick(ctx, 1, 1, uuid.New())
	require.NoError(t, err)
	_, err = e.MakePick(ctx, 1, 2, uuid.New())
	require.NoError(t, err)

	live, err := e.LivePick(ctx)
	require.NoError(t, err)
	assert.Equal(t, schedule.StateComplete, live.State)
	assert.Equal(t, 1, live.Index)
}

func TestTradePickPrecondition(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(4)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	// Round 2 pick 1 belongs to the last team in a snake draft.
	d, a := teams[3].ID, teams[0].ID

	traded, err := e.TradePick(ctx, 2, 1, d, a)
	require.NoError(t, err)
	assert.True(t, traded)

	// Same trade again: owner is now A, so the precondition fails.
	_, err = e.TradePick(ctx, 2, 1, d, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pick.ErrOwnershipConflict))
}

func TestTradePickNoOp(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(2)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	before := len(w.published)
	traded, err := e.TradePick(ctx, 1, 1, teams[0].ID, teams[0].ID)
	require.NoError(t, err)
	assert.False(t, traded)
	assert.Len(t, w.published, before, "a no-op trade publishes nothing")
}

func TestMutationsRejectUnknownTeams(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(2)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	stranger := uuid.New()

	_, err := e.TradePick(ctx, 1, 1, teams[0].ID, stranger)
	assert.True(t, errors.Is(err, ErrUnknownTeam))

	err = e.ReassignPick(ctx, 1, 1, stranger)
	assert.True(t, errors.Is(err, ErrUnknownTeam))

	_, err = e.AssignRound(ctx, 1, stranger)
	assert.True(t, errors.Is(err, ErrUnknownTeam))
}

func TestAssignRound(t *testing.T) {
	ctx := context.Background()
	w, teams := newWorld(4)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	updated, err := e.AssignRound(ctx, 2, teams[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated)

	for _, p := range w.picks {
		if p.Round == 2 {
			assert.Equal(t, teams[0].ID, p.CurrentTeamID)
		}
	}
}

func TestMakePickSetOnce(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(2)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	_, err := e.MakePick(ctx, 1, 1, uuid.New())
	require.NoError(t, err)

	_, err = e.MakePick(ctx, 1, 1, uuid.New())
	assert.True(t, errors.Is(err, pick.ErrAlreadyUsed))
}

func TestCursorBounds(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(2)
	w.settings.Rounds = 2 // 4 picks total
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	assert.Equal(t, 0, e.Retreat(), "retreat clamps at zero")
	assert.Equal(t, 1, e.Advance())
	assert.Equal(t, 3, e.GoTo(99), "goto clamps to the last pick")
	assert.Equal(t, 3, e.Advance(), "advance clamps at the last pick")
	assert.Equal(t, 0, e.GoTo(-5))
}

func TestSyncSurfacesReadFailures(t *testing.T) {
	ctx := context.Background()
	w, _ := newWorld(2)
	e := newEngine(w)
	require.NoError(t, e.Sync(ctx))

	_, before := e.Cursor()

	w.settingsErr = errors.New("connection refused")
	err := e.Sync(ctx)
	require.Error(t, err)

	// Cached projection is untouched on failure.
	_, after := e.Cursor()
	assert.Equal(t, before, after)
}
