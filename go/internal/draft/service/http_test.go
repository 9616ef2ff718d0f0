package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooplab/draftroom/go/internal/draft/engine"
	"github.com/hooplab/draftroom/go/internal/draft/pick"
	"github.com/hooplab/draftroom/go/internal/models"
)

// memStore backs the engine in memory for handler tests.
type memStore struct {
	mu       sync.Mutex
	settings models.DraftSettings
	teams    []models.Team
	picks    []models.DraftPick
}

func (m *memStore) Get(context.Context) (*models.DraftSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *memStore) Put(_ context.Context, s models.DraftSettings) error {
	m.settings = s
	return nil
}

func (m *memStore) List(context.Context) ([]models.Team, error) {
	return m.teams, nil
}

func (m *memStore) ListPicks(context.Context) ([]models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DraftPick, len(m.picks))
	copy(out, m.picks)
	return out, nil
}

func (m *memStore) CreateBatch(_ context.Context, picks []models.DraftPick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks = append(m.picks, picks...)
	return nil
}

func (m *memStore) Rewrite(_ context.Context, picks []models.DraftPick) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := len(m.picks)
	m.picks = append([]models.DraftPick(nil), picks...)
	return deleted, nil
}

func (m *memStore) Trade(_ context.Context, round, pickNum int, expectedOwner, newOwner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.picks {
		if m.picks[i].Round == round && m.picks[i].Pick == pickNum {
			if m.picks[i].CurrentTeamID != expectedOwner {
				return fmt.Errorf("expected owner %s: %w", expectedOwner, pick.ErrOwnershipConflict)
			}
			m.picks[i].CurrentTeamID = newOwner
			return nil
		}
	}
	return pick.ErrNotFound
}

func (m *memStore) Reassign(_ context.Context, round, pickNum int, newOwner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.picks {
		if m.picks[i].Round == round && m.picks[i].Pick == pickNum {
			m.picks[i].CurrentTeamID = newOwner
			return nil
		}
	}
	return pick.ErrNotFound
}

func (m *memStore) AssignRound(_ context.Context, round int, newOwner uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := 0
	for i := range m.picks {
		if m.picks[i].Round == round {
			m.picks[i].CurrentTeamID = newOwner
			updated++
		}
	}
	return updated, nil
}

func (m *memStore) MakePick(_ context.Context, round, pickNum int, playerID uuid.UUID) (*models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.picks {
		if m.picks[i].Round == round && m.picks[i].Pick == pickNum {
			if m.picks[i].IsUsed {
				return nil, pick.ErrAlreadyUsed
			}
			now := time.Now()
			m.picks[i].PlayerID = &playerID
			m.picks[i].PickedAt = &now
			m.picks[i].IsUsed = true
			made := m.picks[i]
			return &made, nil
		}
	}
	return nil, pick.ErrNotFound
}

func (m *memStore) ClearDraftedFlags(context.Context) (int, error) {
	return 0, nil
}

type memPicks struct{ *memStore }

func (p memPicks) List(ctx context.Context) ([]models.DraftPick, error) {
	return p.ListPicks(ctx)
}

func newTestRouter(t *testing.T, teamCount, rounds int) (http.Handler, *memStore, []models.Team) {
	t.Helper()

	teams := make([]models.Team, teamCount)
	order := make([]uuid.UUID, teamCount)
	for i := range teams {
		teams[i] = models.Team{ID: uuid.New(), Name: fmt.Sprintf("Team %d", i+1), CreatedAt: time.Now()}
		order[i] = teams[i].ID
	}
	store := &memStore{
		settings: models.DraftSettings{
			Rounds:         rounds,
			TeamCount:      teamCount,
			DraftType:      models.DraftTypeSnake,
			DraftOrder:     order,
			TimePerPickSec: 60,
		},
		teams: teams,
	}

	e := engine.New(engine.NewSession(), store, memPicks{store}, store, store, nil)
	require.NoError(t, e.Sync(context.Background()))

	r := chi.NewRouter()
	r.Mount("/draft", NewDraftService(e, nil, store, nil).Routes())
	return r, store, teams
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetState(t *testing.T) {
	h, _, teams := newTestRouter(t, 4, 3)

	rec := doJSON(t, h, http.MethodGet, "/draft/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var live engine.LiveStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	assert.Equal(t, 0, live.Index)
	assert.Equal(t, 12, live.TotalPicks)
	require.NotNil(t, live.Pick)
	assert.Equal(t, teams[0].ID, live.Pick.CurrentTeamID)
}

func TestGetSchedule(t *testing.T) {
	h, _, _ := newTestRouter(t, 4, 3)

	rec := doJSON(t, h, http.MethodGet, "/draft/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Picks []models.DraftPick `json:"picks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Picks, 12)
}

func TestTradeEndpoint(t *testing.T) {
	h, _, teams := newTestRouter(t, 4, 3)

	// Round 2 pick 1 belongs to the snake's last team.
	body := map[string]string{
		"expected_team_id": teams[3].ID.String(),
		"new_team_id":      teams[0].ID.String(),
	}

	rec := doJSON(t, h, http.MethodPost, "/draft/picks/2/1/trade", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"traded": true}`, rec.Body.String())

	// Stale expected owner now conflicts.
	rec = doJSON(t, h, http.MethodPost, "/draft/picks/2/1/trade", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTradeUnknownTeam(t *testing.T) {
	h, _, teams := newTestRouter(t, 2, 1)

	body := map[string]string{
		"expected_team_id": teams[0].ID.String(),
		"new_team_id":      uuid.New().String(),
	}
	rec := doJSON(t, h, http.MethodPost, "/draft/picks/1/1/trade", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradeMissingSlot(t *testing.T) {
	h, _, teams := newTestRouter(t, 2, 1)

	body := map[string]string{
		"expected_team_id": teams[0].ID.String(),
		"new_team_id":      teams[1].ID.String(),
	}
	rec := doJSON(t, h, http.MethodPost, "/draft/picks/9/9/trade", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMakePickEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t, 2, 1)

	body := map[string]string{"player_id": uuid.New().String()}

	rec := doJSON(t, h, http.MethodPost, "/draft/picks/1/1/make", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var made models.DraftPick
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &made))
	assert.True(t, made.IsUsed)

	// The slot is consumed; a second attempt conflicts.
	rec = doJSON(t, h, http.MethodPost, "/draft/picks/1/1/make", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAssignRoundEndpoint(t *testing.T) {
	h, store, teams := newTestRouter(t, 4, 3)

	body := map[string]string{"team_id": teams[0].ID.String()}
	rec := doJSON(t, h, http.MethodPost, "/draft/rounds/2/assign", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": 4}`, rec.Body.String())

	for _, p := range store.picks {
		if p.Round == 2 {
			assert.Equal(t, teams[0].ID, p.CurrentTeamID)
		}
	}
}

func TestResetEndpoint(t *testing.T) {
	h, store, _ := newTestRouter(t, 2, 1)

	rec := doJSON(t, h, http.MethodPost, "/draft/picks/1/1/make",
		map[string]string{"player_id": uuid.New().String()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/draft/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_picks": 2}`, rec.Body.String())

	for _, p := range store.picks {
		assert.False(t, p.IsUsed)
	}
}

func TestCursorEndpoints(t *testing.T) {
	h, _, _ := newTestRouter(t, 2, 2) // 4 picks

	rec := doJSON(t, h, http.MethodPost, "/draft/cursor/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"index": 1}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/draft/cursor/goto", map[string]int{"index": 99})
	assert.JSONEq(t, `{"index": 3}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/draft/cursor/retreat", nil)
	assert.JSONEq(t, `{"index": 2}`, rec.Body.String())
}

func TestSettingsEndpoints(t *testing.T) {
	h, store, _ := newTestRouter(t, 2, 1)

	rec := doJSON(t, h, http.MethodGet, "/draft/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg models.DraftSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, 1, cfg.Rounds)

	cfg.Rounds = 5
	cfg.DraftType = models.DraftTypeLinear
	rec = doJSON(t, h, http.MethodPut, "/draft/settings", cfg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.settings.Rounds)
	assert.Equal(t, models.DraftTypeLinear, store.settings.DraftType)

	// Invalid payloads never reach the store.
	cfg.Rounds = 0
	rec = doJSON(t, h, http.MethodPut, "/draft/settings", cfg)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cfg.Rounds = 5
	cfg.DraftType = "auction"
	rec = doJSON(t, h, http.MethodPut, "/draft/settings", cfg)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.DraftTypeLinear, store.settings.DraftType)
}

func TestBadSlotParams(t *testing.T) {
	h, _, _ := newTestRouter(t, 2, 1)

	rec := doJSON(t, h, http.MethodPost, "/draft/picks/zero/1/trade",
		map[string]string{"expected_team_id": uuid.New().String(), "new_team_id": uuid.New().String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/draft/picks/1/1/make", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
