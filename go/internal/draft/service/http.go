// Package service exposes the draft room over HTTP: read endpoints for the
// schedule and live state, and administrative mutations for picks, trades
// and resets.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/engine"
	"github.com/hooplab/draftroom/go/internal/draft/events"
	"github.com/hooplab/draftroom/go/internal/draft/gateway"
	"github.com/hooplab/draftroom/go/internal/draft/pick"
	"github.com/hooplab/draftroom/go/internal/draft/settings"
	"github.com/hooplab/draftroom/go/internal/models"
)

// SettingsStore reads and writes the singleton draft configuration.
type SettingsStore interface {
	Get(ctx context.Context) (*models.DraftSettings, error)
	Put(ctx context.Context, s models.DraftSettings) error
}

// ChangePublisher notifies the engine (and peers) after a settings write.
type ChangePublisher interface {
	Publish(ctx context.Context, change events.Change) error
}

// DraftService wires the engine to HTTP. The optional sink receives rich
// broadcast events for mutations; the engine's own change notifications still
// fire regardless.
type DraftService struct {
	engine   *engine.Engine
	sink     gateway.Sink
	settings SettingsStore
	bus      ChangePublisher
}

func NewDraftService(e *engine.Engine, sink gateway.Sink, store SettingsStore, bus ChangePublisher) *DraftService {
	return &DraftService{engine: e, sink: sink, settings: store, bus: bus}
}

// Routes builds the draft room router.
func (s *DraftService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/state", s.handleState)
	r.Get("/schedule", s.handleSchedule)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)

	r.Post("/picks/{round}/{pick}/trade", s.handleTrade)
	r.Post("/picks/{round}/{pick}/reassign", s.handleReassign)
	r.Post("/picks/{round}/{pick}/make", s.handleMakePick)
	r.Post("/rounds/{round}/assign", s.handleAssignRound)
	r.Post("/reset", s.handleReset)

	r.Post("/cursor/advance", s.handleAdvance)
	r.Post("/cursor/retreat", s.handleRetreat)
	r.Post("/cursor/goto", s.handleGoTo)

	return r
}

func (s *DraftService) handleState(w http.ResponseWriter, r *http.Request) {
	live, err := s.engine.LivePick(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

func (s *DraftService) handleSchedule(w http.ResponseWriter, r *http.Request) {
	picks, err := s.engine.CurrentSchedule(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"picks": picks})
}

func (s *DraftService) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.Get(r.Context())
	if errors.Is(err, settings.ErrNotFound) {
		defaults := models.DefaultDraftSettings()
		writeJSON(w, http.StatusOK, defaults)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *DraftService) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg models.DraftSettings
	if !decode(w, r, &cfg) {
		return
	}
	if cfg.Rounds < 1 || cfg.TeamCount < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("rounds and team_count must be at least 1"))
		return
	}
	if !models.ValidDraftType(cfg.DraftType) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid draft_type"))
		return
	}
	if cfg.TimePerPickSec < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("time_per_pick_sec must not be negative"))
		return
	}

	if err := s.settings.Put(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	if s.bus != nil {
		if err := s.bus.Publish(r.Context(), events.NewChange(events.ChangeSettings, "admin-api")); err != nil {
			log.Warn().Err(err).Msg("failed to publish settings change notification")
		}
	}
	writeJSON(w, http.StatusOK, cfg)
}

type tradeRequest struct {
	ExpectedTeamID uuid.UUID `json:"expected_team_id"`
	NewTeamID      uuid.UUID `json:"new_team_id"`
}

func (s *DraftService) handleTrade(w http.ResponseWriter, r *http.Request) {
	round, pickNum, ok := slotParams(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if !decode(w, r, &req) {
		return
	}

	traded, err := s.engine.TradePick(r.Context(), round, pickNum, req.ExpectedTeamID, req.NewTeamID)
	if err != nil {
		writeError(w, err)
		return
	}

	if traded {
		s.announce(gateway.EventTypePickTraded, events.PickTradedPayload{
			Round:      round,
			Pick:       pickNum,
			FromTeamID: req.ExpectedTeamID.String(),
			ToTeamID:   req.NewTeamID.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"traded": traded})
}

type teamRequest struct {
	TeamID uuid.UUID `json:"team_id"`
}

func (s *DraftService) handleReassign(w http.ResponseWriter, r *http.Request) {
	round, pickNum, ok := slotParams(w, r)
	if !ok {
		return
	}
	var req teamRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.engine.ReassignPick(r.Context(), round, pickNum, req.TeamID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reassigned": true})
}

type makePickRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (s *DraftService) handleMakePick(w http.ResponseWriter, r *http.Request) {
	round, pickNum, ok := slotParams(w, r)
	if !ok {
		return
	}
	var req makePickRequest
	if !decode(w, r, &req) {
		return
	}

	made, err := s.engine.MakePick(r.Context(), round, pickNum, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	madeAt := time.Now().UTC()
	if made.PickedAt != nil {
		madeAt = *made.PickedAt
	}
	s.announce(gateway.EventTypePickMade, events.PickMadePayload{
		PickID:      made.ID.String(),
		TeamID:      made.CurrentTeamID.String(),
		PlayerID:    req.PlayerID.String(),
		Round:       made.Round,
		Pick:        made.Pick,
		OverallPick: made.OverallPick,
		MadeAt:      madeAt,
	})
	writeJSON(w, http.StatusOK, made)
}

func (s *DraftService) handleAssignRound(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid round"))
		return
	}
	var req teamRequest
	if !decode(w, r, &req) {
		return
	}

	updated, err := s.engine.AssignRound(r.Context(), round, req.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

func (s *DraftService) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	picks, err := s.engine.CurrentSchedule(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.announce(gateway.EventTypeScheduleReset, events.ScheduleResetPayload{
		TotalPicks: len(picks),
		ResetAt:    time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"total_picks": len(picks)})
}

func (s *DraftService) handleAdvance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"index": s.engine.Advance()})
}

func (s *DraftService) handleRetreat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"index": s.engine.Retreat()})
}

type gotoRequest struct {
	Index int `json:"index"`
}

func (s *DraftService) handleGoTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"index": s.engine.GoTo(req.Index)})
}

func (s *DraftService) announce(eventType gateway.EventType, payload interface{}) {
	if s.sink == nil {
		return
	}
	event, err := gateway.NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build broadcast event")
		return
	}
	s.sink.Broadcast(event)
}

func slotParams(w http.ResponseWriter, r *http.Request) (round, pickNum int, ok bool) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid round"))
		return 0, 0, false
	}
	pickNum, err = strconv.Atoi(chi.URLParam(r, "pick"))
	if err != nil || pickNum < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid pick"))
		return 0, 0, false
	}
	return round, pickNum, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pick.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, pick.ErrOwnershipConflict), errors.Is(err, pick.ErrAlreadyUsed):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, engine.ErrUnknownTeam):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		log.Error().Err(err).Msg("draft request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
