package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/engine"
	"github.com/hooplab/draftroom/go/internal/draft/events"
	"github.com/hooplab/draftroom/go/internal/schedule"
)

// PickClock broadcasts an informational per-pick countdown. It never expires
// a pick or auto-drafts; when the countdown reaches zero it simply stops
// ticking and the room waits for a human.
type PickClock struct {
	sink  Sink
	clock clockwork.Clock

	mu        sync.Mutex
	armed     bool
	overall   int
	teamID    string
	remaining int
}

func NewPickClock(sink Sink, clock clockwork.Clock) *PickClock {
	return &PickClock{sink: sink, clock: clock}
}

// Observe points the clock at the current live pick. Re-observing the same
// overall pick leaves the running countdown alone; a new pick rearms it.
func (pc *PickClock) Observe(live *engine.LiveStatus, timePerPickSec int) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if live.State != schedule.StateLive || live.Pick == nil || timePerPickSec <= 0 {
		pc.armed = false
		return
	}
	if pc.armed && pc.overall == live.Pick.OverallPick {
		return
	}

	pc.armed = true
	pc.overall = live.Pick.OverallPick
	pc.teamID = live.Pick.CurrentTeamID.String()
	pc.remaining = timePerPickSec

	log.Debug().
		Int("overall_pick", pc.overall).
		Int("time_per_pick_sec", timePerPickSec).
		Msg("pick clock armed")
}

// Run ticks once per second until ctx is cancelled.
func (pc *PickClock) Run(ctx context.Context) {
	ticker := pc.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			pc.tick()
		}
	}
}

func (pc *PickClock) tick() {
	pc.mu.Lock()
	if !pc.armed || pc.remaining <= 0 {
		pc.mu.Unlock()
		return
	}
	pc.remaining--
	payload := events.TimerTickPayload{
		OverallPick:      pc.overall,
		TeamID:           pc.teamID,
		TimeRemainingSec: pc.remaining,
		TickedAt:         pc.clock.Now().UTC(),
	}
	if pc.remaining == 0 {
		pc.armed = false
	}
	pc.mu.Unlock()

	event, err := NewEvent(EventTypeTimerTick, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build timer tick event")
		return
	}
	pc.sink.Broadcast(event)
}
