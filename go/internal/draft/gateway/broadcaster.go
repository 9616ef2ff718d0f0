package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/bus"
	"github.com/hooplab/draftroom/go/internal/draft/engine"
	"github.com/hooplab/draftroom/go/internal/draft/events"
	"github.com/hooplab/draftroom/go/internal/models"
)

// LiveSource derives the current "on the clock" position.
type LiveSource interface {
	LivePick(ctx context.Context) (*engine.LiveStatus, error)
}

// ChangeFeed is the receive side of the change bus.
type ChangeFeed interface {
	Subscribe(kind events.ChangeKind, h bus.Handler) (func(), error)
}

// SettingsSource reads draft configuration. Optional; without it the
// broadcast omits the pick-clock duration.
type SettingsSource interface {
	Get(ctx context.Context) (*models.DraftSettings, error)
}

// Broadcaster turns change notifications into LivePickChanged pushes. It
// re-derives the live position on every change rather than trusting the
// notification, so out-of-order or duplicated notifications cannot skew what
// clients see.
type Broadcaster struct {
	source   LiveSource
	feed     ChangeFeed
	sink     Sink
	settings SettingsSource
	clock    *PickClock // optional

	kick chan struct{}
}

func NewBroadcaster(source LiveSource, feed ChangeFeed, sink Sink, settings SettingsSource, clock *PickClock) *Broadcaster {
	return &Broadcaster{
		source:   source,
		feed:     feed,
		sink:     sink,
		settings: settings,
		clock:    clock,
		kick:     make(chan struct{}, 1),
	}
}

// Run subscribes to every change kind and pushes a fresh projection per
// burst until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	kinds := []events.ChangeKind{events.ChangeSettings, events.ChangeTeams, events.ChangePicks}
	for _, kind := range kinds {
		unsub, err := b.feed.Subscribe(kind, func(events.Change) {
			select {
			case b.kick <- struct{}{}:
			default: // a refresh is already pending
			}
		})
		if err != nil {
			return err
		}
		defer unsub()
	}

	log.Info().Msg("gateway broadcaster started")
	b.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.kick:
			b.refresh(ctx)
		}
	}
}

func (b *Broadcaster) refresh(ctx context.Context) {
	live, err := b.source.LivePick(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to derive live pick for broadcast")
		return
	}

	timePerPick := 0
	if b.settings != nil {
		if cfg, err := b.settings.Get(ctx); err == nil {
			timePerPick = cfg.TimePerPickSec
		}
	}

	payload := events.LivePickPayload{
		State:          string(live.State),
		Index:          live.Index,
		TimePerPickSec: timePerPick,
	}
	if live.Pick != nil {
		payload.Round = live.Pick.Round
		payload.Pick = live.Pick.Pick
		payload.OverallPick = live.Pick.OverallPick
		payload.TeamID = live.Pick.CurrentTeamID.String()
	}

	event, err := NewEvent(EventTypeLivePickChanged, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build live pick event")
		return
	}
	b.sink.Broadcast(event)

	if b.clock != nil {
		b.clock.Observe(live, timePerPick)
	}
}
