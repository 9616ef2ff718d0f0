package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/bus"
	"github.com/hooplab/draftroom/go/internal/draft/events"
)

// Subscriber is the receive side of the change bus.
type Subscriber interface {
	Subscribe(kind events.ChangeKind, h bus.Handler) (func(), error)
}

// Listener drives the engine's read-and-decide cycle from change
// notifications. Notification bursts coalesce into a single pending cycle;
// cycles run one at a time, so the engine never races itself.
type Listener struct {
	engine *Engine
	bus    Subscriber
	kick   chan struct{}
}

func NewListener(engine *Engine, b Subscriber) *Listener {
	return &Listener{
		engine: engine,
		bus:    b,
		kick:   make(chan struct{}, 1),
	}
}

// Run subscribes to all change kinds and loops until ctx is cancelled. A
// cycle runs immediately on startup so a fresh process converges without
// waiting for the first notification.
func (l *Listener) Run(ctx context.Context) error {
	kinds := []events.ChangeKind{events.ChangeSettings, events.ChangeTeams, events.ChangePicks}
	for _, kind := range kinds {
		unsub, err := l.bus.Subscribe(kind, func(events.Change) {
			select {
			case l.kick <- struct{}{}:
			default: // a cycle is already pending
			}
		})
		if err != nil {
			return err
		}
		defer unsub()
	}

	log.Info().Str("instance", l.engine.InstanceID()).Msg("draft change listener started")
	l.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", l.engine.InstanceID()).Msg("draft change listener shutting down")
			return nil
		case <-l.kick:
			l.cycle(ctx)
		}
	}
}

func (l *Listener) cycle(ctx context.Context) {
	if err := l.engine.Sync(ctx); err != nil {
		// Collaborator I/O failures leave cached state untouched; the next
		// notification retriggers the cycle.
		log.Error().Err(err).Str("instance", l.engine.InstanceID()).Msg("sync cycle failed")
	}
}
