// Package bus carries change notifications between writers and the engine's
// read-and-decide loop. Production deployments use the NATS implementation;
// tests and single-process setups use the in-process one.
package bus

import (
	"context"
	"sync"

	"github.com/hooplab/draftroom/go/internal/draft/events"
)

// Handler receives a change notification. Handlers must not block; slow work
// belongs behind a channel (see engine.Listener).
type Handler func(events.Change)

// Bus publishes and subscribes to collaborator change notifications.
type Bus interface {
	Publish(ctx context.Context, change events.Change) error
	// Subscribe registers a handler for one change kind and returns an
	// unsubscribe function.
	Subscribe(kind events.ChangeKind, h Handler) (func(), error)
	Close()
}

// InProcess is a Bus that dispatches synchronously within one process.
type InProcess struct {
	mu       sync.RWMutex
	handlers map[events.ChangeKind][]*inProcSub
	closed   bool
}

type inProcSub struct {
	h Handler
}

// NewInProcess creates an in-process bus.
func NewInProcess() *InProcess {
	return &InProcess{
		handlers: make(map[events.ChangeKind][]*inProcSub),
	}
}

func (b *InProcess) Publish(_ context.Context, change events.Change) error {
	b.mu.RLock()
	subs := make([]*inProcSub, len(b.handlers[change.Kind]))
	copy(subs, b.handlers[change.Kind])
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(change)
	}
	return nil
}

func (b *InProcess) Subscribe(kind events.ChangeKind, h Handler) (func(), error) {
	sub := &inProcSub{h: h}

	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[kind]
		for i, s := range subs {
			if s == sub {
				b.handlers[kind] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}, nil
}

func (b *InProcess) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[events.ChangeKind][]*inProcSub)
	b.closed = true
}
