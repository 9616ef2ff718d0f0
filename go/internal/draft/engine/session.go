package engine

import "sync"

// Session owns the "already bootstrapped" flag that suppresses duplicate
// schedule-generation inserts when overlapping change notifications arrive
// during a cold start. It is explicit per-process state, constructed once
// and handed to the engine, never a hidden package global. It provides no
// cross-process guarantee; clients on other machines coordinate only through
// the pick table itself.
type Session struct {
	mu           sync.Mutex
	bootstrapped bool
}

// NewSession creates a fresh session with no bootstrap recorded.
func NewSession() *Session {
	return &Session{}
}

// Bootstrapped reports whether this session has produced or verified a
// schedule.
func (s *Session) Bootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapped
}

// claim atomically marks the session bootstrapped and reports whether the
// caller won the claim. Exactly one caller per session wins.
func (s *Session) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bootstrapped {
		return false
	}
	s.bootstrapped = true
	return true
}

// release undoes a claim after a failed bootstrap insert so a later
// notification can retry.
func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootstrapped = false
}

// markBootstrapped records that a schedule already exists without claiming
// the bootstrap insert.
func (s *Session) markBootstrapped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootstrapped = true
}
