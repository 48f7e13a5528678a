package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	cart     *Cart
	lastUsed time.Time
}

// Sessions maps billing session IDs to their carts. Each cart belongs to a
// single terminal session, but sessions come and go concurrently, so the
// registry itself is locked. Because stock is never reserved before
// settlement, dropping an abandoned cart releases nothing and loses nothing.
type Sessions struct {
	mu    sync.RWMutex
	ttl   time.Duration
	carts map[string]*session
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:   ttl,
		carts: make(map[string]*session),
	}
}

// Create opens a new billing session with an empty cart.
func (s *Sessions) Create() (string, *Cart) {
	id := uuid.NewString()
	cart := NewCart()

	s.mu.Lock()
	s.carts[id] = &session{cart: cart, lastUsed: time.Now()}
	s.mu.Unlock()

	return id, cart
}

func (s *Sessions) Get(id string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.carts[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.lastUsed = time.Now()
	return sess.cart, nil
}

// Abandon drops a session and its cart.
func (s *Sessions) Abandon(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[id]; !ok {
		return ErrSessionNotFound
	}

	delete(s.carts, id)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}

// Sweep removes sessions idle longer than the TTL and reports how many were
// dropped.
func (s *Sessions) Sweep() int {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.carts {
		if sess.lastUsed.Before(cutoff) {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until the context is cancelled.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
