package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/oakfit/coursecast/internal/drip"
	"github.com/oakfit/coursecast/internal/log"
)

// Registry indexes live viewer sessions by ID and reaps idle ones.
type Registry struct {
	clock drip.Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry. clock may be nil for system time.
func NewRegistry(clock drip.Clock) *Registry {
	if clock == nil {
		clock = drip.SystemClock{}
	}
	return &Registry{
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	sessionsOpenedTotal.Inc()
	sessionsActive.Set(float64(r.Len()))
}

// Get looks a session up without touching its idle clock; handlers touch
// through the session methods they call.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops and closes the session. Returns false when unknown.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	sessionsClosedTotal.WithLabelValues("client").Inc()
	sessionsActive.Set(float64(r.Len()))
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepOnce closes every session idle for longer than ttl and returns how
// many were reaped.
func (r *Registry) SweepOnce(ttl time.Duration) int {
	now := r.clock.Now()

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if now.Sub(s.LastAccess()) > ttl {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	logger := log.WithComponent("viewer_sweeper")
	for _, s := range stale {
		logger.Info().
			Str(log.FieldSessionID, s.ID).
			Time("last_access", s.LastAccess()).
			Msg("reaping idle viewer session")
		s.Close()
		sessionsClosedTotal.WithLabelValues("idle").Inc()
	}
	if len(stale) > 0 {
		sessionsActive.Set(float64(r.Len()))
	}
	return len(stale)
}

// RunSweeper ticks SweepOnce until ctx is done, then closes everything.
func (r *Registry) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	logger := log.WithComponent("viewer_sweeper")
	logger.Info().
		Dur("interval", interval).
		Dur("ttl", ttl).
		Msg("viewer session sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			logger.Info().Msg("viewer session sweeper stopped")
			return
		case <-ticker.C:
			r.SweepOnce(ttl)
		}
	}
}

// CloseAll tears down every live session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
		sessionsClosedTotal.WithLabelValues("shutdown").Inc()
	}
	sessionsActive.Set(0)
}
