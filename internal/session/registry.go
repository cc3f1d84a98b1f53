// Package session keeps one booking transaction per browser session.  Each
// session owns its own orchestrator, seat catalog and payment widget; the
// backend client, ledger, lock and event publisher are shared.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/booking"
	"github.com/Yusuf8760/bus-booking-frontend/internal/catalog"
	"github.com/Yusuf8760/bus-booking-frontend/internal/clock"
	"github.com/Yusuf8760/bus-booking-frontend/internal/orchestrator"
	"github.com/Yusuf8760/bus-booking-frontend/internal/payment"
	"github.com/Yusuf8760/bus-booking-frontend/internal/pricing"
)

// Backend is the inventory service as seen by one session.
type Backend interface {
	orchestrator.BusLister
	catalog.SeatSource
	pricing.OrderCreator
	booking.Booker
}

// Shared holds the collaborators every session uses.  Ledger, Locker and
// Notifier may be nil.
type Shared struct {
	Backend        Backend
	Ledger         booking.Ledger
	Locker         booking.Locker
	Notifier       orchestrator.Notifier
	Pricing        pricing.Settings
	Payment        payment.Settings
	ScriptURL      string
	ConfirmTimeout time.Duration
	LockTTL        time.Duration
	Clock          clock.Clock
	Log            *zap.Logger
}

// Session is one user's booking session.
type Session struct {
	ID        string
	UserName  string
	CreatedAt time.Time
	Orch      *orchestrator.Orchestrator
	Widget    *payment.SessionWidget

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds the live sessions.
type Registry struct {
	shared Shared
	ttl    time.Duration
	clock  clock.Clock
	log    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns a Registry whose sessions expire after ttl of
// inactivity.
func NewRegistry(shared Shared, ttl time.Duration) *Registry {
	if shared.Clock == nil {
		shared.Clock = clock.NewSystem()
	}
	if shared.Log == nil {
		shared.Log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		shared:   shared,
		ttl:      ttl,
		clock:    shared.Clock,
		log:      shared.Log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for userName.
func (r *Registry) Create(userName string) *Session {
	id := uuid.NewString()
	now := r.clock.Now()
	s := &Session{ID: id, UserName: userName, CreatedAt: now, lastSeen: now}
	s.Orch, s.Widget = r.build(id)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	r.log.Info("session created", zap.String("session_id", id))
	return s
}

// Get returns the session with id and marks it used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(r.clock.Now())
	}
	return s, ok
}

// Delete ends a session, abandoning any checkout that has not reached
// confirmation.  A session that is confirming is kept until it settles.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if s.Orch.Cancel() != nil {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.  Sessions with a confirmation in flight are kept.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.LastSeen().After(cutoff) {
			continue
		}
		if s.Orch.Cancel() != nil {
			continue
		}
		delete(r.sessions, id)
		n++
	}
	if n > 0 {
		r.log.Info("expired sessions removed", zap.Int("count", n))
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// build wires the per-session components.
func (r *Registry) build(id string) (*orchestrator.Orchestrator, *payment.SessionWidget) {
	sh := r.shared
	log := sh.Log.With(zap.String("session_id", id))

	cat := catalog.New(sh.Backend, log)
	widget := payment.NewSessionWidget(sh.ScriptURL, sh.Payment.Key)
	opts := booking.Options{
		Ledger:    sh.Ledger,
		Locker:    sh.Locker,
		Refresher: cat,
		Timeout:   sh.ConfirmTimeout,
		LockTTL:   sh.LockTTL,
		Clock:     sh.Clock,
		Log:       log,
	}
	orch := orchestrator.New(orchestrator.Deps{
		Buses:     sh.Backend,
		Catalog:   cat,
		Quoter:    pricing.NewQuoter(sh.Backend, sh.Pricing, sh.Clock, log),
		Payments:  payment.NewCoordinator(widget, sh.Payment, log),
		Confirmer: booking.NewConfirmer(sh.Backend, opts),
		Notifier:  sh.Notifier,
		Log:       log,
	})
	return orch, widget
}
