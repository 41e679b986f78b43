package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/broadcast"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/store"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const openTimeout = 10 * time.Second

var (
	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "open_sessions",
		Help:      "Sessions currently held in memory.",
	})
	sessionEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "session_evictions_total",
		Help:      "Idle sessions flushed and dropped from memory.",
	})
)

// Registrar routes changes made by other instances to an open session.
type Registrar interface {
	Register(sessionID string, s *store.Store) (unregister func())
}

type nopRegistrar struct{}

func (nopRegistrar) Register(string, *store.Store) func() { return func() {} }

// session is one open store with its persister. Operations hold mu for
// reading; closing takes it for writing, so no mutation lands after the
// final flush. done is closed once the session has left the registry.
type session struct {
	id        string
	store     *store.Store
	persister *store.Persister
	release   func()

	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	lastUsed atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

// registry opens each session's store once and keeps it in memory until it
// has been idle for idleTimeout.
type registry struct {
	repo        repository.SlotRepository
	notifier    broadcast.Notifier
	registrar   Registrar
	logger      *slog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	opening  singleflight.Group
}

func (r *registry) lookup(sessionID string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// acquire returns the open session for sessionID with its read lock held.
// The caller must call sess.mu.RUnlock when done.
func (r *registry) acquire(ctx context.Context, sessionID string) (*session, error) {
	for {
		sess, err := r.get(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		sess.mu.RLock()
		if !sess.closed {
			sess.touch(r.now())
			return sess, nil
		}
		sess.mu.RUnlock()

		select {
		case <-sess.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *registry) get(ctx context.Context, sessionID string) (*session, error) {
	if sess, ok := r.lookup(sessionID); ok {
		return sess, nil
	}

	v, err, _ := r.opening.Do(sessionID, func() (any, error) {
		if sess, ok := r.lookup(sessionID); ok {
			return sess, nil
		}
		// Every waiter shares this open, so it outlives the first caller.
		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openTimeout)
		defer cancel()
		return r.open(openCtx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*session), nil
}

func (r *registry) open(ctx context.Context, sessionID string) (*session, error) {
	st, err := store.Open(ctx, r.repo, sessionID, r.logger)
	if err != nil {
		r.logger.ErrorContext(ctx, "open session failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Unavailable("session state is temporarily unavailable")
	}

	sess := &session{
		id:    sessionID,
		store: st,
		done:  make(chan struct{}),
		persister: store.NewPersister(sessionID, r.repo, r.logger,
			store.WithOnPersisted(r.announce(sessionID))),
	}
	sess.touch(r.now())

	detach := sess.persister.Attach(st)
	unregister := r.registrar.Register(sessionID, st)
	sess.release = func() {
		unregister()
		detach()
	}

	r.mu.Lock()
	r.sessions[sessionID] = sess
	openSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "session opened", slog.String("session_id", sessionID))
	return sess, nil
}

// announce tells other instances that a slot of sessionID was written.
func (r *registry) announce(sessionID string) store.PersistedFunc {
	return func(ctx context.Context, slot domain.Slot, version uint64) {
		if err := r.notifier.Notify(ctx, sessionID, slot, version); err != nil {
			r.logger.WarnContext(ctx, "broadcast slot change failed",
				slog.String("session_id", sessionID),
				slog.String("slot", string(slot)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// evictIdle closes every session idle for longer than the idle timeout and
// returns how many were closed.
func (r *registry) evictIdle(ctx context.Context) int {
	now := r.now()

	r.mu.Lock()
	var idle []*session
	for _, sess := range r.sessions {
		if sess.idleSince(now) > r.idleTimeout {
			idle = append(idle, sess)
		}
	}
	r.mu.Unlock()

	for _, sess := range idle {
		r.close(ctx, sess)
		sessionEvictions.Inc()
	}
	return len(idle)
}

// closeAll flushes and drops every session.
func (r *registry) closeAll(ctx context.Context) {
	r.mu.Lock()
	all := make([]*session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	r.mu.Unlock()

	for _, sess := range all {
		r.close(ctx, sess)
	}
}

// close flushes sess and then removes it from the registry. Requests that
// arrive meanwhile wait on sess.done and reopen from the flushed state.
func (r *registry) close(ctx context.Context, sess *session) {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.closed = true
	sess.mu.Unlock()

	sess.release()
	sess.persister.Close(ctx)

	r.mu.Lock()
	if r.sessions[sess.id] == sess {
		delete(r.sessions, sess.id)
	}
	openSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	close(sess.done)
}

// runEvictor evicts idle sessions every interval until ctx is canceled.
func (r *registry) runEvictor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if n := r.evictIdle(flushCtx); n > 0 {
				r.logger.Debug("evicted idle sessions", slog.Int("count", n))
			}
			cancel()
		}
	}
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
