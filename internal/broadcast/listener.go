package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/store"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var reconciled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storefront",
	Name:      "broadcast_reconciled_total",
	Help:      "Slots replaced after another instance persisted them.",
}, []string{"slot"})

// Listener subscribes to Channel and replaces the state of registered
// sessions when another instance persists one of their slots.
type Listener struct {
	client redis.UniversalClient
	loader store.SlotLoader
	origin string
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*store.Store

	ready     chan struct{}
	readyOnce sync.Once
}

// NewListener returns a listener that ignores notices stamped with origin.
func NewListener(client redis.UniversalClient, loader store.SlotLoader, origin string, logger *slog.Logger) *Listener {
	return &Listener{
		client:   client,
		loader:   loader,
		origin:   origin,
		logger:   logger,
		sessions: make(map[string]*store.Store),
		ready:    make(chan struct{}),
	}
}

// Register routes notices for sessionID to s until unregister is called.
func (l *Listener) Register(sessionID string, s *store.Store) (unregister func()) {
	l.mu.Lock()
	l.sessions[sessionID] = s
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		if l.sessions[sessionID] == s {
			delete(l.sessions, sessionID)
		}
		l.mu.Unlock()
	}
}

// Ready is closed once the subscription is confirmed.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

// Run consumes notices until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	ps := l.client.Subscribe(ctx, Channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	l.readyOnce.Do(func() { close(l.ready) })
	l.logger.InfoContext(ctx, "listening for slot changes", slog.String("channel", Channel))

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	var n Notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		l.logger.WarnContext(ctx, "discarding malformed slot notice", slog.String("error", err.Error()))
		return
	}
	if n.Origin == l.origin || !n.Slot.Valid() {
		return
	}

	l.mu.RLock()
	s, ok := l.sessions[n.SessionID]
	l.mu.RUnlock()
	if !ok {
		return
	}

	if err := Reload(ctx, l.loader, n.SessionID, n.Slot, s); err != nil {
		l.logger.ErrorContext(ctx, "reload slot after remote change",
			slog.String("session_id", n.SessionID),
			slog.String("slot", string(n.Slot)),
			slog.String("error", err.Error()),
		)
		return
	}
	reconciled.WithLabelValues(string(n.Slot)).Inc()
}

// Reload reads slot from loader and replaces it wholesale in s. A slot that
// no longer exists replaces the collection with an empty one; a slot that
// cannot be decoded leaves s untouched.
func Reload(ctx context.Context, loader store.SlotLoader, sessionID string, slot domain.Slot, s *store.Store) error {
	data, err := loader.Load(ctx, sessionID, slot)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		data = nil
	case err != nil:
		return err
	}

	switch slot {
	case domain.SlotCart:
		var cart domain.Cart
		if data != nil {
			if cart, err = store.DecodeCart(data); err != nil {
				return fmt.Errorf("decode cart: %w", err)
			}
		}
		s.ReplaceCart(cart)
	case domain.SlotWishlist:
		var wishlist domain.Wishlist
		if data != nil {
			if wishlist, err = store.DecodeWishlist(data); err != nil {
				return fmt.Errorf("decode wishlist: %w", err)
			}
		}
		s.ReplaceWishlist(wishlist)
	}
	return nil
}
