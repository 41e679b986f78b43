package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// SlotLoader reads a persisted slot. It returns an error wrapping
// apperrors.ErrNotFound when the slot was never written.
type SlotLoader interface {
	Load(ctx context.Context, sessionID string, slot domain.Slot) ([]byte, error)
}

// Open builds a Store from the persisted slots of sessionID, loading both
// slots concurrently. A missing or unreadable slot starts empty; a backend
// error is returned so that stored state is never overwritten by an empty
// collection.
func Open(ctx context.Context, loader SlotLoader, sessionID string, logger *slog.Logger) (*Store, error) {
	var (
		cart     domain.Cart
		wishlist domain.Wishlist
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		cart, err = loadSlot(ctx, loader, sessionID, domain.SlotCart, DecodeCart, logger)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		wishlist, err = loadSlot(ctx, loader, sessionID, domain.SlotWishlist, DecodeWishlist, logger)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return NewWithState(cart, wishlist), nil
}

func loadSlot[T any](
	ctx context.Context,
	loader SlotLoader,
	sessionID string,
	slot domain.Slot,
	decode func([]byte) (T, error),
	logger *slog.Logger,
) (T, error) {
	var zero T

	data, err := loader.Load(ctx, sessionID, slot)
	if errors.Is(err, apperrors.ErrNotFound) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("load %s slot: %w", slot, err)
	}

	v, err := decode(data)
	if err != nil {
		loadFallbacks.WithLabelValues(string(slot)).Inc()
		logger.WarnContext(ctx, "stored slot unreadable, starting empty",
			slog.String("session_id", sessionID),
			slog.String("slot", string(slot)),
			slog.String("error", err.Error()),
		)
		return zero, nil
	}
	return v, nil
}
