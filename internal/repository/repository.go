package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// SlotRepository stores the serialized cart and wishlist slots of a
// session. Each slot is written and read as a whole.
type SlotRepository interface {
	// Load returns the stored bytes of a slot, or an error wrapping
	// apperrors.ErrNotFound when the slot has never been written or expired.
	Load(ctx context.Context, sessionID string, slot domain.Slot) ([]byte, error)

	// Save overwrites a slot.
	Save(ctx context.Context, sessionID string, slot domain.Slot, data []byte) error

	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, sessionID string, slot domain.Slot) error
}
