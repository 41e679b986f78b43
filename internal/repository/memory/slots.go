package memory

import (
	"context"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type slotKey struct {
	session string
	slot    domain.Slot
}

// SlotRepository keeps slots in process memory. It is meant for local
// development and tests; nothing survives a restart.
type SlotRepository struct {
	mu    sync.RWMutex
	slots map[slotKey][]byte
}

func NewSlotRepository() *SlotRepository {
	return &SlotRepository{slots: make(map[slotKey][]byte)}
}

func (r *SlotRepository) Load(_ context.Context, sessionID string, slot domain.Slot) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.slots[slotKey{sessionID, slot}]
	if !ok {
		return nil, apperrors.NotFound("slot", sessionID+"/"+string(slot))
	}
	return append([]byte(nil), data...), nil
}

func (r *SlotRepository) Save(_ context.Context, sessionID string, slot domain.Slot, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slotKey{sessionID, slot}] = append([]byte(nil), data...)
	return nil
}

func (r *SlotRepository) Delete(_ context.Context, sessionID string, slot domain.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, slotKey{sessionID, slot})
	return nil
}

// Len is the number of stored slots.
func (r *SlotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}
