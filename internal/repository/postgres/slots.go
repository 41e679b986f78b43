package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/database"
)

const (
	loadSlotSQL = `
		SELECT data
		FROM session_slots
		WHERE session_id = $1 AND slot = $2
		  AND (expires_at IS NULL OR expires_at > NOW())`

	saveSlotSQL = `
		INSERT INTO session_slots (session_id, slot, data, updated_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (session_id, slot)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW(), expires_at = EXCLUDED.expires_at`

	deleteSlotSQL = `DELETE FROM session_slots WHERE session_id = $1 AND slot = $2`

	purgeExpiredSQL = `DELETE FROM session_slots WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
)

// SlotRepository implements repository.SlotRepository on the session_slots
// table. Slots are stored as JSONB and upserted whole.
type SlotRepository struct {
	db  database.DBTX
	ttl time.Duration
	now func() time.Time
}

// NewSlotRepository returns a repository using db. A zero ttl stores slots
// without an expiry.
func NewSlotRepository(db database.DBTX, ttl time.Duration) *SlotRepository {
	return &SlotRepository{db: db, ttl: ttl, now: time.Now}
}

func (r *SlotRepository) Load(ctx context.Context, sessionID string, slot domain.Slot) (data []byte, err error) {
	ctx, end := database.TraceQuery(ctx, "LoadSlot", loadSlotSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, loadSlotSQL, sessionID, string(slot)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("slot", sessionID+"/"+string(slot))
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return data, nil
}

func (r *SlotRepository) Save(ctx context.Context, sessionID string, slot domain.Slot, data []byte) (err error) {
	ctx, end := database.TraceQuery(ctx, "SaveSlot", saveSlotSQL)
	defer func() { end(err) }()

	var expiresAt *time.Time
	if r.ttl > 0 {
		t := r.now().UTC().Add(r.ttl)
		expiresAt = &t
	}

	if _, err = r.db.Exec(ctx, saveSlotSQL, sessionID, string(slot), data, expiresAt); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, sessionID string, slot domain.Slot) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteSlot", deleteSlotSQL)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, deleteSlotSQL, sessionID, string(slot)); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// PurgeExpired deletes expired slots and returns how many were removed.
func (r *SlotRepository) PurgeExpired(ctx context.Context) (n int64, err error) {
	ctx, end := database.TraceQuery(ctx, "PurgeExpiredSlots", purgeExpiredSQL)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, purgeExpiredSQL)
	if err != nil {
		return 0, fmt.Errorf("purge expired slots: %w", err)
	}
	return tag.RowsAffected(), nil
}
