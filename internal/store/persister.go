package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// SlotWriter stores a serialized slot.
type SlotWriter interface {
	Save(ctx context.Context, sessionID string, slot domain.Slot, data []byte) error
}

// PersistedFunc is called after a snapshot has been written.
type PersistedFunc func(ctx context.Context, slot domain.Slot, version uint64)

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithOnPersisted registers fn to run after every successful write.
func WithOnPersisted(fn PersistedFunc) PersisterOption {
	return func(p *Persister) { p.onPersisted = fn }
}

// WithWriteTimeout bounds each backend write.
func WithWriteTimeout(d time.Duration) PersisterOption {
	return func(p *Persister) { p.writeTimeout = d }
}

// Persister writes a session's changes to a SlotWriter in the background.
// Pending changes are coalesced per slot so only the latest snapshot is
// written. Write failures are logged and counted; the in-memory state is
// kept and the next change retries the slot.
//
// Changes with OriginExternal are not written back.
type Persister struct {
	sessionID    string
	writer       SlotWriter
	logger       *slog.Logger
	onPersisted  PersistedFunc
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[domain.Slot]Change
	written map[domain.Slot]uint64

	// writeMu serializes drains so an older snapshot never lands after a
	// newer one.
	writeMu sync.Mutex

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewPersister returns a Persister for sessionID. Call Start to begin
// writing and Close to flush and stop.
func NewPersister(sessionID string, writer SlotWriter, logger *slog.Logger, opts ...PersisterOption) *Persister {
	p := &Persister{
		sessionID:    sessionID,
		writer:       writer,
		logger:       logger,
		writeTimeout: 5 * time.Second,
		pending:      make(map[domain.Slot]Change, len(domain.Slots)),
		written:      make(map[domain.Slot]uint64, len(domain.Slots)),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Observe is a Subscriber. It never blocks.
//
// An external change already reflects what the backend holds, so it
// supersedes any older local snapshot still waiting to be written.
func (p *Persister) Observe(ch Change) {
	p.mu.Lock()
	if ch.Origin == OriginExternal {
		delete(p.pending, ch.Slot)
		if ch.Version > p.written[ch.Slot] {
			p.written[ch.Slot] = ch.Version
		}
		p.mu.Unlock()
		return
	}
	p.pending[ch.Slot] = ch
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Attach subscribes the persister to s and starts it.
func (p *Persister) Attach(s *Store) (detach func()) {
	unsubscribe := s.Subscribe(p.Observe)
	p.Start()
	return unsubscribe
}

// Start launches the background writer.
func (p *Persister) Start() {
	go p.run()
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
			p.drain(context.Background())
		}
	}
}

// Flush writes every pending snapshot before returning.
func (p *Persister) Flush(ctx context.Context) {
	p.drain(ctx)
}

// Close stops the background writer and flushes what is pending.
func (p *Persister) Close(ctx context.Context) {
	p.once.Do(func() {
		close(p.stop)
	})
	select {
	case <-p.done:
	case <-ctx.Done():
	}
	p.drain(ctx)
}

// Pending reports how many slots have unwritten changes.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Persister) drain(ctx context.Context) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[domain.Slot]Change, len(domain.Slots))
	p.mu.Unlock()

	for _, slot := range domain.Slots {
		ch, ok := batch[slot]
		if !ok {
			continue
		}
		if p.write(ctx, ch) {
			p.markWritten(ch)
		}
	}
}

// superseded reports whether a newer state of ch.Slot is already stored.
func (p *Persister) superseded(ch Change) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ch.Version <= p.written[ch.Slot]
}

func (p *Persister) markWritten(ch Change) {
	p.mu.Lock()
	if ch.Version > p.written[ch.Slot] {
		p.written[ch.Slot] = ch.Version
	}
	p.mu.Unlock()
}

func (p *Persister) write(ctx context.Context, ch Change) bool {
	slot := string(ch.Slot)

	data, err := EncodeChange(ch)
	if err != nil {
		persistFailures.WithLabelValues(slot).Inc()
		p.logger.ErrorContext(ctx, "encode slot snapshot",
			slog.String("session_id", p.sessionID),
			slog.String("slot", slot),
			slog.String("error", err.Error()),
		)
		return false
	}

	if p.superseded(ch) {
		return false
	}

	wctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.Save(wctx, p.sessionID, ch.Slot, data); err != nil {
		persistFailures.WithLabelValues(slot).Inc()
		p.logger.ErrorContext(ctx, "persist slot failed, keeping in-memory state",
			slog.String("session_id", p.sessionID),
			slog.String("slot", slot),
			slog.Uint64("version", ch.Version),
			slog.String("error", err.Error()),
		)
		return false
	}

	persistWrites.WithLabelValues(slot).Inc()
	if p.onPersisted != nil {
		p.onPersisted(ctx, ch.Slot, ch.Version)
	}
	return true
}
