// Package journal records the outcome of every terminal console operation.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/cloudbot/core/logger"
)

// Outcome values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ErrQueueFull is returned when the recorder cannot accept more entries.
var ErrQueueFull = errors.New("journal: queue full")

// Entry is one finished operation.
type Entry struct {
	ID         uuid.UUID `db:"id"`
	UserID     int64     `db:"user_id"`
	Module     string    `db:"module"`
	Action     string    `db:"action"`
	Outcome    string    `db:"outcome"`
	ResourceID string    `db:"resource_id"`
	ErrorCode  string    `db:"error_code"`
	ErrorMsg   string    `db:"error_msg"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns the newest entries of a user, newest first.
	Recent(ctx context.Context, userID int64, limit int) ([]Entry, error)
}

// Recorder writes entries to a Store in the background so handlers never
// wait on the database.
type Recorder struct {
	store   Store
	queue   chan Entry
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	now     func() time.Time
}

// NewRecorder starts a recorder with a queue of size entries.
func NewRecorder(store Store, size int) *Recorder {
	if size <= 0 {
		size = 128
	}
	r := &Recorder{
		store:   store,
		queue:   make(chan Entry, size),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go r.loop()
	return r
}

// Submit fills in the id and timestamp and enqueues e.
func (r *Recorder) Submit(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrQueueFull
	}
	select {
	case r.queue <- e:
		return nil
	default:
		logger.Warn(ctx, logger.ComponentJournal, "journal.drop",
			slog.String("status", "skip"),
			slog.String("module", e.Module),
			slog.String("action", e.Action),
		)
		return ErrQueueFull
	}
}

// Recent reads through to the store.
func (r *Recorder) Recent(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	return r.store.Recent(ctx, userID, limit)
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		start := time.Now()
		err := r.store.Record(ctx, e)
		cancel()
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("module", e.Module),
			slog.String("action", e.Action),
			slog.Int64("user_id", e.UserID),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			logger.Error(ctx, logger.ComponentJournal, "journal.write", append(attrs, slog.String("err", err.Error()))...)
			continue
		}
		logger.Debug(ctx, logger.ComponentJournal, "journal.write", attrs...)
	}
}
