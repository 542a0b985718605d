package telegram

import (
	"errors"
	"sync"
)

// ErrInboxClosed is returned for events that arrive after shutdown began.
var ErrInboxClosed = errors.New("telegram: inbox closed")

// InboxOptions sizes the inbound event queue.
type InboxOptions struct {
	// Workers is the number of shards; one goroutine owns a shard.
	Workers int
	// QueueSize is the capacity of each shard.
	QueueSize int
}

// Inbox runs console events on shards keyed by user id. The events of one
// user are handled one at a time, in the order they were enqueued; different
// users proceed in parallel.
type Inbox struct {
	shards []chan func()
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewInbox starts the shard workers.
func NewInbox(opts InboxOptions) *Inbox {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	in := &Inbox{shards: make([]chan func(), opts.Workers)}
	in.wg.Add(opts.Workers)
	for i := range in.shards {
		in.shards[i] = make(chan func(), opts.QueueSize)
		go in.worker(in.shards[i])
	}
	return in
}

func (in *Inbox) shard(userID int64) chan func() {
	n := int64(len(in.shards))
	i := userID % n
	if i < 0 {
		i += n
	}
	return in.shards[i]
}

// Enqueue schedules run on the user's shard. A full shard blocks the caller,
// which holds back the poller instead of dropping the event.
func (in *Inbox) Enqueue(userID int64, run func()) error {
	if run == nil {
		return errors.New("telegram: nil inbox job")
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.closed {
		return ErrInboxClosed
	}
	in.shard(userID) <- run
	return nil
}

// Close stops accepting events and waits for the queued ones.
func (in *Inbox) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	for _, ch := range in.shards {
		close(ch)
	}
	in.mu.Unlock()
	in.wg.Wait()
}

func (in *Inbox) worker(jobs <-chan func()) {
	defer in.wg.Done()
	for run := range jobs {
		run()
	}
}
