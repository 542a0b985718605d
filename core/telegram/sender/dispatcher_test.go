package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

func TestDispatcherKeepsChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 100})
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for chat := int64(1); chat <= 4; chat++ {
			chat, i := chat, i
			if err := d.Enqueue(context.Background(), chat, "send", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
	}
	d.Close()

	for chat, seq := range got {
		if len(seq) != 50 {
			t.Fatalf("chat %d ran %d jobs", chat, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("chat %d out of order at %d: %v", chat, i, seq)
			}
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	_ = d.Enqueue(context.Background(), 7, "send", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return dial
		}
		return nil
	})
	d.Close()
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("errors = %d", d.ErrorCount())
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), -5, "send", "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}
