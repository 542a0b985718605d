package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b
}

func textUpdate(id int, userID int64) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Text:   "hello",
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
	}}
}

func callbackUpdate(id int, userID int64) tele.Update {
	return tele.Update{ID: id, Callback: &tele.Callback{
		Data:   "\fvpc|list",
		Sender: &tele.User{ID: userID},
	}}
}

func TestRateLimitPerUser(t *testing.T) {
	b := newBot(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMetrics()
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Metrics:   m,
		Now:       func() time.Time { return clock },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(b.NewContext(textUpdate(1, 10)))
	_ = h(b.NewContext(textUpdate(2, 10)))
	_ = h(b.NewContext(textUpdate(3, 11)))
	clock = clock.Add(time.Second)
	_ = h(b.NewContext(textUpdate(4, 10)))

	if calls != 3 || limited != 1 {
		t.Fatalf("calls = %d, limited = %d", calls, limited)
	}
	if got := m.Snapshot().Limited; got != 1 {
		t.Fatalf("limited counter = %d", got)
	}
}

func TestRateLimitExcludesCallbacks(t *testing.T) {
	b := newBot(t)
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		_ = h(b.NewContext(callbackUpdate(i, 10)))
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestAllowlistRejectsUnknownUsers(t *testing.T) {
	b := newBot(t)
	m := NewMetrics()
	rejected := 0
	mw := AllowlistMiddleware(AccessOptions{
		Allowed:  func(id int64) bool { return id == 10 },
		OnReject: func(tele.Context) error { rejected++; return nil },
		Metrics:  m,
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(b.NewContext(textUpdate(1, 10)))
	_ = h(b.NewContext(textUpdate(2, 99)))

	if calls != 1 || rejected != 1 || m.Snapshot().Denied != 1 {
		t.Fatalf("calls = %d, rejected = %d, snapshot = %+v", calls, rejected, m.Snapshot())
	}
}

func TestMetricsCountsKindsAndFailures(t *testing.T) {
	b := newBot(t)
	m := NewMetrics()
	boom := errors.New("boom")
	h := m.Middleware(func(c tele.Context) error {
		if c.Callback() != nil {
			return boom
		}
		return nil
	})
	_ = h(b.NewContext(textUpdate(1, 10)))
	if err := h(b.NewContext(callbackUpdate(2, 10))); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	want := MetricsSnapshot{Updates: 2, Messages: 1, Callbacks: 1, Failed: 1}
	if got := m.Snapshot(); got != want {
		t.Fatalf("snapshot = %+v, want %+v", got, want)
	}

	var nilMetrics *Metrics
	if err := nilMetrics.Middleware(func(tele.Context) error { return nil })(b.NewContext(textUpdate(3, 10))); err != nil {
		t.Fatalf("nil metrics: %v", err)
	}
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	b := newBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("kaboom") })
	if err := h(b.NewContext(textUpdate(1, 10))); err == nil {
		t.Fatal("panic must surface as error")
	}
}

func TestParseCallbackUsesPayloadLayout(t *testing.T) {
	key, args := parseCallback(&tele.Callback{Data: "\fsubnet|delete|do|s-1"})
	if key != "subnet|delete" || args != "do|s-1" {
		t.Fatalf("key = %q, args = %q", key, args)
	}
	if key, _ := parseCallback(&tele.Callback{Data: "garbage"}); key != "malformed" {
		t.Fatalf("key = %q", key)
	}
}
