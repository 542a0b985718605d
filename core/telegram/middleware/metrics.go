package middleware

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/cloudbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Metrics counts processed updates. A nil *Metrics ignores all calls.
type Metrics struct {
	updates   atomic.Int64
	messages  atomic.Int64
	callbacks atomic.Int64
	failed    atomic.Int64
	limited   atomic.Int64
	denied    atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Updates   int64
	Messages  int64
	Callbacks int64
	Failed    int64
	Limited   int64
	Denied    int64
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics { return &Metrics{} }

// Middleware counts every update that reaches it and the ones whose handler failed.
func (m *Metrics) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if m == nil {
			return next(c)
		}
		m.updates.Add(1)
		upd := c.Update()
		switch {
		case upd.Callback != nil:
			m.callbacks.Add(1)
		case upd.Message != nil:
			m.messages.Add(1)
		}
		err := next(c)
		if err != nil {
			m.failed.Add(1)
		}
		return err
	}
}

// RecordFailure counts a handler error raised outside the middleware chain.
func (m *Metrics) RecordFailure() {
	if m != nil {
		m.failed.Add(1)
	}
}

func (m *Metrics) incLimited() {
	if m != nil {
		m.limited.Add(1)
	}
}

func (m *Metrics) incDenied() {
	if m != nil {
		m.denied.Add(1)
	}
}

// Snapshot reads all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Updates:   m.updates.Load(),
		Messages:  m.messages.Load(),
		Callbacks: m.callbacks.Load(),
		Failed:    m.failed.Load(),
		Limited:   m.limited.Load(),
		Denied:    m.denied.Load(),
	}
}

// LogSummary writes the counters as a single info line.
func (m *Metrics) LogSummary(ctx context.Context) {
	s := m.Snapshot()
	logger.Info(ctx, logger.ComponentTG, "tg.summary",
		slog.Int64("updates", s.Updates),
		slog.Int64("messages", s.Messages),
		slog.Int64("callbacks", s.Callbacks),
		slog.Int64("failed", s.Failed),
		slog.Int64("limited", s.Limited),
		slog.Int64("denied", s.Denied),
	)
}
