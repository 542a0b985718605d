package middleware

import (
	"log/slog"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/cloudbot/core/config"
	"github.com/m3rciful/cloudbot/core/logger"
	tghelpers "github.com/m3rciful/cloudbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	Metrics   *Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		userLastSeen   = make(map[int64]time.Time)
		userLastSeenMu sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}

			ts := now()

			userLastSeenMu.Lock()
			if last, ok := userLastSeen[user.ID]; ok && ts.Sub(last) < opts.Interval {
				userLastSeenMu.Unlock()
				opts.Metrics.incLimited()
				logger.Warn(tghelpers.BuildContext(c), logger.ComponentTG, "tg.rate_limit",
					slog.Int64("user_id", user.ID),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			userLastSeen[user.ID] = ts
			// entries older than the interval no longer limit anybody
			if len(userLastSeen) > 1024 {
				for id, last := range userLastSeen {
					if ts.Sub(last) >= opts.Interval {
						delete(userLastSeen, id)
					}
				}
			}
			userLastSeenMu.Unlock()
			return next(c)
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.Query != nil:
		return coreconfig.UpdateInlineQuery
	}
	return "other"
}
