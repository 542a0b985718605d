package middleware

import (
	"log/slog"

	"github.com/m3rciful/cloudbot/core/logger"
	tghelpers "github.com/m3rciful/cloudbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AccessOptions defines how the allowlist check should behave.
type AccessOptions struct {
	// Allowed reports whether a user may reach the console. Nil allows everyone.
	Allowed  func(userID int64) bool
	OnReject tele.HandlerFunc
	Metrics  *Metrics
}

// AllowlistMiddleware drops updates from users that Allowed rejects.
func AllowlistMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Allowed == nil {
				return next(c)
			}
			user := c.Sender()
			if user != nil && opts.Allowed(user.ID) {
				return next(c)
			}
			var userID int64
			if user != nil {
				userID = user.ID
			}
			opts.Metrics.incDenied()
			logger.Warn(tghelpers.BuildContext(c), logger.ComponentTG, "access.denied",
				slog.Int64("user_id", userID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
