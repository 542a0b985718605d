package middleware

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/cloudbot/core/logger"
	"github.com/m3rciful/cloudbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/cloudbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware logs a single receipt line per update and sets rid.
// Text of messages is never logged: dialog replies may carry credentials.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		start := time.Now()

		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component(logger.ComponentTG))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.Int("update_id", upd.ID),
			}
			if chatID != 0 {
				attrs = append(attrs, slog.Int64("chat_id", chatID), slog.String("chat_type", string(chat.Type)))
			}
			if userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", userID))
				if user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}

			switch {
			case upd.Callback != nil:
				key, args := parseCallback(upd.Callback)
				if key != "" {
					attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
				}
				if args != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(args, 256)))
				}
			case upd.Message != nil:
				if t := c.Text(); strings.HasPrefix(t, "/") {
					attrs = append(attrs, slog.String("command", logger.SanitizeLimit(strings.Fields(t)[0], 64)))
				} else {
					attrs = append(attrs, slog.Int("text_len", len(t)))
				}
			}
			logger.LogEvent(ctx, logger.Component(logger.ComponentTG), slog.LevelDebug, "update.received", attrs...)
		}

		err := next(c)
		logger.Debug(ctx, logger.ComponentTG, "update.done",
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return err
	}
}

func parseCallback(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	p, err := callbacks.Decode(cb.Data)
	if err != nil {
		return "malformed", ""
	}
	return p.Key(), strings.Join(p.Args, "|")
}
