package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/cloudbot/core/config"
	"github.com/m3rciful/cloudbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions carries the hooks used by DefaultMiddlewares.
type MiddlewareOptions struct {
	Metrics   *middleware.Metrics
	OnLimited tele.HandlerFunc
	OnDenied  tele.HandlerFunc
}

// DefaultMiddlewares builds the shared middleware chain. Logging runs first
// so that every later stage, including rejections, logs with the update rid.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "metrics", Use: opts.Metrics.Middleware},
	}
	if cfg == nil {
		return mws
	}

	mws = append(mws, Middleware{
		Name: "allowlist",
		Use: middleware.AllowlistMiddleware(middleware.AccessOptions{
			Allowed:  cfg.Telegram.Allowed,
			OnReject: opts.OnDenied,
			Metrics:  opts.Metrics,
		}),
	})

	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  interval,
				Exclude:   ex,
				OnLimited: opts.OnLimited,
				Metrics:   opts.Metrics,
			}),
		})
	}
	return mws
}
