// Package telegram adapts the console router to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/cloudbot/core/config"
	"github.com/m3rciful/cloudbot/core/logger"
	tghelpers "github.com/m3rciful/cloudbot/core/telegram/helpers"
	"github.com/m3rciful/cloudbot/core/telegram/middleware"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	tgsender "github.com/m3rciful/cloudbot/core/telegram/sender"
	"github.com/m3rciful/cloudbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Console is the transport-neutral side of the bot.
type Console interface {
	Dispatch(ctx context.Context, ev router.Event, reply ui.Responder) error
	Commands() []router.CommandInfo
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config  *coreconfig.Config
	Console Console

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher
	Inbox             InboxOptions

	Middlewares []Middleware
	// Metrics is summarized in the log on shutdown when set.
	Metrics *middleware.Metrics

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Console == nil {
		return errors.New("telegram: nil console provided")
	}

	cfg := opts.Config
	pollerOpts := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	poller := BuildPoller(pollerOpts)

	onError := handlerErrorLogger(ctx)
	settings := botSettings(cfg.Telegram.Token, poller, BuildHTTPClient(pollerOpts), onError)

	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := logger.Took(buildStart)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	rt := Runtime{Bot: bot, Dispatcher: dispatcher}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, logger.ComponentTG, "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", buildTook),
		)
	default:
		logger.Info(ctx, logger.ComponentTG, "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("timeout", pollerOpts.longPollTimeout()),
			slog.Duration("duration", buildTook),
		)
		if !opts.DisableWebhookCleanup {
			if err := bot.RemoveWebhook(false); err != nil {
				logger.Warn(ctx, logger.ComponentTG, "delete_webhook",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}

	inbox := NewInbox(opts.Inbox)
	// console errors surface after the middleware chain returned
	handler := dispatchHandler(opts.Console, dispatcher, inbox, func(err error, c tele.Context) {
		opts.Metrics.RecordFailure()
		onError(err, c)
	})
	bot.Handle(tele.OnText, handler)
	bot.Handle(tele.OnCallback, handler)

	setCommands(ctx, bot, opts.Console.Commands())

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			inbox.Close()
			dispatcher.Close()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}
	inbox.Close()

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	dispatcher.Close()
	if opts.Metrics != nil {
		opts.Metrics.LogSummary(context.WithoutCancel(ctx))
	}

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// botSettings runs handlers on the polling goroutine, so updates reach the
// inbox in the order Telegram delivered them.
func botSettings(token string, poller tele.Poller, client *http.Client, onError func(error, tele.Context)) tele.Settings {
	return tele.Settings{
		Token:       token,
		Poller:      poller,
		Client:      client,
		Synchronous: true,
		OnError:     onError,
	}
}

func handlerErrorLogger(ctx context.Context) func(error, tele.Context) {
	return func(err error, c tele.Context) {
		lctx := ctx
		if c != nil {
			lctx = tghelpers.BuildContext(c)
		}
		logger.Error(lctx, logger.ComponentTG, "tg.handler_error",
			slog.String("err", logger.SanitizeLimit(err.Error(), 512)),
		)
	}
}

// dispatchHandler forwards private-chat text and button presses to the
// console through the per-user inbox.
func dispatchHandler(console Console, dispatcher *tgsender.Dispatcher, inbox *Inbox, onError func(error, tele.Context)) tele.HandlerFunc {
	return func(c tele.Context) error {
		if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
			return nil
		}
		ev, ok := eventFrom(c)
		if !ok {
			return nil
		}
		ctx := tghelpers.BuildContext(c)
		return inbox.Enqueue(ev.UserID, func() {
			if err := console.Dispatch(ctx, ev, tghelpers.NewResponder(c, dispatcher)); err != nil && onError != nil {
				onError(err, c)
			}
		})
	}
}

func eventFrom(c tele.Context) (router.Event, bool) {
	user := c.Sender()
	if user == nil {
		return router.Event{}, false
	}
	ev := router.Event{UserID: user.ID}
	if cb := c.Callback(); cb != nil {
		// no callback endpoints are registered, so telebot leaves Data raw
		ev.Callback = true
		ev.Data = cb.Data
		return ev, true
	}
	ev.Text = c.Text()
	return ev, true
}

// setCommands publishes the visible commands in the Telegram command menu.
func setCommands(ctx context.Context, bot *tele.Bot, list []router.CommandInfo) {
	commands := make([]tele.Command, 0, len(list))
	for _, cmd := range list {
		commands = append(commands, tele.Command{
			Text:        strings.TrimPrefix(cmd.Name, "/"),
			Description: cmd.Description,
		})
	}
	if err := bot.SetCommands(commands); err != nil {
		logger.Error(ctx, "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "tg.wire", "register.commands",
		slog.Int("count", len(commands)),
	)
}
