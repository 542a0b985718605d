// Package app assembles the console from configuration.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/cloudbot/core/bootstrap"
	coreconfig "github.com/m3rciful/cloudbot/core/config"
	"github.com/m3rciful/cloudbot/core/logger"
	coretelegram "github.com/m3rciful/cloudbot/core/telegram"
	"github.com/m3rciful/cloudbot/core/telegram/middleware"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/console"
	"github.com/m3rciful/cloudbot/internal/journal"
)

const (
	journalQueue      = 256
	memoryPerUser     = 50
	limitedNotice     = "Too many requests. Please wait a moment."
	deniedNotice      = "This console is private."
	defaultSweepEvery = 5 * time.Minute
)

// App holds everything the bot needs at runtime.
type App struct {
	cfg     *coreconfig.Config
	infra   *bootstrap.Result
	journal *journal.Recorder
	console *console.Console
	metrics *middleware.Metrics

	stopSweeper context.CancelFunc
	background  errgroup.Group
}

// New runs the bootstrap pipeline and wires the console.
func New(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	var store journal.Store = journal.NewMemory(memoryPerUser)
	if infra.DB != nil {
		store = journal.NewPostgres(infra.DB)
	}
	rec := journal.NewRecorder(store, journalQueue)

	sessions := state.NewStore()
	factory := cloud.NewFactory(cloud.Config{
		Region:             cfg.Cloud.Region,
		EndpointTemplate:   cfg.Cloud.EndpointTemplate,
		Timeout:            time.Duration(cfg.Cloud.TimeoutSeconds) * time.Second,
		InsecureSkipVerify: cfg.Cloud.InsecureSkipVerify,
	})
	c, err := console.New(console.Options{
		Store:   sessions,
		Clients: console.NewClientCache(factory),
		Journal: rec,
		AdminID: cfg.Telegram.AdminID,
	})
	if err != nil {
		rec.Close()
		return nil, errors.Join(err, infra.Close())
	}

	logger.Info(ctx, logger.ComponentApp, "wired",
		slog.String("region", cfg.Cloud.Region),
		slog.String("endpoint", factory.Endpoint(cloud.VPC)),
		slog.Bool("journal_db", infra.DB != nil),
	)
	return &App{
		cfg:     cfg,
		infra:   infra,
		journal: rec,
		console: c,
		metrics: middleware.NewMetrics(),
	}, nil
}

// TelegramRunOptions describes how the bot should be served.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:  a.cfg,
		Console: a.console,
		Metrics: a.metrics,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, coretelegram.MiddlewareOptions{
			Metrics:   a.metrics,
			OnLimited: notice(limitedNotice),
			OnDenied:  notice(deniedNotice),
		}),
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	ttl := time.Duration(a.cfg.Sessions.IdleTTLMinutes) * time.Minute
	if ttl <= 0 {
		return nil
	}
	every := time.Duration(a.cfg.Sessions.SweepIntervalMinutes) * time.Minute
	if every <= 0 {
		every = defaultSweepEvery
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	a.stopSweeper = cancel
	a.background.Go(func() error {
		a.console.RunSweeper(sweepCtx, ttl, every)
		return nil
	})
	logger.Info(ctx, logger.ComponentFSM, "sweeper.start",
		slog.Duration("ttl", ttl),
		slog.Duration("interval", every),
	)
	return nil
}

func (a *App) stop(context.Context, coretelegram.Runtime) error {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	return a.background.Wait()
}

// Close flushes the journal and releases the database.
func (a *App) Close() error {
	a.journal.Close()
	return a.infra.Close()
}

// notice answers button presses with a toast and messages with a reply.
func notice(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: text})
		}
		if chat := c.Chat(); chat == nil || chat.Type != tele.ChatPrivate {
			return nil
		}
		return c.Send(text)
	}
}
