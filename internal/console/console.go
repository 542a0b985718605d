// Package console assembles the chat console: the route table, the flow
// engine with every resource module, the credential dialog and the commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/cloudbot/core/logger"
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/format"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/journal"
	"github.com/m3rciful/cloudbot/internal/modules"
)

const (
	mainModule   = "main"
	logoutAction = "logout"
	historyLimit = 10
	signInFirst  = "Please sign in first: send /start."
)

var (
	homeButton   = ui.Btn("🏠 Main menu", mainModule, flow.MenuAction)
	signInButton = ui.Btn("🔑 Sign in", authModule, loginAction)
)

// Options configures a Console.
type Options struct {
	Store   *state.Store
	Clients *ClientCache
	// Journal is optional; without it /history is unavailable.
	Journal *journal.Recorder
	AdminID int64
	Now     func() time.Time
}

// Console owns the route table of the bot.
type Console struct {
	store     *state.Store
	clients   *ClientCache
	journal   *journal.Recorder
	router    *router.Router
	engine    *flow.Engine
	resources []*flow.Module
}

// New wires every route and validates the table. Any registration problem
// is reported here, before the bot starts polling.
func New(opts Options) (*Console, error) {
	if opts.Store == nil || opts.Clients == nil {
		return nil, errors.New("console: store and clients are required")
	}
	c := &Console{
		store:   opts.Store,
		clients: opts.Clients,
		journal: opts.Journal,
	}
	c.router = router.New(router.Options{
		Sessions:     opts.Store,
		AdminID:      opts.AdminID,
		Unauthorized: c.unauthorized,
		TextFallback: c.idleText,
	})
	c.engine = flow.New(c.router, flow.Options{
		Home:      homeButton,
		OnOutcome: c.record,
		Describe:  describe,
		OnError:   forgetRejected,
	})

	c.resources = modules.All(modules.Deps{Clients: opts.Clients, Now: opts.Now})
	var errs []error
	errs = append(errs, c.engine.Mount(c.signInModule()))
	for _, m := range c.resources {
		errs = append(errs, c.engine.Mount(m))
	}
	errs = append(errs,
		c.router.Handle(router.Route{Module: mainModule, Action: flow.MenuAction, Handler: c.mainMenu}),
		c.router.Handle(router.Route{Module: mainModule, Action: logoutAction, Handler: c.logout}),
	)
	errs = append(errs, c.registerCommands()...)
	errs = append(errs, c.router.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	logger.Info(context.Background(), "tg.wire", "routes.ready",
		slog.String("status", "ok"),
		slog.Int("routes", len(c.router.RouteKeys())),
		slog.Int("modules", len(c.resources)),
	)
	return c, nil
}

// Router returns the validated route table.
func (c *Console) Router() *router.Router { return c.router }

// Dispatch routes one transport event under a fresh trace id.
func (c *Console) Dispatch(ctx context.Context, ev router.Event, reply ui.Responder) error {
	return c.router.Dispatch(logger.StartTrace(ctx), ev, reply)
}

// Commands lists the commands shown in the client's command menu.
func (c *Console) Commands() []router.CommandInfo {
	return c.router.ListCommands(true)
}

func (c *Console) mainMenuMessage() ui.Message {
	buttons := make([]ui.Button, 0, len(c.resources))
	for _, m := range c.resources {
		buttons = append(buttons, ui.Btn(m.Title, m.Name, flow.MenuAction))
	}
	menu := ui.Grid(buttons, 2).Add(ui.Btn("🚪 Sign out", mainModule, logoutAction))
	return ui.HTML(format.Bold("Cloud console") + "\nChoose a service:").WithMenu(menu)
}

func signInMessage(text string) ui.Message {
	return ui.Text(text).WithMenu((&ui.Menu{}).Add(signInButton))
}

func (c *Console) mainMenu(req *router.Request) error {
	req.Session.Reset()
	if !req.Session.Authorized() {
		return req.Reply.Edit(signInMessage("You are not signed in."))
	}
	return req.Reply.Edit(c.mainMenuMessage())
}

func (c *Console) logout(req *router.Request) error {
	req.Session.Unauthorize()
	logger.Info(req.Ctx, logger.ComponentFSM, "credentials.cleared",
		slog.String("status", "ok"),
	)
	_ = req.Reply.Answer("Signed out")
	return req.Reply.Edit(signInMessage("Signed out. Credentials were removed from this session."))
}

// unauthorized leaves the pressed menu as it is; button presses get a toast
// and typed commands a hint.
func (c *Console) unauthorized(req *router.Request) error {
	if req.Payload.Module != "" {
		return req.Reply.Answer(signInFirst)
	}
	return req.Reply.Send(signInMessage(signInFirst))
}

func (c *Console) idleText(req *router.Request) error {
	if req.Session.Authorized() {
		return req.Reply.Send(ui.Text("Use the buttons or /menu.").WithMenu((&ui.Menu{}).Add(homeButton)))
	}
	return req.Reply.Send(signInMessage("Send /start to sign in."))
}

// record forwards finished actions to the journal.
func (c *Console) record(ctx context.Context, o flow.Outcome) {
	if c.journal == nil {
		return
	}
	e := journal.Entry{
		UserID:     o.UserID,
		Module:     o.Module,
		Action:     o.Action,
		Outcome:    journal.OutcomeOK,
		ResourceID: o.ResourceID,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		e.Outcome = journal.OutcomeError
		e.ErrorCode = router.DeriveErrorCode(o.Err)
		e.ErrorMsg = logger.SanitizeLimit(describe(o.Err), 512)
	}
	_ = c.journal.Submit(ctx, e)
}

// describe shows provider and validation messages verbatim and replaces
// credential rejections with the sign-in hint.
func describe(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) || cloud.IsAuthError(err) {
		return (&AuthError{}).UserMessage()
	}
	return flow.DescribeError(err)
}

// forgetRejected clears credentials the provider no longer accepts.
func forgetRejected(req *router.Request, err error) {
	if !cloud.IsAuthError(err) {
		return
	}
	if _, ok := req.Session.Credentials(); !ok {
		return
	}
	req.Session.Unauthorize()
	logger.Warn(req.Ctx, logger.ComponentCloud, "credentials.rejected",
		slog.String("status", "fail"),
		slog.String("err_code", router.DeriveErrorCode(err)),
	)
}

// RunSweeper evicts idle sessions every interval until ctx is done.
func (c *Console) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.store.Sweep(ctx, ttl)
		}
	}
}

func (c *Console) history(req *router.Request) error {
	if c.journal == nil {
		return req.Reply.Send(ui.Text("Operation history is disabled."))
	}
	entries, err := c.journal.Recent(req.Ctx, req.UserID, historyLimit)
	if err != nil {
		return fmt.Errorf("console: history: %w", err)
	}
	return req.Reply.Send(ui.HTML(historyText(entries)).WithMenu((&ui.Menu{}).Add(homeButton)))
}
