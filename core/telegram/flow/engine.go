package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/cloudbot/core/logger"
	"github.com/m3rciful/cloudbot/core/telegram/format"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
)

const (
	controlModule = "flow"
	cancelAction  = "cancel"
)

// Outcome describes a finished action for auditing.
type Outcome struct {
	UserID     int64
	Module     string
	Action     string
	ResourceID string
	Err        error
	Duration   time.Duration
}

// UserMessenger is implemented by errors whose text is meant for the user.
type UserMessenger interface {
	UserMessage() string
}

// Options configures an Engine.
type Options struct {
	// Home is appended to every module menu and to cancel confirmations.
	Home ui.Button
	// OnOutcome is called after every terminal call and immediate action.
	OnOutcome func(ctx context.Context, o Outcome)
	// Describe turns an action error into chat text. Errors implementing
	// UserMessenger are shown as is by default.
	Describe func(err error) string
	// OnError sees every action error while the session is still locked,
	// before it is shown.
	OnError func(req *router.Request, err error)
}

// Engine drives flows for the modules mounted on a router.
type Engine struct {
	router  *router.Router
	opts    Options
	flows   map[string]*Flow
	modules map[string]*Module
	order   []*Module
}

// New creates an engine and installs it as the router's flow handler.
func New(r *router.Router, opts Options) *Engine {
	if opts.Describe == nil {
		opts.Describe = DescribeError
	}
	e := &Engine{
		router:  r,
		opts:    opts,
		flows:   make(map[string]*Flow),
		modules: make(map[string]*Module),
	}
	r.SetFlowHandler(e.HandleText)
	_ = r.Handle(router.Route{Module: controlModule, Action: cancelAction, Handler: e.cancel})
	return e
}

// DescribeError is the default error presenter.
func DescribeError(err error) string {
	var um UserMessenger
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "Error: " + err.Error()
}

// Mount validates m and registers its menu, actions and flows.
func (e *Engine) Mount(m *Module) error {
	if m == nil || m.Name == "" || m.Title == "" {
		return errors.New("flow: module needs a name and a title")
	}
	if _, dup := e.modules[m.Name]; dup {
		return fmt.Errorf("flow: module %s mounted twice", m.Name)
	}
	var errs []error
	for _, a := range m.Actions {
		if err := a.validate(m.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, f := range []*Flow{a.Flow, pickerFlow(a.Pick)} {
			if f == nil {
				continue
			}
			if err := e.registerFlow(m.Name, a.ID, f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	e.modules[m.Name] = m
	e.order = append(e.order, m)

	errs = append(errs, e.router.Handle(router.Route{
		Module:  m.Name,
		Action:  MenuAction,
		Handler: func(req *router.Request) error { return e.showMenu(req, m) },
	}))
	for _, a := range m.Actions {
		errs = append(errs, e.router.Handle(router.Route{
			Module:      m.Name,
			Action:      a.ID,
			RequireAuth: !(m.Public || a.Public),
			Handler:     e.actionHandler(m, a),
		}))
	}
	return errors.Join(errs...)
}

func pickerFlow(p *Picker) *Flow {
	if p == nil {
		return nil
	}
	return p.Flow
}

func (e *Engine) registerFlow(module, action string, f *Flow) error {
	if f.ID == "" {
		f.ID = module + "." + action
	}
	if existing, ok := e.flows[f.ID]; ok {
		if existing == f {
			return nil
		}
		return fmt.Errorf("flow: duplicate flow id %s", f.ID)
	}
	if err := f.validate(); err != nil {
		return err
	}
	f.module, f.action = module, action
	e.flows[f.ID] = f
	return nil
}

// Modules returns mounted modules in mount order.
func (e *Engine) Modules() []*Module {
	return append([]*Module(nil), e.order...)
}

// Flow returns a mounted flow by id.
func (e *Engine) Flow(id string) (*Flow, bool) {
	f, ok := e.flows[id]
	return f, ok
}

// MenuMessage renders the menu of module name.
func (e *Engine) MenuMessage(name string) (ui.Message, bool) {
	m, ok := e.modules[name]
	if !ok {
		return ui.Message{}, false
	}
	return e.menuMessage(m), true
}

func (e *Engine) menuMessage(m *Module) ui.Message {
	buttons := make([]ui.Button, 0, len(m.Actions))
	for _, a := range m.Actions {
		buttons = append(buttons, ui.Btn(a.Title, m.Name, a.ID))
	}
	cols := m.Columns
	if cols <= 0 {
		cols = 2
	}
	menu := ui.Grid(buttons, cols)
	if e.opts.Home.Text != "" {
		menu.Add(e.opts.Home)
	}
	return ui.HTML(format.Bold(m.Title)).WithMenu(menu)
}

// BackMenu is a single-button menu leading back to module name.
func BackMenu(name string) *ui.Menu {
	return (&ui.Menu{}).Add(ui.Btn("⬅ Back", name, MenuAction))
}

func (e *Engine) showMenu(req *router.Request, m *Module) error {
	return req.Reply.Edit(e.menuMessage(m))
}

func (e *Engine) actionHandler(m *Module, a Action) router.Handler {
	switch {
	case a.Flow != nil:
		return func(req *router.Request) error {
			return e.Start(req, a.Flow)
		}
	case a.Pick != nil:
		return func(req *router.Request) error {
			return e.pick(req, m, a)
		}
	default:
		return func(req *router.Request) error {
			// any menu press abandons the flow in progress
			req.Session.Reset()
			start := time.Now()
			err := a.Run(req)
			e.report(req, m.Name, a.ID, "", err, start)
			if err != nil {
				return e.fail(req, m.Name, err)
			}
			return nil
		}
	}
}

// Start enters f at its first step, discarding any previous flow.
func (e *Engine) Start(req *router.Request, f *Flow) error {
	req.Session.Reset()
	return e.advance(req, f, 0)
}

// HandleText stores the answer for the current step and moves on.
func (e *Engine) HandleText(req *router.Request) error {
	st := req.Session.State()
	f, ok := e.flows[st.Flow]
	if !ok || st.Step < 0 || st.Step >= len(f.Steps) {
		logger.Warn(req.Ctx, logger.ComponentFSM, "fsm.state.invalid",
			slog.String("status", "skip"),
			slog.String("state", st.String()),
		)
		req.Session.Reset()
		return nil
	}
	step := f.Steps[st.Step]
	if step.Secret {
		if err := req.Reply.DeleteIncoming(); err != nil {
			logger.Debug(req.Ctx, logger.ComponentFSM, "fsm.secret.delete_failed",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	value := req.Text
	if value == "" {
		return e.prompt(req, step, "")
	}
	if step.Validate != nil {
		if err := step.Validate(value); err != nil {
			return e.prompt(req, step, err.Error())
		}
	}
	req.Session.MergeFields(state.Fields{step.Field: value})
	return e.advance(req, f, st.Step+1)
}

// advance moves to step next, skipping steps whose field is already known,
// and runs the terminal call after the last one.
func (e *Engine) advance(req *router.Request, f *Flow, next int) error {
	for next < len(f.Steps) && req.Session.Field(f.Steps[next].Field) != "" {
		next++
	}
	if next >= len(f.Steps) {
		return e.finish(req, f)
	}
	to := state.At(f.ID, next)
	logger.Debug(req.Ctx, logger.ComponentFSM, "fsm.transition",
		slog.String("status", "ok"),
		slog.String("flow", f.ID),
		slog.String("step", f.Steps[next].Name),
		slog.String("state", to.String()),
	)
	req.Session.SetState(to)
	return e.prompt(req, f.Steps[next], "")
}

func (e *Engine) prompt(req *router.Request, step Step, problem string) error {
	text := step.Prompt
	if problem != "" {
		text = problem + "\n" + step.Prompt
	}
	cancel := (&ui.Menu{}).Add(ui.Btn("✖ Cancel", controlModule, cancelAction))
	return req.Reply.Send(ui.Text(text).WithMenu(cancel))
}

func (e *Engine) finish(req *router.Request, f *Flow) error {
	fields := req.Session.Fields()
	// success or failure, the dialog is over
	req.Session.Reset()

	start := time.Now()
	id, err := f.Finish(req, fields)
	e.report(req, f.module, f.action, id, err, start)
	if err != nil {
		return e.fail(req, f.module, err)
	}
	return nil
}

func (e *Engine) pick(req *router.Request, m *Module, a Action) error {
	p := a.Pick
	switch req.Payload.Arg(0) {
	case "do":
		id := req.Payload.Arg(1)
		if id == "" {
			return req.Reply.Answer("")
		}
		req.Session.Reset()
		req.Session.MergeFields(state.Fields{p.Field: id})
		if p.Resolve != nil {
			extra, err := p.Resolve(req, id)
			if err != nil {
				req.Session.Reset()
				e.report(req, m.Name, a.ID, id, err, time.Now())
				return e.fail(req, m.Name, err)
			}
			req.Session.MergeFields(extra)
		}
		next := p.Flow.indexOf(p.Field) + 1
		return e.advance(req, p.Flow, next)
	case "back":
		return e.showMenu(req, m)
	}

	req.Session.Reset()
	choices, err := p.List(req)
	if err != nil {
		e.report(req, m.Name, a.ID, "", err, time.Now())
		return e.fail(req, m.Name, err)
	}
	if len(choices) == 0 {
		empty := p.Empty
		if empty == "" {
			empty = "Nothing found."
		}
		return req.Reply.Edit(ui.Text(empty).WithMenu(BackMenu(m.Name)))
	}
	buttons := make([]ui.Button, 0, len(choices))
	for _, c := range choices {
		label := c.Label
		if label == "" {
			label = c.ID
		}
		buttons = append(buttons, ui.Btn(format.Truncate(label, 48), m.Name, a.ID, "do", c.ID))
	}
	menu := ui.Grid(buttons, 1).Add(ui.Btn("⬅ Back", m.Name, a.ID, "back"))
	return req.Reply.Edit(ui.Text(p.Prompt).WithMenu(menu))
}

func (e *Engine) cancel(req *router.Request) error {
	wasIdle := req.Session.State().IsIdle()
	req.Session.Reset()
	_ = req.Reply.Answer("Cancelled")
	if wasIdle {
		return nil
	}
	msg := ui.Text("Cancelled.")
	if e.opts.Home.Text != "" {
		msg = msg.WithMenu((&ui.Menu{}).Add(e.opts.Home))
	}
	return req.Reply.Edit(msg)
}

// fail shows err to the user. The error is consumed here so the router logs
// the handler as handled.
func (e *Engine) fail(req *router.Request, module string, err error) error {
	if e.opts.OnError != nil {
		e.opts.OnError(req, err)
	}
	return req.Reply.Send(ui.Text(e.opts.Describe(err)).WithMenu(BackMenu(module)))
}

func (e *Engine) report(req *router.Request, module, action, resourceID string, err error, start time.Time) {
	took := logger.Took(start)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("module", module),
		slog.String("action", action),
		slog.Duration("duration", took),
	}
	if resourceID != "" {
		attrs = append(attrs, slog.String("resource_id", resourceID))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", router.DeriveErrorCode(err)),
		)
	}
	logger.Info(req.Ctx, logger.ComponentFSM, "flow.finished", attrs...)

	if e.opts.OnOutcome != nil {
		e.opts.OnOutcome(req.Ctx, Outcome{
			UserID:     req.UserID,
			Module:     module,
			Action:     action,
			ResourceID: resourceID,
			Err:        err,
			Duration:   took,
		})
	}
}
