// Package router maps chat events to handlers.
//
// Button presses are matched on the (module, action) pair of their payload
// against a registration table; free text goes to a slash command, to the
// flow in progress, or to the text fallback. Every handler runs while the
// user's session is locked, so events of one user never interleave while
// different users proceed in parallel.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/cloudbot/core/logger"
	"github.com/m3rciful/cloudbot/core/telegram/callbacks"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
)

// Request is what a handler gets for one event.
type Request struct {
	Ctx     context.Context
	UserID  int64
	Text    string
	Payload callbacks.Payload
	// Session is locked for the duration of the handler.
	Session *state.Session
	Reply   ui.Responder
}

// Handler processes one event.
type Handler func(req *Request) error

// Route binds a button payload to a handler.
type Route struct {
	Module string
	Action string
	// RequireAuth sends users without validated credentials to the
	// unauthorized fallback instead.
	RequireAuth bool
	Handler     Handler
}

// Event is a transport-neutral incoming update.
type Event struct {
	UserID   int64
	Text     string
	Data     string
	Callback bool
}

// Sessions gives exclusive access to a user's session.
type Sessions interface {
	Do(userID int64, fn func(*state.Session) error) error
}

// Options configures a Router.
type Options struct {
	Sessions Sessions
	// AdminID guards AdminOnly commands.
	AdminID int64
	// Unauthorized handles gated routes for sessions without credentials.
	Unauthorized Handler
	// NotFound handles well-formed payloads without a route.
	NotFound Handler
	// TextFallback handles idle free text; nil ignores it.
	TextFallback Handler
}

type routeKey struct {
	module string
	action string
}

// Router is the registration table plus dispatch logic.
type Router struct {
	sessions     Sessions
	adminID      int64
	routes       map[routeKey]Route
	commands     map[string]Command
	flow         Handler
	unauthorized Handler
	notFound     Handler
	textFallback Handler
	errs         []error
}

// New creates an empty router.
func New(opts Options) *Router {
	r := &Router{
		sessions:     opts.Sessions,
		adminID:      opts.AdminID,
		routes:       make(map[routeKey]Route),
		commands:     make(map[string]Command),
		unauthorized: opts.Unauthorized,
		notFound:     opts.NotFound,
		textFallback: opts.TextFallback,
	}
	if r.unauthorized == nil {
		r.unauthorized = func(req *Request) error {
			return req.Reply.Answer("Please authorize first: /start")
		}
	}
	if r.notFound == nil {
		r.notFound = func(req *Request) error {
			return req.Reply.Answer("Unsupported action")
		}
	}
	return r
}

// Handle registers a route. Registering the same (module, action) twice is a
// configuration error; it is returned and also reported by Validate.
func (r *Router) Handle(rt Route) error {
	var err error
	switch {
	case rt.Module == "" || rt.Action == "":
		err = fmt.Errorf("router: route %q/%q: module and action are required", rt.Module, rt.Action)
	case rt.Handler == nil:
		err = fmt.Errorf("router: route %s|%s: nil handler", rt.Module, rt.Action)
	}
	if err == nil {
		key := routeKey{rt.Module, rt.Action}
		if _, exists := r.routes[key]; exists {
			err = fmt.Errorf("router: duplicate route %s|%s", rt.Module, rt.Action)
		} else {
			r.routes[key] = rt
		}
	}
	if err != nil {
		r.errs = append(r.errs, err)
		logger.Warn(context.Background(), "tg.wire", "register.callback.skip",
			slog.String("cb_key", rt.Module+"|"+rt.Action),
			slog.String("err", err.Error()),
		)
	}
	return err
}

// SetFlowHandler installs the handler for text received while a flow is in progress.
func (r *Router) SetFlowHandler(h Handler) {
	r.flow = h
}

// Lookup returns the route registered for module/action.
func (r *Router) Lookup(module, action string) (Route, bool) {
	rt, ok := r.routes[routeKey{module, action}]
	return rt, ok
}

// RouteKeys lists registered routes as "module|action", sorted.
func (r *Router) RouteKeys() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k.module+"|"+k.action)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports every registration error collected so far.
func (r *Router) Validate() error {
	errs := append([]error(nil), r.errs...)
	if r.sessions == nil {
		errs = append(errs, errors.New("router: session store is required"))
	}
	if r.flow == nil {
		errs = append(errs, errors.New("router: flow handler is not set"))
	}
	return errors.Join(errs...)
}

// PanicError wraps a recovered handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code implements the err_code convention of the logs.
func (e *PanicError) Code() string { return "PANIC" }

// Dispatch routes one event. Malformed button data is acknowledged and
// otherwise ignored.
func (r *Router) Dispatch(ctx context.Context, ev Event, reply ui.Responder) error {
	start := time.Now()
	if ev.Callback {
		p, err := callbacks.Decode(ev.Data)
		if err != nil {
			_ = reply.Answer("")
			logHandlerSummary(ctx, "callback.malformed", start, "skip", "ok", nil,
				slog.String("payload", logger.SanitizeLimit(ev.Data, callbacks.MaxDataLen)),
			)
			return nil
		}
		return r.dispatchCallback(ctx, ev, p, reply, start)
	}
	return r.dispatchText(ctx, ev, reply, start)
}

func (r *Router) dispatchCallback(ctx context.Context, ev Event, p callbacks.Payload, reply ui.Responder, start time.Time) error {
	name := "callback." + normalizeHandlerName(p.Module+"."+p.Action)
	extras := []slog.Attr{
		slog.String("cb_key", p.Key()),
		slog.String("module", p.Module),
		slog.String("action", p.Action),
	}
	return r.run(ctx, ev, p, reply, name, start, func(sess *state.Session) (Handler, []slog.Attr) {
		rt, ok := r.routes[routeKey{p.Module, p.Action}]
		switch {
		case !ok:
			return r.notFound, append(extras, slog.String("reason", "not_found"))
		case rt.RequireAuth && !sess.Authorized():
			return r.unauthorized, append(extras, slog.String("reason", "unauthorized"))
		default:
			return rt.Handler, extras
		}
	})
}

func (r *Router) dispatchText(ctx context.Context, ev Event, reply ui.Responder, start time.Time) error {
	if key, cmd, ok := r.LookupCommand(ev.Text); ok {
		if cmd.AdminOnly && ev.UserID != r.adminID {
			logHandlerSummary(ctx, normalizeHandlerName(key), start, "skip", "ok", nil,
				slog.String("reason", "admin_only"))
			return nil
		}
		return r.run(ctx, ev, callbacks.Payload{}, reply, normalizeHandlerName(key), start,
			func(*state.Session) (Handler, []slog.Attr) { return cmd.Handler, nil })
	}

	name := "text"
	return r.run(ctx, ev, callbacks.Payload{}, reply, name, start, func(sess *state.Session) (Handler, []slog.Attr) {
		st := sess.State()
		if !st.IsIdle() && r.flow != nil {
			return r.flow, []slog.Attr{slog.String("state", st.String())}
		}
		if r.textFallback != nil {
			return r.textFallback, []slog.Attr{slog.String("reason", "fallback")}
		}
		return nil, []slog.Attr{slog.String("reason", "unhandled")}
	})
}

type selector func(sess *state.Session) (Handler, []slog.Attr)

func (r *Router) run(ctx context.Context, ev Event, p callbacks.Payload, reply ui.Responder, name string, start time.Time, pick selector) error {
	ctx = logger.WithHandler(ctx, name)
	var extras []slog.Attr
	handled := true
	err := r.sessions.Do(ev.UserID, func(sess *state.Session) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = &PanicError{Value: rec, Stack: debug.Stack()}
			}
		}()
		var h Handler
		h, extras = pick(sess)
		if h == nil {
			handled = false
			return nil
		}
		return h(&Request{
			Ctx:     ctx,
			UserID:  ev.UserID,
			Text:    strings.TrimSpace(ev.Text),
			Payload: p,
			Session: sess,
			Reply:   reply,
		})
	})

	var pe *PanicError
	if errors.As(err, &pe) {
		logger.Error(ctx, logger.ComponentTG, "handler.panic",
			slog.String("status", "fail"),
			slog.Any("panic", pe.Value),
			slog.String("stack", string(pe.Stack)),
		)
	}
	if !handled {
		logHandlerSummary(ctx, name, start, "skip", "ok", nil, extras...)
		return nil
	}
	logHandlerSummary(ctx, name, start, "", "", err, extras...)
	return err
}
