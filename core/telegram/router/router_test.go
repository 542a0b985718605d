package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/cloudbot/core/telegram/callbacks"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
)

type recorder struct {
	mu      sync.Mutex
	sent    []ui.Message
	answers []string
}

func (r *recorder) Send(m ui.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}
func (r *recorder) Edit(m ui.Message) error { return r.Send(m) }
func (r *recorder) Answer(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, text)
	return nil
}
func (r *recorder) DeleteIncoming() error { return nil }

func newTestRouter(store *state.Store) *Router {
	r := New(Options{Sessions: store})
	r.SetFlowHandler(func(req *Request) error {
		return req.Reply.Send(ui.Text("flow:" + req.Text))
	})
	return r
}

func callback(t *testing.T, p callbacks.Payload) Event {
	t.Helper()
	data, err := callbacks.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return Event{UserID: 1, Data: data, Callback: true}
}

func TestDuplicateRouteIsRejected(t *testing.T) {
	r := newTestRouter(state.NewStore())
	h := func(*Request) error { return nil }
	if err := r.Handle(Route{Module: "vpc", Action: "list", Handler: h}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := r.Handle(Route{Module: "vpc", Action: "list", Handler: h}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate route vpc|list") {
		t.Fatalf("Validate() = %v", err)
	}
	if rt, ok := r.Lookup("vpc", "list"); !ok || rt.Module != "vpc" {
		t.Fatalf("Lookup = %+v, %v", rt, ok)
	}
	if _, ok := r.Lookup("vpc", "nope"); ok {
		t.Fatal("unknown action resolved")
	}
}

func TestValidateRequiresFlowHandler(t *testing.T) {
	r := New(Options{Sessions: state.NewStore()})
	if err := r.Validate(); err == nil {
		t.Fatal("expected error without flow handler")
	}
}

func TestDuplicateCommandAndAlias(t *testing.T) {
	r := newTestRouter(state.NewStore())
	h := func(*Request) error { return nil }
	if err := r.Command("/start", Command{Handler: h, Description: "start", Aliases: []string{"begin"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Command("/begin", Command{Handler: h, Description: "dup"}); err == nil {
		t.Fatal("expected alias collision")
	}
	if err := r.Command("menu", Command{Handler: h, Description: "no slash"}); err == nil {
		t.Fatal("expected missing slash error")
	}
}

func TestMalformedCallbackIsIgnored(t *testing.T) {
	store := state.NewStore()
	r := newTestRouter(store)
	called := false
	_ = r.Handle(Route{Module: "vpc", Action: "list", Handler: func(*Request) error { called = true; return nil }})

	rec := &recorder{}
	for _, data := range []string{"garbage", "\fvpc", "\f|"} {
		if err := r.Dispatch(context.Background(), Event{UserID: 1, Data: data, Callback: true}, rec); err != nil {
			t.Fatalf("dispatch %q: %v", data, err)
		}
	}
	if called || len(rec.sent) != 0 {
		t.Fatal("malformed payload must not reach a handler")
	}
	if st := store.GetOrCreate(1).State(); !st.IsIdle() {
		t.Fatalf("state changed to %s", st)
	}
}

func TestUnknownCallbackUsesNotFound(t *testing.T) {
	r := newTestRouter(state.NewStore())
	rec := &recorder{}
	if err := r.Dispatch(context.Background(), callback(t, callbacks.New("vpc", "nope")), rec); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(rec.answers) != 1 || rec.answers[0] != "Unsupported action" {
		t.Fatalf("answers = %v", rec.answers)
	}
}

func TestGatedRouteRequiresAuthorization(t *testing.T) {
	store := state.NewStore()
	r := newTestRouter(store)
	var hits int
	_ = r.Handle(Route{Module: "vpc", Action: "list", RequireAuth: true, Handler: func(*Request) error { hits++; return nil }})

	rec := &recorder{}
	ev := callback(t, callbacks.New("vpc", "list"))
	_ = r.Dispatch(context.Background(), ev, rec)
	if hits != 0 || len(rec.answers) != 1 {
		t.Fatalf("unauthorized dispatch: hits=%d answers=%v", hits, rec.answers)
	}

	_ = store.Do(1, func(s *state.Session) error {
		s.SetCredentials(state.Credentials{AccessKey: "a", SecretKey: "b", ProjectID: "p", AccountID: "d"})
		s.MarkValidated(s.Epoch())
		return nil
	})
	_ = r.Dispatch(context.Background(), ev, rec)
	if hits != 1 {
		t.Fatalf("authorized dispatch hits = %d", hits)
	}
}

func TestTextRouting(t *testing.T) {
	store := state.NewStore()
	r := newTestRouter(store)
	_ = r.Command("/cancel", Command{Description: "cancel", Handler: func(req *Request) error {
		req.Session.Reset()
		return req.Reply.Send(ui.Text("cancelled"))
	}})

	rec := &recorder{}
	ctx := context.Background()

	// idle free text is ignored
	_ = r.Dispatch(ctx, Event{UserID: 1, Text: "hello"}, rec)
	if len(rec.sent) != 0 {
		t.Fatalf("idle text produced output: %+v", rec.sent)
	}

	store.SetState(1, state.At("vpc.create", 0))
	_ = r.Dispatch(ctx, Event{UserID: 1, Text: "  net-a "}, rec)
	if len(rec.sent) != 1 || rec.sent[0].Text != "flow:net-a" {
		t.Fatalf("flow text not routed: %+v", rec.sent)
	}

	_ = r.Dispatch(ctx, Event{UserID: 1, Text: "/cancel@cloudbot"}, rec)
	if len(rec.sent) != 2 || rec.sent[1].Text != "cancelled" {
		t.Fatalf("command did not win over flow: %+v", rec.sent)
	}
	if !store.GetOrCreate(1).State().IsIdle() {
		t.Fatal("cancel must reset state")
	}
}

func TestAdminOnlyCommand(t *testing.T) {
	r := New(Options{Sessions: state.NewStore(), AdminID: 99})
	r.SetFlowHandler(func(*Request) error { return nil })
	var hits int
	_ = r.Command("/stats", Command{Description: "stats", AdminOnly: true, Handler: func(*Request) error { hits++; return nil }})
	rec := &recorder{}
	_ = r.Dispatch(context.Background(), Event{UserID: 1, Text: "/stats"}, rec)
	_ = r.Dispatch(context.Background(), Event{UserID: 99, Text: "/stats"}, rec)
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
	if got := r.ListCommands(true); len(got) != 0 {
		t.Fatalf("admin command listed as visible: %v", got)
	}
}

func TestPanicIsContainedPerEvent(t *testing.T) {
	store := state.NewStore()
	r := newTestRouter(store)
	_ = r.Handle(Route{Module: "ecs", Action: "list", Handler: func(*Request) error { panic("boom") }})
	rec := &recorder{}

	err := r.Dispatch(context.Background(), callback(t, callbacks.New("ecs", "list")), rec)
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PanicError", err)
	}
	if DeriveErrorCode(err) != "PANIC" {
		t.Fatalf("err code = %s", DeriveErrorCode(err))
	}
	// the session lock must be free again
	store.SetState(1, state.At("x", 0))
	if store.GetOrCreate(1).State() != state.At("x", 0) {
		t.Fatal("session unusable after panic")
	}
}
