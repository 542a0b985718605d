package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/m3rciful/cloudbot/core/telegram/callbacks"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
)

type recorder struct {
	sent    []ui.Message
	edits   []ui.Message
	answers []string
	deleted int
}

func (r *recorder) Send(m ui.Message) error  { r.sent = append(r.sent, m); return nil }
func (r *recorder) Edit(m ui.Message) error  { r.edits = append(r.edits, m); return nil }
func (r *recorder) Answer(text string) error { r.answers = append(r.answers, text); return nil }
func (r *recorder) DeleteIncoming() error    { r.deleted++; return nil }

func (r *recorder) last() string {
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1].Text
}

type apiError struct{ msg string }

func (e *apiError) Error() string       { return "api: " + e.msg }
func (e *apiError) UserMessage() string { return e.msg }

type harness struct {
	t      *testing.T
	store  *state.Store
	router *router.Router
	engine *Engine
	rec    *recorder
	got    []state.Fields
	result error
	done   []Outcome
}

const user = int64(77)

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, store: state.NewStore(), rec: &recorder{}}
	h.router = router.New(router.Options{Sessions: h.store})
	h.engine = New(h.router, Options{
		Home:      ui.Btn("Main menu", "main", "menu"),
		OnOutcome: func(_ context.Context, o Outcome) { h.done = append(h.done, o) },
	})
	return h
}

func (h *harness) authorize() {
	_ = h.store.Do(user, func(s *state.Session) error {
		s.SetCredentials(state.Credentials{AccessKey: "a", SecretKey: "b", ProjectID: "p", AccountID: "d"})
		s.MarkValidated(s.Epoch())
		return nil
	})
}

func (h *harness) text(s string) {
	h.t.Helper()
	if err := h.router.Dispatch(context.Background(), router.Event{UserID: user, Text: s}, h.rec); err != nil {
		h.t.Fatalf("dispatch text %q: %v", s, err)
	}
}

func (h *harness) press(p callbacks.Payload) {
	h.t.Helper()
	data, err := callbacks.Encode(p)
	if err != nil {
		h.t.Fatalf("encode: %v", err)
	}
	if err := h.router.Dispatch(context.Background(), router.Event{UserID: user, Data: data, Callback: true}, h.rec); err != nil {
		h.t.Fatalf("dispatch %s: %v", p, err)
	}
}

func (h *harness) terminal(req *router.Request, f state.Fields) (string, error) {
	h.got = append(h.got, f)
	if h.result != nil {
		return "", h.result
	}
	return f.Get("id"), req.Reply.Send(ui.Text("Created!"))
}

func (h *harness) createFlow(n int) *Flow {
	steps := make([]Step, n)
	for i := range steps {
		steps[i] = Step{Name: fmt.Sprintf("s%d", i+1), Prompt: fmt.Sprintf("Enter f%d", i+1), Field: fmt.Sprintf("f%d", i+1)}
	}
	return &Flow{Steps: steps, Finish: h.terminal}
}

func TestFlowWalksEveryStepThenFinishes(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	const n = 4
	f := h.createFlow(n)
	if err := h.engine.Mount(&Module{Name: "vpc", Title: "VPC", Actions: []Action{{ID: "create", Title: "Create", Flow: f}}}); err != nil {
		t.Fatalf("mount: %v", err)
	}

	h.press(callbacks.New("vpc", "create"))
	for i := 0; i < n; i++ {
		st := h.store.GetOrCreate(user).State()
		if st != state.At("vpc.create", i) {
			t.Fatalf("before answer %d state = %s", i+1, st)
		}
		if h.rec.last() != fmt.Sprintf("Enter f%d", i+1) {
			t.Fatalf("prompt = %q", h.rec.last())
		}
		h.text(fmt.Sprintf("v%d", i+1))
	}

	if len(h.got) != 1 {
		t.Fatalf("terminal calls = %d", len(h.got))
	}
	for i := 1; i <= n; i++ {
		if h.got[0].Get(fmt.Sprintf("f%d", i)) != fmt.Sprintf("v%d", i) {
			t.Fatalf("terminal fields = %v", h.got[0])
		}
	}
	sess := h.store.GetOrCreate(user)
	if !sess.State().IsIdle() || len(sess.Fields()) != 0 {
		t.Fatalf("after terminal state=%s fields=%v", sess.State(), sess.Fields())
	}
	if len(h.done) != 1 || h.done[0].Module != "vpc" || h.done[0].Action != "create" || h.done[0].Err != nil {
		t.Fatalf("outcomes = %+v", h.done)
	}
}

func TestReenteringFlowRestartsAtFirstStep(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	f := h.createFlow(3)
	_ = h.engine.Mount(&Module{Name: "nat", Title: "NAT", Actions: []Action{{ID: "create", Title: "Create", Flow: f}}})

	h.press(callbacks.New("nat", "create"))
	h.text("first")
	h.press(callbacks.New("nat", "create"))
	sess := h.store.GetOrCreate(user)
	if sess.State() != state.At("nat.create", 0) {
		t.Fatalf("state = %s", sess.State())
	}
	if len(sess.Fields()) != 0 {
		t.Fatalf("stale fields survived: %v", sess.Fields())
	}
}

func TestTerminalErrorIsShownVerbatimAndResets(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	h.result = &apiError{msg: "quota exceeded"}
	f := h.createFlow(1)
	_ = h.engine.Mount(&Module{Name: "vpc", Title: "VPC", Actions: []Action{{ID: "create", Title: "Create", Flow: f}}})

	h.press(callbacks.New("vpc", "create"))
	h.text("net")
	if h.rec.last() != "quota exceeded" {
		t.Fatalf("error text = %q", h.rec.last())
	}
	if !h.store.GetOrCreate(user).State().IsIdle() {
		t.Fatal("failed terminal must return to idle")
	}
	if len(h.done) != 1 || !errors.Is(h.done[0].Err, h.result) {
		t.Fatalf("outcome = %+v", h.done)
	}
}

func TestValidationKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	f := &Flow{
		Steps: []Step{{Name: "spec", Prompt: "Spec 1-4", Field: "spec", Validate: func(v string) error {
			if v < "1" || v > "4" || len(v) != 1 {
				return errors.New("Spec must be 1, 2, 3 or 4.")
			}
			return nil
		}}},
		Finish: h.terminal,
	}
	_ = h.engine.Mount(&Module{Name: "nat", Title: "NAT", Actions: []Action{{ID: "create", Title: "Create", Flow: f}}})
	h.press(callbacks.New("nat", "create"))
	h.text("9")
	if st := h.store.GetOrCreate(user).State(); st != state.At("nat.create", 0) {
		t.Fatalf("state after invalid answer = %s", st)
	}
	if !strings.HasPrefix(h.rec.last(), "Spec must be") {
		t.Fatalf("expected validation message, got %q", h.rec.last())
	}
	h.text("2")
	if len(h.got) != 1 || h.got[0].Get("spec") != "2" {
		t.Fatalf("terminal fields = %v", h.got)
	}
}

func TestSecretStepDeletesAnswer(t *testing.T) {
	h := newHarness(t)
	f := &Flow{Steps: []Step{{Name: "sk", Prompt: "Secret key", Field: "sk", Secret: true}}, Finish: h.terminal}
	_ = h.engine.Mount(&Module{Name: "auth", Title: "Auth", Public: true, Actions: []Action{{ID: "login", Title: "Login", Flow: f}}})
	h.press(callbacks.New("auth", "login"))
	h.text("s3cr3t")
	if h.rec.deleted != 1 {
		t.Fatalf("deleted = %d", h.rec.deleted)
	}
}

func TestPickerConvergesOnFlowTail(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	update := &Flow{
		Steps: []Step{
			{Name: "subnet_id", Prompt: "Subnet id", Field: "id"},
			{Name: "vpc_id", Prompt: "VPC id", Field: "vpc_id"},
			{Name: "name", Prompt: "New name", Field: "name"},
		},
		Finish: h.terminal,
	}
	picker := &Picker{
		Prompt: "Choose a subnet",
		Field:  "id",
		Flow:   update,
		List: func(*router.Request) ([]Choice, error) {
			return []Choice{{ID: "sn-1", Label: "web"}, {ID: "sn-2", Label: "db"}}, nil
		},
		Resolve: func(_ *router.Request, id string) (state.Fields, error) {
			return state.Fields{"vpc_id": "vpc-of-" + id}, nil
		},
	}
	err := h.engine.Mount(&Module{Name: "subnet", Title: "Subnet", Actions: []Action{
		{ID: "update", Title: "Update", Pick: picker},
		{ID: "updid", Title: "Update by id", Flow: update},
	}})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}

	h.press(callbacks.New("subnet", "update"))
	if len(h.rec.edits) != 1 || len(h.rec.edits[0].Menu.Buttons()) != 3 {
		t.Fatalf("picker menu = %+v", h.rec.edits)
	}
	choice := h.rec.edits[0].Menu.Rows[1][0].Payload
	h.press(choice)
	if st := h.store.GetOrCreate(user).State(); st != state.At(update.ID, 2) {
		t.Fatalf("picker should skip known fields, state = %s", st)
	}
	h.text("renamed")
	if len(h.got) != 1 {
		t.Fatalf("terminal calls = %d", len(h.got))
	}
	want := state.Fields{"id": "sn-2", "vpc_id": "vpc-of-sn-2", "name": "renamed"}
	for k, v := range want {
		if h.got[0].Get(k) != v {
			t.Fatalf("fields = %v, want %v", h.got[0], want)
		}
	}

	// by-id variant walks the same flow from the first step
	h.press(callbacks.New("subnet", "updid"))
	if st := h.store.GetOrCreate(user).State(); st != state.At(update.ID, 0) {
		t.Fatalf("by-id state = %s", st)
	}
}

func TestPickerListErrorAndEmpty(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	listErr := &apiError{msg: "service unavailable"}
	var fail bool
	picker := &Picker{
		Prompt: "Choose",
		Field:  "id",
		Flow:   h.createFlow(1),
		List: func(*router.Request) ([]Choice, error) {
			if fail {
				return nil, listErr
			}
			return nil, nil
		},
	}
	picker.Flow.Steps[0].Field = "id"
	_ = h.engine.Mount(&Module{Name: "ecs", Title: "ECS", Actions: []Action{{ID: "delete", Title: "Delete", Pick: picker}}})

	h.press(callbacks.New("ecs", "delete"))
	if len(h.rec.edits) != 1 || h.rec.edits[0].Text != "Nothing found." {
		t.Fatalf("empty picker = %+v", h.rec.edits)
	}
	fail = true
	h.press(callbacks.New("ecs", "delete"))
	if h.rec.last() != "service unavailable" {
		t.Fatalf("list error = %q", h.rec.last())
	}
}

func TestCancelReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.authorize()
	_ = h.engine.Mount(&Module{Name: "vpc", Title: "VPC", Actions: []Action{{ID: "create", Title: "Create", Flow: h.createFlow(2)}}})
	h.press(callbacks.New("vpc", "create"))
	h.text("x")
	h.press(callbacks.New(controlModule, cancelAction))
	sess := h.store.GetOrCreate(user)
	if !sess.State().IsIdle() || len(sess.Fields()) != 0 {
		t.Fatalf("cancel left state=%s fields=%v", sess.State(), sess.Fields())
	}
	if len(h.got) != 0 {
		t.Fatal("cancelled flow must not reach its terminal")
	}
}

func TestUnauthorizedActionDoesNotStartFlow(t *testing.T) {
	h := newHarness(t)
	_ = h.engine.Mount(&Module{Name: "vpc", Title: "VPC", Actions: []Action{{ID: "create", Title: "Create", Flow: h.createFlow(1)}}})
	h.press(callbacks.New("vpc", "create"))
	if !h.store.GetOrCreate(user).State().IsIdle() {
		t.Fatal("unauthorized user entered a flow")
	}
	if len(h.rec.answers) != 1 {
		t.Fatalf("answers = %v", h.rec.answers)
	}
}

func TestMountRejectsBadTables(t *testing.T) {
	h := newHarness(t)
	f := h.createFlow(1)
	cases := map[string]*Module{
		"no actions kind": {Name: "a", Title: "A", Actions: []Action{{ID: "x", Title: "X"}}},
		"two kinds":       {Name: "b", Title: "B", Actions: []Action{{ID: "x", Title: "X", Flow: f, Run: func(*router.Request) error { return nil }}}},
		"reserved id":     {Name: "c", Title: "C", Actions: []Action{{ID: MenuAction, Title: "X", Flow: f}}},
		"dup field": {Name: "d", Title: "D", Actions: []Action{{ID: "x", Title: "X", Flow: &Flow{
			Steps:  []Step{{Prompt: "a", Field: "n"}, {Prompt: "b", Field: "n"}},
			Finish: h.terminal,
		}}}},
		"dup action": {Name: "e", Title: "E", Actions: []Action{
			{ID: "x", Title: "X", Run: func(*router.Request) error { return nil }},
			{ID: "x", Title: "Y", Run: func(*router.Request) error { return nil }},
		}},
	}
	for name, m := range cases {
		if err := h.engine.Mount(m); err == nil {
			t.Fatalf("%s: expected mount error", name)
		}
	}
	if err := h.router.Validate(); err == nil {
		t.Fatal("router must report the duplicate action")
	}
}

func TestMenuMessage(t *testing.T) {
	h := newHarness(t)
	_ = h.engine.Mount(&Module{Name: "vpc", Title: "Virtual Private Cloud", Columns: 2, Actions: []Action{
		{ID: "create", Title: "Create", Flow: h.createFlow(1)},
		{ID: "list", Title: "List", Run: func(*router.Request) error { return nil }},
		{ID: "delete", Title: "Delete", Flow: h.createFlow(1)},
	}})
	msg, ok := h.engine.MenuMessage("vpc")
	if !ok || !msg.HTML || msg.Text != "<b>Virtual Private Cloud</b>" {
		t.Fatalf("menu message = %+v", msg)
	}
	if len(msg.Menu.Rows) != 3 || msg.Menu.Rows[2][0].Payload.Module != "main" {
		t.Fatalf("menu rows = %+v", msg.Menu.Rows)
	}
}
