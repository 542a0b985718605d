package console

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/cloudbot/core/telegram/callbacks"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/journal"
)

const user = int64(1001)

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

func (r *recorder) lastSent() string {
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1].Text
}

func (r *recorder) lastEdit() string {
	if len(r.edits) == 0 {
		return ""
	}
	return r.edits[len(r.edits)-1].Text
}

// fakeCloud serves the VPC list and counts live checks (limit=1 calls).
type fakeCloud struct {
	mu     sync.Mutex
	checks int
	lists  int
	status int
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != "/v1/proj/vpcs" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("limit") == "1" {
		f.checks++
	} else {
		f.lists++
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error_code":"APIGW.0301","error_msg":"Incorrect IAM authentication information"}`)
		return
	}
	_, _ = io.WriteString(w, `{"vpcs":[{"id":"v-1","name":"net","cidr":"10.0.0.0/16"}]}`)
}

func (f *fakeCloud) reject(status int) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

func (f *fakeCloud) counts() (checks, lists int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks, f.lists
}

type harness struct {
	t       *testing.T
	store   *state.Store
	console *Console
	cloud   *fakeCloud
	rec     *recorder
	journal *journal.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, store: state.NewStore(), cloud: &fakeCloud{}, rec: &recorder{}}
	srv := httptest.NewServer(h.cloud)
	t.Cleanup(srv.Close)

	h.journal = journal.NewRecorder(journal.NewMemory(50), 16)
	t.Cleanup(h.journal.Close)

	factory := cloud.NewFactory(cloud.Config{EndpointTemplate: srv.URL, Timeout: 5 * time.Second})
	c, err := New(Options{Store: h.store, Clients: NewClientCache(factory), Journal: h.journal})
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	h.console = c
	return h
}

func (h *harness) text(s string) {
	h.t.Helper()
	if err := h.console.Dispatch(context.Background(), router.Event{UserID: user, Text: s}, h.rec); err != nil {
		h.t.Fatalf("text %q: %v", s, err)
	}
}

func (h *harness) press(module, action string, args ...string) {
	h.t.Helper()
	data, err := callbacks.Encode(callbacks.New(module, action, args...))
	if err != nil {
		h.t.Fatalf("encode: %v", err)
	}
	if err := h.console.Dispatch(context.Background(), router.Event{UserID: user, Data: data, Callback: true}, h.rec); err != nil {
		h.t.Fatalf("press %s|%s: %v", module, action, err)
	}
}

func (h *harness) signIn() {
	h.t.Helper()
	h.text("/start")
	for _, s := range []string{"AK", "SK", "proj", "dom"} {
		h.text(s)
	}
}

func (h *harness) session() *state.Session {
	return h.store.GetOrCreate(user)
}

func TestStartWalksCredentialDialog(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	if !h.session().Authorized() {
		t.Fatalf("session not authorized, last message %q", h.rec.lastSent())
	}
	if h.rec.deleted != 2 {
		t.Fatalf("deleted secret messages = %d, want 2", h.rec.deleted)
	}
	if !strings.Contains(h.rec.lastSent(), "Cloud console") {
		t.Fatalf("main menu not shown: %q", h.rec.lastSent())
	}
	creds, _ := h.session().Credentials()
	if creds.ProjectID != "proj" || creds.AccountID != "dom" {
		t.Fatalf("credentials = %+v", creds)
	}
}

func TestLiveCheckRunsOncePerEpoch(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.press("vpc", "list")
	h.press("vpc", "list")
	h.text("/start")

	checks, lists := h.cloud.counts()
	if checks != 1 {
		t.Fatalf("live checks = %d, want 1", checks)
	}
	if lists != 2 {
		t.Fatalf("list calls = %d, want 2", lists)
	}
	if !strings.Contains(h.rec.lastEdit(), "net") {
		t.Fatalf("list result = %q", h.rec.lastEdit())
	}
}

func TestRejectedCredentialsAreCleared(t *testing.T) {
	h := newHarness(t)
	h.cloud.reject(http.StatusUnauthorized)
	h.signIn()

	if _, ok := h.session().Credentials(); ok {
		t.Fatal("rejected credentials must be cleared")
	}
	if got := h.rec.lastSent(); got != (&AuthError{}).UserMessage() {
		t.Fatalf("message = %q", got)
	}
}

func TestLogoutInvalidatesCachedClients(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.press("vpc", "list")
	_ = h.store.Do(user, func(s *state.Session) error {
		if s.ClientCount() != 1 {
			t.Fatalf("cached clients = %d, want 1", s.ClientCount())
		}
		return nil
	})

	h.text("/logout")
	_ = h.store.Do(user, func(s *state.Session) error {
		if _, ok := s.Credentials(); ok || s.ClientCount() != 0 {
			t.Fatalf("logout kept credentials or %d clients", s.ClientCount())
		}
		return nil
	})

	edits := len(h.rec.edits)
	h.press("vpc", "list")
	if _, lists := h.cloud.counts(); lists != 1 {
		t.Fatalf("list calls after logout = %d, want 1", lists)
	}
	if len(h.rec.edits) != edits {
		t.Fatalf("menu was replaced: %q", h.rec.lastEdit())
	}
	if got := h.rec.answers[len(h.rec.answers)-1]; got != signInFirst {
		t.Fatalf("toast = %q", got)
	}

	// signing in again starts a new epoch with its own live check
	h.signIn()
	if checks, _ := h.cloud.counts(); checks != 2 {
		t.Fatalf("live checks = %d, want 2", checks)
	}
}

func TestProviderRejectionDuringActionSignsOut(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.cloud.reject(http.StatusForbidden)
	h.press("vpc", "list")

	if h.session().Authorized() {
		t.Fatal("session must lose authorization after a 403")
	}
	if got := h.rec.lastSent(); got != (&AuthError{}).UserMessage() {
		t.Fatalf("message = %q", got)
	}
}

func TestHistoryShowsJournal(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.press("vpc", "list")
	h.journal.Close()

	h.text("/history")
	got := h.rec.lastSent()
	if !strings.Contains(got, "vpc.list ok") || !strings.Contains(got, "auth.login ok") {
		t.Fatalf("history = %q", got)
	}
}

func TestCancelOutsideFlow(t *testing.T) {
	h := newHarness(t)
	h.text("/cancel")
	if h.rec.lastSent() != "Nothing to cancel." {
		t.Fatalf("cancel = %q", h.rec.lastSent())
	}
	h.text("/start")
	h.text("/cancel")
	if !h.session().State().IsIdle() {
		t.Fatalf("state after cancel = %s", h.session().State())
	}
}
