package state

import (
	"fmt"
	"maps"
	"time"
)

// State identifies the user's position in a conversation: Idle, or a step of a flow.
type State struct {
	Flow string
	Step int
}

// Idle is the state outside of any flow.
var Idle = State{}

// At returns the state for step index step of flow.
func At(flow string, step int) State {
	return State{Flow: flow, Step: step}
}

// IsIdle reports whether no flow is in progress.
func (s State) IsIdle() bool {
	return s.Flow == ""
}

func (s State) String() string {
	if s.IsIdle() {
		return "idle"
	}
	return fmt.Sprintf("%s#%d", s.Flow, s.Step+1)
}

// Fields is the bag of values collected by the steps of a flow.
type Fields map[string]string

// Get returns the trimmed-as-stored value for key or "".
func (f Fields) Get(key string) string {
	return f[key]
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	maps.Copy(out, f)
	return out
}

// Credentials are the provider keys entered in the chat.
type Credentials struct {
	AccessKey string
	SecretKey string
	ProjectID string
	// AccountID doubles as the domain id for domain-scoped services.
	AccountID string
}

// Complete reports whether every part needed to sign requests is present.
func (c Credentials) Complete() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.ProjectID != "" && c.AccountID != ""
}

// Fingerprint identifies the credentials in logs and dedupe keys without
// exposing the secret.
func (c Credentials) Fingerprint() string {
	ak := c.AccessKey
	if len(ak) > 4 {
		ak = ak[len(ak)-4:]
	}
	return fmt.Sprintf("…%s/%s/%s", ak, c.ProjectID, c.AccountID)
}

// Session is the conversation record of a single user. A *Session handed out
// by Store.Do is only valid inside the callback.
type Session struct {
	UserID int64

	state     State
	fields    Fields
	creds     *Credentials
	epoch     uint64
	validated bool
	clients   map[string]any
	touched   time.Time
}

func newSession(userID int64, now time.Time) *Session {
	return &Session{
		UserID:  userID,
		fields:  Fields{},
		clients: map[string]any{},
		touched: now,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// SetState replaces the current state; fields are kept.
func (s *Session) SetState(st State) { s.state = st }

// Fields returns a copy of the collected fields.
func (s *Session) Fields() Fields { return s.fields.Clone() }

// Field returns a single collected field.
func (s *Session) Field(key string) string { return s.fields[key] }

// MergeFields adds or overwrites fields.
func (s *Session) MergeFields(f Fields) {
	for k, v := range f {
		s.fields[k] = v
	}
}

// Reset returns to Idle and drops all fields. Credentials and clients survive.
func (s *Session) Reset() {
	s.state = Idle
	s.fields = Fields{}
}

// Credentials returns the stored credentials, if any.
func (s *Session) Credentials() (Credentials, bool) {
	if s.creds == nil {
		return Credentials{}, false
	}
	return *s.creds, true
}

// SetCredentials stores new credentials and starts a new credential epoch:
// cached clients are dropped and the credentials must be validated again.
func (s *Session) SetCredentials(c Credentials) {
	s.creds = &c
	s.bumpEpoch()
}

// Unauthorize forgets the credentials, the clients built from them and any
// flow in progress.
func (s *Session) Unauthorize() {
	s.creds = nil
	s.bumpEpoch()
	s.Reset()
}

func (s *Session) bumpEpoch() {
	s.epoch++
	s.validated = false
	s.clients = map[string]any{}
}

// Epoch changes every time credentials are set or cleared.
func (s *Session) Epoch() uint64 { return s.epoch }

// Validated reports whether the current credentials passed the live check.
func (s *Session) Validated() bool { return s.creds != nil && s.validated }

// MarkValidated records a successful live check for epoch. A stale epoch is ignored.
func (s *Session) MarkValidated(epoch uint64) {
	if s.creds != nil && epoch == s.epoch {
		s.validated = true
	}
}

// Authorized reports whether the session holds validated credentials.
func (s *Session) Authorized() bool { return s.Validated() }

// Client returns the cached client for key.
func (s *Session) Client(key string) (any, bool) {
	c, ok := s.clients[key]
	return c, ok
}

// StoreClient memoizes a client for key within the current epoch.
func (s *Session) StoreClient(key string, c any) {
	s.clients[key] = c
}

// ClientCount reports how many clients are memoized.
func (s *Session) ClientCount() int { return len(s.clients) }

// snapshot copies the session; cached clients are not shared.
func (s *Session) snapshot() *Session {
	out := &Session{
		UserID:    s.UserID,
		state:     s.state,
		fields:    s.fields.Clone(),
		epoch:     s.epoch,
		validated: s.validated,
		clients:   map[string]any{},
		touched:   s.touched,
	}
	if s.creds != nil {
		c := *s.creds
		out.creds = &c
	}
	return out
}
