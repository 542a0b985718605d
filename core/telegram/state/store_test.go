package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateStartsIdle(t *testing.T) {
	store := NewStore()
	sess := store.GetOrCreate(42)
	if !sess.State().IsIdle() {
		t.Fatalf("new session state = %s, want idle", sess.State())
	}
	if len(sess.Fields()) != 0 {
		t.Fatalf("new session has fields: %v", sess.Fields())
	}
	if _, ok := sess.Credentials(); ok {
		t.Fatal("new session must not hold credentials")
	}
}

func TestFieldsMergeAndReset(t *testing.T) {
	store := NewStore()
	store.SetState(1, At("vpc.create", 1))
	store.MergeFields(1, Fields{"name": "a"})
	store.MergeFields(1, Fields{"name": "b", "cidr": "10.0.0.0/16"})

	sess := store.GetOrCreate(1)
	if got := sess.Field("name"); got != "b" {
		t.Fatalf("name = %q, want last write", got)
	}
	if sess.State() != At("vpc.create", 1) {
		t.Fatalf("state = %s", sess.State())
	}

	store.Reset(1)
	sess = store.GetOrCreate(1)
	if !sess.State().IsIdle() || len(sess.Fields()) != 0 {
		t.Fatalf("reset left state=%s fields=%v", sess.State(), sess.Fields())
	}
}

func TestResetKeepsCredentials(t *testing.T) {
	store := NewStore()
	creds := Credentials{AccessKey: "ak", SecretKey: "sk", ProjectID: "p", AccountID: "d"}
	_ = store.Do(5, func(s *Session) error {
		s.SetCredentials(creds)
		s.MarkValidated(s.Epoch())
		s.StoreClient("vpc", "client")
		return nil
	})
	store.Reset(5)
	_ = store.Do(5, func(s *Session) error {
		if got, ok := s.Credentials(); !ok || got != creds {
			t.Fatalf("credentials lost on reset: %+v", got)
		}
		if !s.Authorized() {
			t.Fatal("reset must not drop authorization")
		}
		if _, ok := s.Client("vpc"); !ok {
			t.Fatal("reset must not drop cached clients")
		}
		return nil
	})
}

func TestUnauthorizeDropsClientsAndBumpsEpoch(t *testing.T) {
	store := NewStore()
	var before uint64
	_ = store.Do(9, func(s *Session) error {
		s.SetCredentials(Credentials{AccessKey: "ak", SecretKey: "sk", ProjectID: "p", AccountID: "d"})
		s.MarkValidated(s.Epoch())
		s.StoreClient("vpc", struct{}{})
		s.SetState(At("nat.update", 2))
		before = s.Epoch()
		return nil
	})
	store.Unauthorize(9)
	_ = store.Do(9, func(s *Session) error {
		if _, ok := s.Credentials(); ok {
			t.Fatal("credentials must be cleared")
		}
		if s.ClientCount() != 0 {
			t.Fatalf("clients = %d, want 0", s.ClientCount())
		}
		if s.Epoch() == before {
			t.Fatal("epoch must change")
		}
		if s.Authorized() || !s.State().IsIdle() {
			t.Fatal("unauthorized session must be idle and not authorized")
		}
		return nil
	})
}

func TestMarkValidatedIgnoresStaleEpoch(t *testing.T) {
	store := NewStore()
	_ = store.Do(3, func(s *Session) error {
		s.SetCredentials(Credentials{AccessKey: "a"})
		stale := s.Epoch()
		s.SetCredentials(Credentials{AccessKey: "b"})
		s.MarkValidated(stale)
		if s.Validated() {
			t.Fatal("validation of an old epoch must not authorize new credentials")
		}
		return nil
	})
}

func TestConcurrentUsersAreIsolated(t *testing.T) {
	store := NewStore()
	const users = 32
	const steps = 50
	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			for i := 0; i < steps; i++ {
				store.SetState(uid, At(fmt.Sprintf("flow-%d", uid), i))
				store.MergeFields(uid, Fields{"owner": fmt.Sprint(uid), fmt.Sprintf("k%d", i): "v"})
			}
		}(u)
	}
	wg.Wait()

	for u := int64(1); u <= users; u++ {
		sess := store.GetOrCreate(u)
		if sess.State() != At(fmt.Sprintf("flow-%d", u), steps-1) {
			t.Fatalf("user %d state = %s", u, sess.State())
		}
		if sess.Field("owner") != fmt.Sprint(u) {
			t.Fatalf("user %d sees owner %q", u, sess.Field("owner"))
		}
		if len(sess.Fields()) != steps+1 {
			t.Fatalf("user %d fields = %d", u, len(sess.Fields()))
		}
	}
}

func TestDoSerializesSameUser(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Do(7, func(s *Session) error {
				n := len(s.Field("n"))
				s.MergeFields(Fields{"n": s.Field("n") + "x"})
				if len(s.Field("n")) != n+1 {
					t.Error("lost update inside locked section")
				}
				return nil
			})
		}()
	}
	wg.Wait()
	if got := len(store.GetOrCreate(7).Field("n")); got != 100 {
		t.Fatalf("n = %d, want 100", got)
	}
}

func TestDoReleasesLockOnPanic(t *testing.T) {
	store := NewStore()
	func() {
		defer func() { _ = recover() }()
		_ = store.Do(11, func(*Session) error { panic("boom") })
	}()
	done := make(chan struct{})
	go func() {
		store.SetState(11, At("x", 0))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session lock was not released after panic")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.SetState(1, At("a", 0))
	now = now.Add(2 * time.Hour)
	store.SetState(2, At("b", 0))

	if n := store.Sweep(context.Background(), time.Hour); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
	if !store.GetOrCreate(1).State().IsIdle() {
		t.Fatal("evicted user must start from a fresh session")
	}
}

func TestGetOrCreateReturnsDetachedCopy(t *testing.T) {
	store := NewStore()
	store.SetState(3, At("eps.create", 1))

	sess := store.GetOrCreate(3)
	sess.SetState(Idle)
	sess.MergeFields(Fields{"name": "x"})

	if got := store.GetOrCreate(3).State(); got != At("eps.create", 1) {
		t.Fatalf("state = %s, copy leaked into the store", got)
	}
	if got := store.GetOrCreate(3).Field("name"); got != "" {
		t.Fatalf("field = %q, copy leaked into the store", got)
	}
}
