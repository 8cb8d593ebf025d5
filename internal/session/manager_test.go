package session

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/strategy"
	"brandstudio/internal/providers/style"
)

func newTestManager(now *time.Time) *Manager {
	return NewManager(Dependencies{
		Analyzer:  strategy.Static{},
		Suggester: style.Static{},
		Generator: &fakeGenerator{},
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return *now },
	}, time.Hour)
}

func TestManagerLifecycle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := newTestManager(&now)

	s := m.Create(domain.LocaleEN)
	if s.ID() == "" || s.Locale() != domain.LocaleEN {
		t.Fatalf("session = %q/%q", s.ID(), s.Locale())
	}
	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := newTestManager(&now)
	stale := m.Create("")
	fresh := m.Create("")
	events, cancel := m.Hub().Subscribe(stale.ID())
	defer cancel()

	now = now.Add(50 * time.Minute)
	if _, err := m.Get(fresh.ID()); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	now = now.Add(20 * time.Minute)

	if n := m.Sweep(now); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := m.Get(stale.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatal("idle session survived the sweep")
	}
	if _, err := m.Get(fresh.ID()); err != nil {
		t.Fatal("recently used session was evicted")
	}
	if _, ok := <-events; ok {
		t.Fatal("subscription of an evicted session should be closed")
	}
}

func TestManagerPublishesToHub(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := newTestManager(&now)
	s := m.Create("")
	events, cancel := m.Hub().Subscribe(s.ID())
	defer cancel()

	s.SetModelUploadOverride(true)
	select {
	case snap := <-events:
		if !snap.ModelUploadOverride || snap.ID != s.ID() {
			t.Fatalf("snapshot = %#v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	m.Close()
	if m.Len() != 0 {
		t.Fatalf("sessions after close = %d", m.Len())
	}
}
