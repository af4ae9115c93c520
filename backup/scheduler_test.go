package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/confdesk/confdata"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	engine, _ := newTestEngine(t)
	s := NewScheduler(engine, filepath.Join(t.TempDir(), "schedule.json"), nil, nil)
	t.Cleanup(s.Stop)
	return s
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"daily", Config{Enabled: true, Time: "02:00", Frequency: "daily"}, true},
		{"weekly", Config{Enabled: false, Time: "23:59", Frequency: "weekly"}, true},
		{"bad clock", Config{Time: "25:00", Frequency: "daily"}, false},
		{"missing clock", Config{Time: "", Frequency: "daily"}, false},
		{"bad frequency", Config{Time: "02:00", Frequency: "hourly"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, confdata.ErrInvalidConfig) {
				t.Errorf("expected invalid config error, got %v", err)
			}
		})
	}
}

func TestSchedulerPersistence(t *testing.T) {
	engine, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "schedule.json")

	first := NewScheduler(engine, path, nil, nil)
	cfg := Config{Enabled: false, Time: "03:30", Frequency: FrequencyWeekly}
	if err := first.Update(cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	first.Stop()

	// A fresh scheduler picks the saved config back up on Start.
	second := NewScheduler(engine, path, nil, nil)
	defer second.Stop()
	if err := second.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := second.Config(); got != cfg {
		t.Errorf("loaded config = %+v, want %+v", got, cfg)
	}
}

func TestSchedulerStartWithoutSavedConfig(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := s.Config(); got != DefaultConfig() {
		t.Errorf("expected default config, got %+v", got)
	}
}

func TestSchedulerStartWithCorruptConfig(t *testing.T) {
	engine, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "schedule.json")
	if err := os.WriteFile(path, []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(engine, path, nil, nil)
	if err := s.Start(); !errors.Is(err, confdata.ErrInvalidConfig) {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestSchedulerStartWithInvalidSavedConfig(t *testing.T) {
	engine, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "schedule.json")
	// Well-formed JSON, hand-edited to a time Validate rejects. Arming it
	// would silently fire at midnight.
	saved := `{"enabled":true,"time":"2am","frequency":"daily"}`
	if err := os.WriteFile(path, []byte(saved), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(engine, path, nil, nil)
	defer s.Stop()
	if err := s.Start(); !errors.Is(err, confdata.ErrInvalidConfig) {
		t.Errorf("expected invalid config error, got %v", err)
	}
	if s.cancel != nil {
		t.Error("no job must be armed from an invalid config")
	}
}

func TestSchedulerUpdateRejectsInvalid(t *testing.T) {
	s := newTestScheduler(t)
	err := s.Update(Config{Enabled: true, Time: "soon", Frequency: "daily"})
	if !errors.Is(err, confdata.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
	// The bad config must not replace the current one.
	if got := s.Config(); got != DefaultConfig() {
		t.Errorf("config changed after rejected update: %+v", got)
	}
}

func TestSchedulerRearm(t *testing.T) {
	s := newTestScheduler(t)

	enabled := Config{Enabled: true, Time: "02:00", Frequency: FrequencyDaily}
	if err := s.Update(enabled); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if s.cancel == nil {
		t.Fatal("expected a job armed after enabling")
	}
	firstDone := s.done

	// Updating again cancels the old job before arming the new one.
	if err := s.Update(enabled); err != nil {
		t.Fatalf("re-update failed: %v", err)
	}
	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("previous job still running after update")
	}

	disabled := enabled
	disabled.Enabled = false
	if err := s.Update(disabled); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if s.cancel != nil {
		t.Error("expected no job armed after disabling")
	}
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	t.Run("later today", func(t *testing.T) {
		next := nextOccurrence(now, 15, 0)
		want := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
		if !next.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("already passed rolls to tomorrow", func(t *testing.T) {
		next := nextOccurrence(now, 2, 0)
		want := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
		if !next.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("exact minute rolls forward", func(t *testing.T) {
		next := nextOccurrence(now, 14, 30)
		want := time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)
		if !next.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})
}
