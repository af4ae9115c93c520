package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/confdesk/confdata"
)

// Schedule frequencies.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// ScheduleFileName is the schedule config file. It lives alongside the
// backup archives, so the engine treats the name as reserved.
const ScheduleFileName = "schedule.json"

// Config is the persisted backup schedule.
type Config struct {
	Enabled   bool   `json:"enabled"`
	Time      string `json:"time"`
	Frequency string `json:"frequency"`
}

// DefaultConfig is used when no schedule has ever been saved.
func DefaultConfig() Config {
	return Config{Enabled: false, Time: "02:00", Frequency: FrequencyDaily}
}

// Validate checks the schedule fields. Time must be a 24h "HH:MM" clock.
func (c Config) Validate() error {
	if _, err := time.Parse("15:04", c.Time); err != nil {
		return confdata.WithContext(confdata.ErrInvalidConfig, map[string]interface{}{
			"field":  "time",
			"value":  c.Time,
			"reason": "must be HH:MM",
		})
	}
	if c.Frequency != FrequencyDaily && c.Frequency != FrequencyWeekly {
		return confdata.WithContext(confdata.ErrInvalidConfig, map[string]interface{}{
			"field":  "frequency",
			"value":  c.Frequency,
			"reason": "must be daily or weekly",
		})
	}
	return nil
}

// Scheduler runs automatic backups on a persisted schedule. Updating the
// schedule replaces the armed job atomically: the old job is cancelled
// before the new one starts counting down.
type Scheduler struct {
	engine     *Engine
	configPath string
	logger     confdata.Logger
	metrics    confdata.Metrics

	mu     sync.Mutex
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler persisting its config at configPath.
// Call Start to load the saved schedule and arm it.
func NewScheduler(engine *Engine, configPath string, logger confdata.Logger, metrics confdata.Metrics) *Scheduler {
	if logger == nil {
		logger = &confdata.NoOpLogger{}
	}
	if metrics == nil {
		metrics = &confdata.NoOpMetrics{}
	}
	return &Scheduler{
		engine:     engine,
		configPath: configPath,
		logger:     logger,
		metrics:    metrics,
		cfg:        DefaultConfig(),
	}
}

// Start loads the persisted schedule and arms it if enabled. A missing
// config file means no schedule was ever saved and is not an error; a
// config that does not validate is.
func (s *Scheduler) Start() error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.rearmLocked()
	return nil
}

// Stop cancels the armed job, if any, and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
}

// Config returns the current schedule.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update validates, persists, and applies a new schedule. The previous
// job is cancelled first so at most one job is ever armed.
func (s *Scheduler) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.save(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.rearmLocked()
	s.logger.Info("backup schedule updated",
		"enabled", cfg.Enabled, "time", cfg.Time, "frequency", cfg.Frequency)
	return nil
}

func (s *Scheduler) load() (Config, error) {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, confdata.WithContext(confdata.ErrInvalidConfig, map[string]interface{}{
			"path":   s.configPath,
			"reason": err.Error(),
		})
	}
	return cfg, nil
}

func (s *Scheduler) save(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.configPath), confdata.DefaultDirPermissions); err != nil {
		return err
	}
	return os.WriteFile(s.configPath, data, confdata.DefaultFilePermissions)
}

func (s *Scheduler) disarmLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) rearmLocked() {
	s.disarmLocked()
	if !s.cfg.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, s.cfg, done)
}

// run sleeps until each scheduled occurrence and fires a backup. Errors
// from an automatic run are logged, never propagated: the schedule keeps
// going.
func (s *Scheduler) run(ctx context.Context, cfg Config, done chan<- struct{}) {
	defer close(done)

	clock, _ := time.Parse("15:04", cfg.Time)
	next := nextOccurrence(time.Now(), clock.Hour(), clock.Minute())
	s.logger.Info("backup schedule armed", "next", next, "frequency", cfg.Frequency)

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.metrics.Increment(confdata.MetricBackupScheduled)
		if filename, err := s.engine.Create(ctx, true); err != nil {
			s.logger.Error("scheduled backup failed", "error", err)
		} else {
			s.logger.Info("scheduled backup completed", "filename", filename)
		}

		if cfg.Frequency == FrequencyWeekly {
			next = next.Add(7 * 24 * time.Hour)
		} else {
			next = nextOccurrence(time.Now(), clock.Hour(), clock.Minute())
		}
	}
}

// nextOccurrence returns the first HH:MM clock reading strictly after now.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
