package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/vanshika/chatterledger/backend/internal/domain"
)

// TeamsFile is the on-disk shape of LEDGER_TEAMS_FILE.
//
//	teams:
//	  agency-a:
//	    timezone: Europe/Prague
//	    dayOffset: 2h
//	    newClientMultiplier: 3
type TeamsFile struct {
	Teams map[string]TeamOverride `yaml:"teams"`
}

// TeamOverride replaces the ledger defaults for one team. Empty fields keep
// the default.
type TeamOverride struct {
	Timezone            string  `yaml:"timezone"`
	DayOffset           string  `yaml:"dayOffset"`
	Currency            string  `yaml:"currency"`
	HotWindow           string  `yaml:"hotWindow"`
	NewClientMultiplier float64 `yaml:"newClientMultiplier"`
}

// Teams resolves per-team settings from the ledger defaults and an optional
// YAML file that is hot-reloaded on change.
type Teams struct {
	path     string
	defaults LedgerConfig
	logger   *slog.Logger

	mu       sync.RWMutex
	current  map[string]domain.TeamSettings
	onChange []func()
}

// NewTeams creates the registry and performs the initial load when a file
// path is configured.
func NewTeams(defaults LedgerConfig, logger *slog.Logger) (*Teams, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Teams{
		path:     defaults.TeamsFile,
		defaults: defaults,
		logger:   logger.With("component", "team_settings"),
		current:  map[string]domain.TeamSettings{},
	}
	if t.path == "" {
		return t, nil
	}
	settings, err := t.load()
	if err != nil {
		return nil, err
	}
	t.current = settings
	return t, nil
}

// Settings returns the effective settings for a team.
func (t *Teams) Settings(teamID string) domain.TeamSettings {
	t.mu.RLock()
	s, ok := t.current[teamID]
	t.mu.RUnlock()
	if ok {
		return s
	}
	return t.base(teamID)
}

// OnChange registers a callback invoked after every successful reload.
func (t *Teams) OnChange(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// Watch hot-reloads the teams file until the returned stop function is called.
// Without a configured file it is a no-op.
func (t *Teams) Watch() (stop func(), err error) {
	if t.path == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("teams watcher: %w", err)
	}
	if err := w.Add(t.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("teams watcher add %s: %w", t.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if err := t.Reload(); err != nil {
						t.logger.Warn("team settings reload failed, keeping previous", "error", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				t.logger.Warn("team settings watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the teams file.
func (t *Teams) Reload() error {
	settings, err := t.load()
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.current = settings
	callbacks := make([]func(), len(t.onChange))
	copy(callbacks, t.onChange)
	t.mu.Unlock()

	t.logger.Info("team settings reloaded", "teams", len(settings))
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (t *Teams) base(teamID string) domain.TeamSettings {
	return domain.TeamSettings{
		TeamID:              teamID,
		Timezone:            t.defaults.Timezone,
		DayOffset:           t.defaults.DayOffset,
		Currency:            t.defaults.Currency,
		NewClientMultiplier: t.defaults.NewClientMultiplier,
		HotWindow:           t.defaults.HotWindow,
	}
}

func (t *Teams) load() (map[string]domain.TeamSettings, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("read teams file %s: %w", t.path, err)
	}
	var file TeamsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse teams file %s: %w", t.path, err)
	}

	out := make(map[string]domain.TeamSettings, len(file.Teams))
	for teamID, o := range file.Teams {
		s := t.base(teamID)
		if o.Timezone != "" {
			if _, err := time.LoadLocation(o.Timezone); err != nil {
				return nil, fmt.Errorf("team %s: invalid timezone %q: %w", teamID, o.Timezone, err)
			}
			s.Timezone = o.Timezone
		}
		if o.DayOffset != "" {
			if s.DayOffset, err = time.ParseDuration(o.DayOffset); err != nil {
				return nil, fmt.Errorf("team %s: invalid dayOffset: %w", teamID, err)
			}
		}
		if o.HotWindow != "" {
			if s.HotWindow, err = time.ParseDuration(o.HotWindow); err != nil {
				return nil, fmt.Errorf("team %s: invalid hotWindow: %w", teamID, err)
			}
		}
		if o.Currency != "" {
			s.Currency = o.Currency
		}
		if o.NewClientMultiplier > 0 {
			s.NewClientMultiplier = o.NewClientMultiplier
		}
		out[teamID] = s
	}
	return out, nil
}
