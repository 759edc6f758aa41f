package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "Europe/Prague", cfg.Ledger.Timezone)
	assert.Equal(t, 2*time.Hour, cfg.Ledger.DayOffset)
	assert.Equal(t, "CZK", cfg.Ledger.Currency)
	assert.Equal(t, 60*time.Minute, cfg.Ledger.HotWindow)
	assert.Equal(t, 2.0, cfg.Ledger.NewClientMultiplier)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Graph.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Graph.BreakerTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LEDGER_TIMEZONE", "America/New_York")
	t.Setenv("LEDGER_DAY_OFFSET", "4h")
	t.Setenv("LEDGER_NEW_CLIENT_MULTIPLIER", "3")
	t.Setenv("SERVER_RATE_LIMIT_RPS", "12.5")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("GRAPH_BREAKER_TIMEOUT", "5s")
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Ledger.Timezone)
	assert.Equal(t, 4*time.Hour, cfg.Ledger.DayOffset)
	assert.Equal(t, 3.0, cfg.Ledger.NewClientMultiplier)
	assert.Equal(t, 12.5, cfg.HTTP.RateLimitRPS)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Graph.BreakerTimeout)
	assert.Equal(t, "10.0.0.0/8, 192.168.1.10", cfg.HTTP.TrustedProxiesCSV)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"LEDGER_TIMEZONE":              "Mars/Olympus",
		"LEDGER_DAY_OFFSET":            "two hours",
		"LEDGER_NEW_CLIENT_MULTIPLIER": "-1",
		"SERVER_PORT":                  "70000",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func ledgerDefaults() LedgerConfig {
	return LedgerConfig{
		Timezone:            "Europe/Prague",
		DayOffset:           2 * time.Hour,
		Currency:            "CZK",
		HotWindow:           time.Hour,
		NewClientMultiplier: 2,
	}
}

func TestTeams_DefaultsWithoutFile(t *testing.T) {
	teams, err := NewTeams(ledgerDefaults(), nil)
	require.NoError(t, err)

	s := teams.Settings("agency-a")
	assert.Equal(t, "agency-a", s.TeamID)
	assert.Equal(t, "Europe/Prague", s.Timezone)
	assert.Equal(t, 2.0, s.NewClientMultiplier)

	stop, err := teams.Watch()
	require.NoError(t, err)
	stop()
}

func TestTeams_FileOverridesAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
teams:
  agency-a:
    timezone: America/New_York
    dayOffset: 4h
    newClientMultiplier: 3
`), 0o600))

	defaults := ledgerDefaults()
	defaults.TeamsFile = path
	teams, err := NewTeams(defaults, nil)
	require.NoError(t, err)

	a := teams.Settings("agency-a")
	assert.Equal(t, "America/New_York", a.Timezone)
	assert.Equal(t, 4*time.Hour, a.DayOffset)
	assert.Equal(t, 3.0, a.NewClientMultiplier)
	assert.Equal(t, time.Hour, a.HotWindow)
	assert.Equal(t, "Europe/Prague", teams.Settings("agency-b").Timezone)

	reloaded := 0
	teams.OnChange(func() { reloaded++ })
	require.NoError(t, os.WriteFile(path, []byte(`
teams:
  agency-a:
    hotWindow: 30m
`), 0o600))
	require.NoError(t, teams.Reload())

	assert.Equal(t, 1, reloaded)
	a = teams.Settings("agency-a")
	assert.Equal(t, 30*time.Minute, a.HotWindow)
	assert.Equal(t, "Europe/Prague", a.Timezone)
}

func TestTeams_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams:\n  a:\n    timezone: Nowhere/Else\n"), 0o600))

	defaults := ledgerDefaults()
	defaults.TeamsFile = path
	_, err := NewTeams(defaults, nil)
	assert.Error(t, err)
}
