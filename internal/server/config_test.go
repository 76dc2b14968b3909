package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	s := cfg.Session
	assert.Equal(t, "localhost:4000", s.ListenAddr)
	assert.Equal(t, 2, s.Players)
	assert.Equal(t, 10, s.Blind)
	assert.Equal(t, 1, s.Hands)
	assert.Equal(t, 10*time.Second, s.TurnTimeout())
	assert.Equal(t, 500*time.Millisecond, s.HandInterval())
	assert.True(t, s.PostBlindsEnabled())
	assert.Equal(t, 1000, s.StartChips)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealerd.hcl")
	content := `
session {
  listen_addr      = "0.0.0.0:9000"
  players          = 4
  blind            = 20
  hands            = 50
  turn_timeout_ms  = 3000
  hand_interval_ms = 100
  post_blinds      = false
  start_chips      = 2000
  history_dir      = "histories"
  log_level        = "debug"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	s := cfg.Session
	assert.Equal(t, "0.0.0.0:9000", s.ListenAddr)
	assert.Equal(t, 4, s.Players)
	assert.Equal(t, 20, s.Blind)
	assert.Equal(t, 50, s.Hands)
	assert.Equal(t, 3*time.Second, s.TurnTimeout())
	assert.False(t, s.PostBlindsEnabled())
	assert.Equal(t, 2000, s.StartChips)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "histories", s.HistoryDir)
	// Untouched fields still get their defaults.
	assert.Equal(t, "hands", s.OutputDir)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte("session {"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SessionSettings)
	}{
		{"too few players", func(s *SessionSettings) { s.Players = 1 }},
		{"too many players", func(s *SessionSettings) { s.Players = 11 }},
		{"odd blind", func(s *SessionSettings) { s.Blind = 15 }},
		{"negative hands", func(s *SessionSettings) { s.Hands = -1 }},
		{"negative timeout", func(s *SessionSettings) { s.TurnTimeoutMS = -5 }},
		{"negative interval", func(s *SessionSettings) { s.HandIntervalMS = -1 }},
		{"chips below blind", func(s *SessionSettings) { s.StartChips = 4 }},
		{"bad log level", func(s *SessionSettings) { s.LogLevel = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg.Session)
			assert.Error(t, cfg.Validate())
		})
	}
}
