package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete dealer configuration.
type Config struct {
	Session SessionSettings `hcl:"session,block"`
}

// SessionSettings configures a single table session.
type SessionSettings struct {
	ListenAddr   string `hcl:"listen_addr,optional"`
	WSListenAddr string `hcl:"ws_listen_addr,optional"`
	MetricsAddr  string `hcl:"metrics_addr,optional"`

	Players        int   `hcl:"players,optional"`
	Blind          int   `hcl:"blind,optional"`
	Hands          int   `hcl:"hands,optional"`
	TurnTimeoutMS  int   `hcl:"turn_timeout_ms,optional"`
	HandIntervalMS int   `hcl:"hand_interval_ms,optional"`
	PostBlinds     *bool `hcl:"post_blinds,optional"`
	StartChips     int   `hcl:"start_chips,optional"`

	OutputDir  string `hcl:"output_dir,optional"`
	HistoryDir string `hcl:"history_dir,optional"` // PHH export, empty disables
	StatusFile string `hcl:"status_file,optional"`
	LogLevel   string `hcl:"log_level,optional"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults rather than an error.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	s := &c.Session
	if s.ListenAddr == "" {
		s.ListenAddr = "localhost:4000"
	}
	if s.Players == 0 {
		s.Players = 2
	}
	if s.Blind == 0 {
		s.Blind = 10
	}
	if s.Hands == 0 {
		s.Hands = 1
	}
	if s.TurnTimeoutMS == 0 {
		s.TurnTimeoutMS = 10000
	}
	if s.HandIntervalMS == 0 {
		s.HandIntervalMS = 500
	}
	if s.PostBlinds == nil {
		posted := true
		s.PostBlinds = &posted
	}
	if s.StartChips == 0 {
		s.StartChips = 1000
	}
	if s.OutputDir == "" {
		s.OutputDir = "hands"
	}
	if s.StatusFile == "" {
		s.StatusFile = "game_status"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}

// Validate checks the configuration for values the session cannot run with.
func (c *Config) Validate() error {
	s := c.Session
	if s.Players < 2 || s.Players > 10 {
		return fmt.Errorf("players must be between 2 and 10, got %d", s.Players)
	}
	if s.Blind < 2 || s.Blind%2 != 0 {
		return fmt.Errorf("blind must be a positive even amount, got %d", s.Blind)
	}
	if s.Hands < 1 {
		return fmt.Errorf("hands must be at least 1, got %d", s.Hands)
	}
	if s.TurnTimeoutMS < 1 {
		return fmt.Errorf("turn_timeout_ms must be positive, got %d", s.TurnTimeoutMS)
	}
	if s.HandIntervalMS < 0 {
		return fmt.Errorf("hand_interval_ms cannot be negative, got %d", s.HandIntervalMS)
	}
	if s.StartChips < s.Blind {
		return fmt.Errorf("start_chips %d cannot be below the blind %d", s.StartChips, s.Blind)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}

// TurnTimeout is the per-turn action deadline.
func (s SessionSettings) TurnTimeout() time.Duration {
	return time.Duration(s.TurnTimeoutMS) * time.Millisecond
}

// HandInterval is the pause between hands in continuous mode.
func (s SessionSettings) HandInterval() time.Duration {
	return time.Duration(s.HandIntervalMS) * time.Millisecond
}

// PostBlindsEnabled reports whether the server posts blinds itself.
func (s SessionSettings) PostBlindsEnabled() bool {
	return s.PostBlinds == nil || *s.PostBlinds
}
