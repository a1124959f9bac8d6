// Package daemon manages the Knightly daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/knightly-chess/knightly/internal/app/modes"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Modes     ModesConfig     `toml:"modes"`
	Engine    EngineConfig    `toml:"engine"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	SessionTTL  string   `toml:"session_ttl"`
}

// StoreConfig controls where training data lives.
type StoreConfig struct {
	Dir      string `toml:"dir"`
	SeedFile string `toml:"seed_file"` // optional extra puzzles, JSON
}

// ModesConfig holds the play mode timings as duration strings.
type ModesConfig struct {
	BlitzLimit   string `toml:"blitz_limit"`
	FailDelay    string `toml:"fail_delay"`
	SolveDelay   string `toml:"solve_delay"`
	RushDuration string `toml:"rush_duration"`
	DailyLimit   string `toml:"daily_limit"`
	EloK         int    `toml:"elo_k"`
}

// EngineConfig controls the optional UCI analysis engine. Its strength
// comes from the game settings.
type EngineConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // empty = discover stockfish
	Depth   int    `toml:"depth"`
	Timeout string `toml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
	File        string `toml:"file"` // empty = stderr only
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := knightlyHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7373,
			CORSOrigins: []string{"*"},
			SessionTTL:  "30m",
		},
		Store: StoreConfig{
			Dir: homeDir,
		},
		Modes: ModesConfig{
			BlitzLimit:   "60s",
			FailDelay:    "3s",
			SolveDelay:   "1.5s",
			RushDuration: "15m",
			DailyLimit:   "60s",
			EloK:         32,
		},
		Engine: EngineConfig{
			Enabled: true,
			Depth:   12,
			Timeout: "3s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// Timings converts the mode durations, falling back to the defaults for
// empty or malformed values.
func (c ModesConfig) Timings() modes.Config {
	def := modes.DefaultConfig()
	k := c.EloK
	if k <= 0 {
		k = def.EloK
	}
	return modes.Config{
		BlitzLimit:   parseDuration(c.BlitzLimit, def.BlitzLimit),
		FailDelay:    parseDuration(c.FailDelay, def.FailDelay),
		SolveDelay:   parseDuration(c.SolveDelay, def.SolveDelay),
		RushDuration: parseDuration(c.RushDuration, def.RushDuration),
		DailyLimit:   parseDuration(c.DailyLimit, def.DailyLimit),
		EloK:         k,
	}
}

// LoadConfig reads config from $KNIGHTLY_HOME/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(knightlyHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = knightlyHome()
	}
	return cfg, nil
}

// SaveConfig writes the config to $KNIGHTLY_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(knightlyHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// knightlyHome returns the Knightly data directory.
func knightlyHome() string {
	if env := os.Getenv("KNIGHTLY_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".knightly")
}

// KnightlyHome is exported for use by other packages.
func KnightlyHome() string {
	return knightlyHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
