package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"oni-radar.klederson.com/internal/beacon"
)

const (
	AppName    = "ONI-RADAR"
	AppVersion = "1.0"

	// DefaultGameUUID is shared by every device in a game session.
	DefaultGameUUID = "550e8400-e29b-41d4-a716-446655440000"
	// KillerID is the player id (beacon minor) reserved for the oni.
	KillerID = 1000
	// MeasuredPower is the RSSI at 1 meter (dBm) we advertise.
	MeasuredPower = -59
)

// Config holds all application configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Beacon     BeaconConfig     `yaml:"beacon"`
	Advertise  bool             `yaml:"advertise"`
	Scan       bool             `yaml:"scan"`
	Registry   RegistryConfig   `yaml:"registry"`
	Game       GameConfig       `yaml:"game"`
	Validation ValidationConfig `yaml:"validation"`
}

// BeaconConfig identifies this device on air.
type BeaconConfig struct {
	UUID      string `yaml:"uuid"`
	SessionID int    `yaml:"session_id"` // advertised as major
	PlayerID  int    `yaml:"player_id"`  // advertised as minor
	TxPower   int    `yaml:"tx_power"`
}

// RegistryConfig tunes smoothing and expiry.
type RegistryConfig struct {
	Expiry         time.Duration `yaml:"expiry"`
	SmoothingAlpha float64       `yaml:"smoothing_alpha"` // EMA weight of the newest reading
	EvictInterval  time.Duration `yaml:"evict_interval"`
}

// GameConfig holds oni-vs-onmyoji rules.
type GameConfig struct {
	KillerID       int             `yaml:"killer_id"`
	MaxRange       float64         `yaml:"max_range"` // meters
	ReportInterval time.Duration   `yaml:"report_interval"`
	Heartbeat      HeartbeatConfig `yaml:"heartbeat"`
}

// HeartbeatConfig holds heartbeat distance thresholds in meters.
type HeartbeatConfig struct {
	Extreme float64 `yaml:"extreme"`
	Near    float64 `yaml:"near"`
	Mid     float64 `yaml:"mid"`
	Far     float64 `yaml:"far"`
}

// ValidationConfig holds distance-accuracy tolerances in meters.
type ValidationConfig struct {
	NearRange    float64 `yaml:"near_range"`
	MidRange     float64 `yaml:"mid_range"`
	NearAccuracy float64 `yaml:"near_accuracy"`
	MidAccuracy  float64 `yaml:"mid_accuracy"`
	FarAccuracy  float64 `yaml:"far_accuracy"`
	History      int     `yaml:"history"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "oni-radar")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Beacon: BeaconConfig{
			UUID:      DefaultGameUUID,
			SessionID: 1,
			PlayerID:  1001,
			TxPower:   MeasuredPower,
		},
		Advertise: true,
		Scan:      true,
		Registry: RegistryConfig{
			Expiry:         10 * time.Second,
			SmoothingAlpha: 0.3,
			EvictInterval:  2 * time.Second,
		},
		Game: GameConfig{
			KillerID:       KillerID,
			MaxRange:       100,
			ReportInterval: 500 * time.Millisecond,
			Heartbeat: HeartbeatConfig{
				Extreme: 0.5,
				Near:    10,
				Mid:     30,
				Far:     50,
			},
		},
		Validation: ValidationConfig{
			NearRange:    2,
			MidRange:     10,
			NearAccuracy: 0.5,
			MidAccuracy:  2,
			FarAccuracy:  5,
			History:      100,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Beacon.UUID = strings.TrimSpace(cfg.Beacon.UUID)
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, err := c.AdvertisingConfig(); err != nil {
		return fmt.Errorf("beacon: %w", err)
	}
	if c.Beacon.TxPower >= 0 || c.Beacon.TxPower < -128 {
		return fmt.Errorf("beacon.tx_power must be in [-128, -1], got %d", c.Beacon.TxPower)
	}

	if c.Registry.Expiry <= 0 {
		return fmt.Errorf("registry.expiry must be > 0")
	}
	if c.Registry.SmoothingAlpha <= 0 || c.Registry.SmoothingAlpha > 1 {
		return fmt.Errorf("registry.smoothing_alpha must be in (0, 1], got %v", c.Registry.SmoothingAlpha)
	}
	if c.Registry.EvictInterval <= 0 {
		return fmt.Errorf("registry.evict_interval must be > 0")
	}

	if c.Game.KillerID < 0 || c.Game.KillerID > 0xFFFF {
		return fmt.Errorf("game.killer_id must fit in 16 bits, got %d", c.Game.KillerID)
	}
	if c.Game.MaxRange <= 0 {
		return fmt.Errorf("game.max_range must be > 0")
	}
	if c.Game.ReportInterval <= 0 {
		return fmt.Errorf("game.report_interval must be > 0")
	}
	hb := c.Game.Heartbeat
	if !(0 <= hb.Extreme && hb.Extreme < hb.Near && hb.Near < hb.Mid && hb.Mid < hb.Far) {
		return fmt.Errorf("game.heartbeat thresholds must satisfy 0 <= extreme < near < mid < far")
	}

	v := c.Validation
	if !(0 < v.NearRange && v.NearRange < v.MidRange) {
		return fmt.Errorf("validation ranges must satisfy 0 < near_range < mid_range")
	}
	if v.NearAccuracy <= 0 || v.MidAccuracy <= 0 || v.FarAccuracy <= 0 {
		return fmt.Errorf("validation accuracies must be > 0")
	}
	if v.History <= 0 {
		return fmt.Errorf("validation.history must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// AdvertisingConfig returns the beacon this device advertises.
func (c *Config) AdvertisingConfig() (beacon.AdvertisingConfig, error) {
	return beacon.NewAdvertisingConfig(c.Beacon.UUID, c.Beacon.SessionID, c.Beacon.PlayerID)
}

// RegistryOptions converts the registry section.
func (c *Config) RegistryOptions() beacon.RegistryOptions {
	opts := beacon.DefaultRegistryOptions()
	opts.Expiry = c.Registry.Expiry
	opts.Alpha = c.Registry.SmoothingAlpha
	return opts
}
