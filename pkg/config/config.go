package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Nav    NavConfig    `yaml:"nav"`
	GPS    GPSConfig    `yaml:"gps"`
	Log    LogConfig    `yaml:"log"`
	DB     DBConfig     `yaml:"db"`
	Server ServerConfig `yaml:"server"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// NavConfig holds the navigation-core policy knobs.
type NavConfig struct {
	MaxAccuracyM float64 `yaml:"max_accuracy_m"` // Fixes above this are excluded from alerting
	AlertRadiusM float64 `yaml:"alert_radius_m"` // Proximity-alert trigger distance
	HistorySize  int     `yaml:"history_size"`   // Speed/altitude rolling window capacity
}

// GPSConfig holds settings for the position source.
type GPSConfig struct {
	Provider   string       `yaml:"provider"` // "serial", "tcp", "mock"
	Serial     SerialConfig `yaml:"serial"`
	TCP        TCPConfig    `yaml:"tcp"`
	Mock       MockConfig   `yaml:"mock"`
	FixTimeout Duration     `yaml:"fix_timeout"` // Stale-provider watchdog
}

// SerialConfig holds NMEA serial port settings.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud uint   `yaml:"baud"`
}

// TCPConfig holds settings for a TCP NMEA line feed.
type TCPConfig struct {
	Address string `yaml:"address"`
}

// MockConfig holds settings for the development walker source.
type MockConfig struct {
	StartLat   float64  `yaml:"start_lat"`
	StartLon   float64  `yaml:"start_lon"`
	SpeedKmh   float64  `yaml:"speed_kmh"`
	HeadingDeg float64  `yaml:"heading_deg"`
	Interval   Duration `yaml:"interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MQTTConfig holds the optional telemetry publisher settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Nav: NavConfig{
			MaxAccuracyM: 20,
			AlertRadiusM: 30,
			HistorySize:  60,
		},
		GPS: GPSConfig{
			Provider: "mock",
			Serial: SerialConfig{
				Port: "/dev/ttyUSB0",
				Baud: 9600,
			},
			TCP: TCPConfig{
				Address: "localhost:10110",
			},
			Mock: MockConfig{
				StartLat:   51.6845,
				StartLon:   14.4234,
				SpeedKmh:   4.5,
				HeadingDeg: 45,
				Interval:   Duration(1 * time.Second),
			},
			FixTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Path:  "./logs/fieldnav.log",
			Level: "INFO",
		},
		DB: DBConfig{
			Path: "./data/fieldnav.db",
		},
		Server: ServerConfig{
			Address: "localhost:1890",
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Broker:   "tcp://localhost:1883",
			ClientID: "fieldnav",
			Topic:    "fieldnav/state",
		},
	}
}

// Load loads the configuration from the given path.
// Defaults are merged with whatever the file defines; a missing file
// just yields the defaults. Nothing is written back to disk so user
// formatting and comments survive.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Env fallbacks for deploy-specific values.
	if v := os.Getenv("FIELDNAV_GPS_PORT"); v != "" {
		cfg.GPS.Serial.Port = v
	}
	if v := os.Getenv("FIELDNAV_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Nav.MaxAccuracyM <= 0 {
		return fmt.Errorf("nav.max_accuracy_m must be positive, got %v", c.Nav.MaxAccuracyM)
	}
	if c.Nav.AlertRadiusM <= 0 {
		return fmt.Errorf("nav.alert_radius_m must be positive, got %v", c.Nav.AlertRadiusM)
	}
	if c.Nav.HistorySize < 1 {
		return fmt.Errorf("nav.history_size must be at least 1, got %d", c.Nav.HistorySize)
	}
	switch c.GPS.Provider {
	case "serial", "tcp", "mock":
	default:
		return fmt.Errorf("unknown gps.provider %q", c.GPS.Provider)
	}
	return nil
}

// Save writes the configuration to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
