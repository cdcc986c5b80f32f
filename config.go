package synthia

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a satellite client. It is an immutable
// value injected at construction; zero fields are filled with defaults by
// withDefaults.
type Config struct {
	// FederationURL is the base URL of the federation backend
	// (e.g. "https://qblock.example.com").
	FederationURL string `yaml:"federation_url"`
	// APIKey is sent with every federation call. Optional for local stacks.
	APIKey string `yaml:"api_key"`
	// SatelliteID identifies this edge client instance, distinct from the
	// user identity.
	SatelliteID string `yaml:"satellite_id"`
	// SessionID identifies the current session. Defaults to a random UUID.
	SessionID string `yaml:"session_id"`

	// RequestTimeout bounds every federation call except the health ping.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// HealthTimeout bounds the health ping. Default 3s.
	HealthTimeout time.Duration `yaml:"health_timeout"`

	// MaxMemories bounds the local memory list. Default 50.
	MaxMemories int `yaml:"max_memories"`
	// WindowSize bounds the sovereign conversation window. Default 10.
	WindowSize int `yaml:"window_size"`

	// PreferenceMinConfidence is the minimum confidence for an extracted
	// preference to be evolved. Default 0.6.
	PreferenceMinConfidence float64 `yaml:"preference_min_confidence"`
	// PatternMinConfidence is the minimum confidence for an extracted
	// behavior pattern to be evolved. Default 0.5.
	PatternMinConfidence float64 `yaml:"pattern_min_confidence"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// withDefaults returns a copy with zero fields defaulted.
func (c Config) withDefaults() Config {
	if c.SatelliteID == "" {
		c.SatelliteID = "satellite"
	}
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = 3 * time.Second
	}
	if c.MaxMemories <= 0 {
		c.MaxMemories = 50
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
	if c.PreferenceMinConfidence <= 0 {
		c.PreferenceMinConfidence = 0.6
	}
	if c.PatternMinConfidence <= 0 {
		c.PatternMinConfidence = 0.5
	}
	return c
}

// NewConfigFromEnv loads configuration from environment variables, with .env
// file support via godotenv (missing .env is not an error).
//
// Recognized variables: QBLOCK_FEDERATION_URL, QBLOCK_API_KEY,
// QBLOCK_SATELLITE_ID, QBLOCK_SESSION_ID, QBLOCK_REQUEST_TIMEOUT_MS,
// QBLOCK_DEBUG.
func NewConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	url := strings.TrimSpace(os.Getenv("QBLOCK_FEDERATION_URL"))
	if url == "" {
		return Config{}, fmt.Errorf("federation url not configured: set QBLOCK_FEDERATION_URL in environment")
	}

	cfg := Config{
		FederationURL: url,
		APIKey:        os.Getenv("QBLOCK_API_KEY"),
		SatelliteID:   os.Getenv("QBLOCK_SATELLITE_ID"),
		SessionID:     os.Getenv("QBLOCK_SESSION_ID"),
		Debug:         os.Getenv("QBLOCK_DEBUG") == "1",
	}
	if raw := os.Getenv("QBLOCK_REQUEST_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg.withDefaults(), nil
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.FederationURL == "" {
		return Config{}, fmt.Errorf("config: federation_url missing in %s", path)
	}
	return cfg.withDefaults(), nil
}

// Summary returns a one-line description for startup logging.
func (c Config) Summary() string {
	return fmt.Sprintf("satellite=%s session=%s federation=%s debug=%v",
		c.SatelliteID, c.SessionID, c.FederationURL, c.Debug)
}
