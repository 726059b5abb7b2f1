package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from Go duration strings
// ("30s", "5m") in YAML and environment values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all configuration for one refresh run. It is constructed
// once at startup and never mutated afterwards.
type Config struct {
	Panel    PanelConfig   `yaml:"panel"`
	Target   TargetConfig  `yaml:"target"`
	Browser  BrowserConfig `yaml:"browser"`
	Deadline Duration      `yaml:"deadline"` // overall refresh deadline
	Redis    RedisConfig   `yaml:"redis"`
}

// PanelConfig holds the physical panel geometry and mounting corrections.
type PanelConfig struct {
	Width    int  `yaml:"width"`
	Height   int  `yaml:"height"`
	Portrait bool `yaml:"portrait"` // quarter turn to match a rotated mount
	TopDown  bool `yaml:"topdown"`  // half turn for an upside-down mount
	Invert   bool `yaml:"invert"`   // luminance-negate the capture before classification
}

// TargetConfig holds the dashboard page settings.
type TargetConfig struct {
	URL          string   `yaml:"url"`
	ProbeTimeout Duration `yaml:"probe_timeout"`
}

// BrowserConfig holds the headless browser settings and per-step timeouts.
type BrowserConfig struct {
	ExecPath          string   `yaml:"exec_path"`
	LaunchTimeout     Duration `yaml:"launch_timeout"`
	NavigationTimeout Duration `yaml:"navigation_timeout"`
	SettleWait        Duration `yaml:"settle_wait"`
	CaptureTimeout    Duration `yaml:"capture_timeout"`
	CloseTimeout      Duration `yaml:"close_timeout"` // graceful shutdown budget before a forced kill
	MaxHeapMB         int      `yaml:"max_heap_mb"`   // cap on the browser's script heap
}

// RedisConfig holds the optional status-publishing settings. Publishing is
// enabled only when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// Load loads configuration from environment variables, optionally overlaid
// by a YAML file pointed to by RENDERER_CONFIG.
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Panel: PanelConfig{
			Width:    getEnvAsInt("PANEL_WIDTH", 960),
			Height:   getEnvAsInt("PANEL_HEIGHT", 680),
			Portrait: getEnvAsBool("PANEL_PORTRAIT", false),
			TopDown:  getEnvAsBool("PANEL_TOPDOWN", true),
			Invert:   getEnvAsBool("PANEL_INVERT", true),
		},
		Target: TargetConfig{
			URL:          getEnv("TARGET_URL", "http://localhost:8080"),
			ProbeTimeout: getEnvAsDuration("PROBE_TIMEOUT", 5*time.Second),
		},
		Browser: BrowserConfig{
			ExecPath:          getEnv("BROWSER_EXEC_PATH", "/usr/bin/chromium-browser"),
			LaunchTimeout:     getEnvAsDuration("BROWSER_LAUNCH_TIMEOUT", 30*time.Second),
			NavigationTimeout: getEnvAsDuration("BROWSER_NAVIGATION_TIMEOUT", 60*time.Second),
			SettleWait:        getEnvAsDuration("BROWSER_SETTLE_WAIT", 30*time.Second),
			CaptureTimeout:    getEnvAsDuration("BROWSER_CAPTURE_TIMEOUT", 60*time.Second),
			CloseTimeout:      getEnvAsDuration("BROWSER_CLOSE_TIMEOUT", 5*time.Second),
			MaxHeapMB:         getEnvAsInt("BROWSER_MAX_HEAP_MB", 128),
		},
		Deadline: getEnvAsDuration("REFRESH_DEADLINE", 5*time.Minute),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "epaper:refresh"),
		},
	}

	if path := getEnv("RENDERER_CONFIG", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays the YAML file at path onto the current values. Only
// keys present in the file are replaced.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		return fmt.Errorf("panel geometry must be positive, got %dx%d", c.Panel.Width, c.Panel.Height)
	}
	if c.Target.URL == "" {
		return fmt.Errorf("target URL is required")
	}
	if c.Deadline <= 0 {
		return fmt.Errorf("refresh deadline must be positive")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a Go duration string or
// returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return Duration(d)
		}
	}
	return Duration(defaultValue)
}
