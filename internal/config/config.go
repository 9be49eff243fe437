// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/housewatch/internal/logger"
)

// Config is the full housewatch configuration
type Config struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Power   PowerConfig   `yaml:"power"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Log     logger.Config `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Journal JournalConfig `yaml:"journal"`
}

// WebhookConfig describes where alerts are sent
type WebhookConfig struct {
	URL           string            `yaml:"url"`
	Mention       string            `yaml:"mention"` // prefix for every message, e.g. "<@1234>: "
	Timeout       time.Duration     `yaml:"timeout"`
	Interface     string            `yaml:"interface"` // bind outgoing requests to this NIC
	RetryAttempts uint              `yaml:"retry_attempts"`
	RatePerMinute int               `yaml:"rate_per_minute"`
	Thumbnails    map[string]string `yaml:"thumbnails"` // alert kind -> image URL
}

// PowerConfig is the UPS pipeline
type PowerConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Address           string        `yaml:"address"`
	UPS               string        `yaml:"ups"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`
	StatusField       string        `yaml:"status_field"`
	InterestingFields []string      `yaml:"interesting_fields"`
	ReconnectAttempts uint          `yaml:"reconnect_attempts"`
}

// SensorConfig is the radio sensor pipeline
type SensorConfig struct {
	Enabled bool              `yaml:"enabled"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Model   string            `yaml:"model"`
	Devices map[uint64]string `yaml:"devices"`
}

// MetricsConfig enables the Prometheus endpoint when ListenAddr is set
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// JournalConfig enables the SQLite alert journal when Path is set
type JournalConfig struct {
	Path string `yaml:"path"`
}

// DefaultInterestingFields are shown with every UPS status change
var DefaultInterestingFields = []string{
	"ups.status",
	"ups.load",
	"input.voltage",
	"input.transfer.reason",
	"battery.runtime",
	"battery.voltage",
}

// Default returns the configuration used for anything a file leaves out
func Default() *Config {
	return &Config{
		Webhook: WebhookConfig{
			Timeout:       30 * time.Second,
			RetryAttempts: 1,
		},
		Power: PowerConfig{
			Enabled:           true,
			Address:           "127.0.0.1:3493",
			UPS:               "apc-1",
			PollInterval:      10 * time.Second,
			DialTimeout:       5 * time.Second,
			StatusField:       "ups.status",
			ReconnectAttempts: 5,
		},
		Sensor: SensorConfig{
			Enabled: true,
			Command: "rtl_433",
			Model:   "Govee-Water",
		},
		Log: logger.Config{
			Level:  "info",
			Output: "stdout",
		},
	}
}

// Load reads config from a YAML file with env overrides. An empty path
// uses defaults and the environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Collections are filled after decoding so a file replaces them instead of merging
	if cfg.Power.InterestingFields == nil {
		cfg.Power.InterestingFields = append([]string(nil), DefaultInterestingFields...)
	}
	if cfg.Sensor.Args == nil {
		cfg.Sensor.Args = []string{"-F", "json"}
	}

	// Env overrides
	if u := os.Getenv("HOUSEWATCH_WEBHOOK_URL"); u != "" {
		cfg.Webhook.URL = u
	} else if u := os.Getenv("DISCORD_WEBHOOK"); u != "" {
		cfg.Webhook.URL = u
	}
	if mention := os.Getenv("DISCORD_RECIPIENT"); mention != "" {
		cfg.Webhook.Mention = mention
	}
	if iface := os.Getenv("HOUSEWATCH_INTERFACE"); iface != "" {
		cfg.Webhook.Interface = iface
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

// Validate checks the settings the pipelines cannot run without
func (c *Config) Validate() error {
	var errs []error

	if c.Webhook.URL == "" {
		errs = append(errs, errors.New("webhook url is required (set HOUSEWATCH_WEBHOOK_URL)"))
	} else if u, err := url.Parse(c.Webhook.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("webhook url %q is not an http(s) URL", c.Webhook.URL))
	}

	if c.Power.Enabled {
		if c.Power.Address == "" {
			errs = append(errs, errors.New("power.address is required"))
		}
		if c.Power.UPS == "" {
			errs = append(errs, errors.New("power.ups is required"))
		}
		if c.Power.PollInterval <= 0 {
			errs = append(errs, errors.New("power.poll_interval must be positive"))
		}
	}

	if c.Sensor.Enabled {
		if c.Sensor.Command == "" {
			errs = append(errs, errors.New("sensor.command is required"))
		}
		if c.Sensor.Model == "" {
			errs = append(errs, errors.New("sensor.model is required"))
		}
	}

	return errors.Join(errs...)
}
