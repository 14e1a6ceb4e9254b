// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
	// Milliseconds SQLite waits on a locked database before returning SQLITE_BUSY.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
}

// BookingConfig describes the venue's daily operating window and booking policy.
type BookingConfig struct {
	Timezone  string `yaml:"timezone"`
	OpenHour  int    `yaml:"open_hour"`
	CloseHour int    `yaml:"close_hour"`
	// VenueWideOverlap rejects a booking that overlaps a confirmed reservation on any court.
	VenueWideOverlap *bool `yaml:"venue_wide_overlap"`
}

type AuthConfig struct {
	TokenTTL          string `yaml:"token_ttl"`
	LoginMaxAttempts  int    `yaml:"login_max_attempts"`
	LoginLockout      string `yaml:"login_lockout"`
	LoginMaxIPPerHour int    `yaml:"login_max_ip_per_hour"`
	TrustProxy        bool   `yaml:"trust_proxy"`

	// Region assumed for phone numbers given without a country code.
	PhoneRegion string `yaml:"phone_region"`
}

type EmailConfig struct {
	Region           string `yaml:"region"`
	Sender           string `yaml:"sender"`
	ReplyTo          string `yaml:"reply_to"`
	ConfigurationSet string `yaml:"configuration_set"`
	// Loaded from environment
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type RemindersConfig struct {
	Cron        string `yaml:"cron"`
	HoursBefore int    `yaml:"hours_before"`
}

type EventsConfig struct {
	Exchange string `yaml:"exchange"`
	URL      string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Auth      AuthConfig      `yaml:"auth"`
	Email     EmailConfig     `yaml:"email"`
	Reminders RemindersConfig `yaml:"reminders"`
	Events    EventsConfig    `yaml:"events"`

	Features struct {
		EnableEmail     bool `yaml:"enable_email"`
		EnableReminders bool `yaml:"enable_reminders"`
		EnableEvents    bool `yaml:"enable_events"`
		EnableDebug     bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	cfg.Events.URL = os.Getenv("AMQP_URL")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Booking.OpenHour == 0 && c.Booking.CloseHour == 0 {
		c.Booking.OpenHour = 8
		c.Booking.CloseHour = 22
	}
	if c.Booking.VenueWideOverlap == nil {
		enabled := true
		c.Booking.VenueWideOverlap = &enabled
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if c.Auth.LoginMaxAttempts == 0 {
		c.Auth.LoginMaxAttempts = 5
	}
	if c.Auth.LoginLockout == "" {
		c.Auth.LoginLockout = "5m"
	}
	if c.Auth.LoginMaxIPPerHour == 0 {
		c.Auth.LoginMaxIPPerHour = 30
	}
	if c.Auth.PhoneRegion == "" {
		c.Auth.PhoneRegion = "US"
	}
	if c.Reminders.Cron == "" {
		c.Reminders.Cron = "*/15 * * * *"
	}
	if c.Reminders.HoursBefore == 0 {
		c.Reminders.HoursBefore = 24
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "courtside.reservations"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.SecretKey == "" && c.App.Environment != "development" {
		return fmt.Errorf("APP_SECRET_KEY is required outside development")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Booking.OpenHour < 0 || c.Booking.CloseHour > 24 || c.Booking.OpenHour >= c.Booking.CloseHour {
		return fmt.Errorf("booking window must satisfy 0 <= open_hour < close_hour <= 24")
	}

	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, err := c.LoginLockout(); err != nil {
		return err
	}

	if c.Features.EnableReminders {
		if _, err := cron.ParseStandard(c.Reminders.Cron); err != nil {
			return fmt.Errorf("invalid reminders cron %q: %w", c.Reminders.Cron, err)
		}
		if c.Reminders.HoursBefore < 0 {
			return fmt.Errorf("reminders hours_before must not be negative")
		}
	}
	if c.Features.EnableEmail {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required when email is enabled")
		}
	}
	if c.Features.EnableEvents && c.Events.URL == "" {
		return fmt.Errorf("AMQP_URL is required when events are enabled")
	}

	return nil
}

// Location returns the venue timezone used for calendar-day boundaries.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}
	return loc, nil
}

func (c *Config) TokenTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil || ttl <= 0 {
		return 0, fmt.Errorf("auth token_ttl must be a positive duration")
	}
	return ttl, nil
}

func (c *Config) LoginLockout() (time.Duration, error) {
	lockout, err := time.ParseDuration(c.Auth.LoginLockout)
	if err != nil || lockout <= 0 {
		return 0, fmt.Errorf("auth login_lockout must be a positive duration")
	}
	return lockout, nil
}
