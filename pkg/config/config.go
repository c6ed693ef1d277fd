package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/feedmx/feedmx/pkg/mute"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Matrix MatrixConfig `yaml:"matrix" json:"matrix" jsonschema:"required,description=Matrix (Synapse) server and room"`

	Feeds []string `yaml:"feeds" json:"feeds" jsonschema:"required,description=Ordered list of RSS/Atom feed URLs"`

	Schedule struct {
		Cron        string        `yaml:"cron" json:"cron" jsonschema:"required,description=5-field cron expression for poll ticks"`
		MaxWorkers  int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=4,description=Maximum concurrent feed fetches"`
		FeedTimeout time.Duration `yaml:"feed_timeout" json:"feed_timeout" jsonschema:"default=30s,description=Per-feed fetch timeout"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Polling schedule"`

	Mute struct {
		From string `yaml:"from" json:"from" jsonschema:"description=Mute window start HH:MM"`
		To   string `yaml:"to" json:"to" jsonschema:"description=Mute window end HH:MM (exclusive)"`
	} `yaml:"mute" json:"mute" jsonschema:"description=Daily quiet window, deliveries are deferred while inside it"`

	Delivery struct {
		MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" jsonschema:"default=5,description=Send attempts before deferring to the next tick"`
		BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay" jsonschema:"default=500ms,description=Initial retry backoff delay"`
		MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay" jsonschema:"default=30s,description=Retry backoff delay cap"`
	} `yaml:"delivery" json:"delivery" jsonschema:"description=Delivery retry policy"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:feedmx.db?cache=shared&mode=rwc,description=SQLite connection string for the seen-item store"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Seen-item store configuration"`

	Server struct {
		Enabled bool          `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Enable the status HTTP server"`
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Status server configuration"`
}

// MatrixConfig holds chat server connection settings
type MatrixConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" jsonschema:"required,description=Synapse host, scheme optional"`
	Port    int    `yaml:"port" json:"port" jsonschema:"default=8008,description=Synapse client API port"`
	RoomID  string `yaml:"room_id" json:"room_id" jsonschema:"required,description=Target room identifier"`
	Token   string `yaml:"token" json:"token" jsonschema:"required,description=Pre-issued access token (supports env expansion)"`

	Listener struct {
		Enabled bool   `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Follow room events via /sync"`
		Welcome string `yaml:"welcome" json:"welcome" jsonschema:"description=Welcome message template with one %s for the user id"`
	} `yaml:"listener" json:"listener" jsonschema:"description=Room event listener"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables, used for the access token
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Matrix.Port == 0 {
		c.Matrix.Port = 8008
	}

	if c.Schedule.MaxWorkers == 0 {
		c.Schedule.MaxWorkers = 4
	}
	if c.Schedule.FeedTimeout == 0 {
		c.Schedule.FeedTimeout = 30 * time.Second
	}

	if c.Delivery.MaxAttempts == 0 {
		c.Delivery.MaxAttempts = 5
	}
	if c.Delivery.BaseDelay == 0 {
		c.Delivery.BaseDelay = 500 * time.Millisecond
	}
	if c.Delivery.MaxDelay == 0 {
		c.Delivery.MaxDelay = 30 * time.Second
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "file:feedmx.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Matrix.BaseURL == "" {
		return fmt.Errorf("matrix.base_url is required")
	}
	if cfg.Matrix.RoomID == "" {
		return fmt.Errorf("matrix.room_id is required")
	}
	if cfg.Matrix.Token == "" {
		return fmt.Errorf("matrix.token is required")
	}
	if cfg.Matrix.Port < 0 || cfg.Matrix.Port > 65535 {
		return fmt.Errorf("matrix.port must be a valid port number")
	}

	if len(cfg.Feeds) == 0 {
		return fmt.Errorf("at least one feed is required")
	}

	if cfg.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is required")
	}
	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron is not a valid cron expression: %w", err)
	}

	// mute window is optional, but either both bounds are set or neither
	if (cfg.Mute.From == "") != (cfg.Mute.To == "") {
		return fmt.Errorf("mute.from and mute.to must be set together")
	}
	if cfg.Mute.From != "" {
		if _, err := mute.ParseWindow(cfg.Mute.From, cfg.Mute.To); err != nil {
			return fmt.Errorf("invalid mute window: %w", err)
		}
	}

	if cfg.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery.max_attempts must be at least 1")
	}

	if cfg.Server.Enabled && cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// MuteWindow returns the parsed mute window, zero value when unset
func (c *Config) MuteWindow() mute.Window {
	if c.Mute.From == "" {
		return mute.Window{}
	}
	// validated during Load
	w, _ := mute.ParseWindow(c.Mute.From, c.Mute.To)
	return w
}

// GetServerConfig returns status server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
