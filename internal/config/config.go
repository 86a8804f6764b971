package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Grid struct {
		StartHour           int `yaml:"start_hour"`
		EndHour             int `yaml:"end_hour"`
		CellDurationMinutes int `yaml:"cell_duration_minutes"`
		DefaultSlotMinutes  int `yaml:"default_slot_minutes"`
	} `yaml:"grid"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	HTTP struct {
		Port              int `yaml:"port"`
		RateLimitPerSec   int `yaml:"rate_limit_per_sec"`
		RateLimitBurst    int `yaml:"rate_limit_burst"`
		ShutdownTimeoutMS int `yaml:"shutdown_timeout_ms"`
	} `yaml:"http"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/dash_gantt.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) GridStartHour() int {
	if c.Grid.StartHour <= 0 {
		return 6
	}
	return c.Grid.StartHour
}

func (c *Config) GridEndHour() int {
	if c.Grid.EndHour <= 0 || c.Grid.EndHour > 24 {
		return 23
	}
	return c.Grid.EndHour
}

func (c *Config) CellDuration() int {
	if c.Grid.CellDurationMinutes <= 0 {
		return 5
	}
	return c.Grid.CellDurationMinutes
}

func (c *Config) DefaultSlotMinutes() int {
	if c.Grid.DefaultSlotMinutes <= 0 {
		return 20
	}
	return c.Grid.DefaultSlotMinutes
}

func (c *Config) HTTPPort() int {
	if c.HTTP.Port <= 0 {
		return 8080
	}
	return c.HTTP.Port
}

func (c *Config) RateLimit() (perSec, burst int) {
	perSec, burst = c.HTTP.RateLimitPerSec, c.HTTP.RateLimitBurst
	if perSec <= 0 {
		perSec = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return perSec, burst
}

func (c *Config) ShutdownTimeout() time.Duration {
	if c.HTTP.ShutdownTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTP.ShutdownTimeoutMS) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
