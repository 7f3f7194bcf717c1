package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	SummarizerURL     string        `yaml:"summarizer_url"`
	SummarizerTimeout time.Duration `yaml:"summarizer_timeout"`

	BackendRateLimitRPS   float64 `yaml:"backend_rate_limit_rps"`
	BackendRateLimitBurst int     `yaml:"backend_rate_limit_burst"`
	RetryMaxAttempts      int     `yaml:"retry_max_attempts"`
	BreakerEnabled        bool    `yaml:"breaker_enabled"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	ProgressTick time.Duration `yaml:"progress_tick"`
	ProgressStep int           `yaml:"progress_step"`

	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight"`
}

func Defaults() Config {
	return Config{
		APIPort:  "8090",
		LogLevel: "info",

		SummarizerURL:     "http://localhost:8000",
		SummarizerTimeout: 30 * time.Second,

		BackendRateLimitRPS:   0,
		BackendRateLimitBurst: 5,
		RetryMaxAttempts:      3,
		BreakerEnabled:        true,

		NATSURL:     "",
		NATSSubject: "dashboard.session.events",

		ProgressTick: 100 * time.Millisecond,
		ProgressStep: 2,

		APIRateLimitRPS:   0,
		APIRateLimitBurst: 10,
		APIMaxInFlight:    32,
	}
}

// Load reads DASHBOARD_CONFIG when set, then applies environment overrides.
// A broken config file is reported; malformed env values fall back silently.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.SummarizerURL = mustEnv("SUMMARIZER_URL", cfg.SummarizerURL)
	cfg.SummarizerTimeout = mustEnvDuration("SUMMARIZER_TIMEOUT", cfg.SummarizerTimeout)

	cfg.BackendRateLimitRPS = mustEnvFloat("BACKEND_RATE_LIMIT_RPS", cfg.BackendRateLimitRPS)
	cfg.BackendRateLimitBurst = mustEnvInt("BACKEND_RATE_LIMIT_BURST", cfg.BackendRateLimitBurst)
	cfg.RetryMaxAttempts = mustEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.BreakerEnabled = mustEnvBool("BREAKER_ENABLED", cfg.BreakerEnabled)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)

	cfg.ProgressTick = mustEnvDuration("PROGRESS_TICK", cfg.ProgressTick)
	cfg.ProgressStep = mustEnvInt("PROGRESS_STEP", cfg.ProgressStep)

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// YAML renders the effective configuration in the file format Load accepts.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
