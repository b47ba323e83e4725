package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Core holds all coordinator configuration from environment variables.
type Core struct {
	// HTTP
	ListenAddr string

	// Storage
	DBPath         string
	StatsRetention time.Duration // historical stats older than this are pruned daily

	// Polling
	StatusPollInterval time.Duration // reachability + cache refresh
	MonitoringInterval time.Duration // stats persistence cadence
	PollTimeout        time.Duration // per periphery call during polling

	// Periphery
	PeripheryPasskey string
	RequestTimeout   time.Duration // per periphery call for actions

	// Auth
	JWTSecret   string
	JWTValidFor time.Duration

	// Alerting thresholds, overridable via FLOTILLA_THRESHOLDS_FILE.
	Thresholds Thresholds

	// Logging
	LogJSON bool
}

// LoadCore reads coordinator configuration from the environment.
func LoadCore() (*Core, error) {
	cfg := &Core{
		ListenAddr:         envStr("FLOTILLA_LISTEN_ADDR", ":9120"),
		DBPath:             envStr("FLOTILLA_DB_PATH", "/data/flotilla.db"),
		StatsRetention:     envDuration("FLOTILLA_STATS_RETENTION", 14*24*time.Hour),
		StatusPollInterval: envDuration("FLOTILLA_STATUS_POLL_INTERVAL", 15*time.Second),
		MonitoringInterval: envDuration("FLOTILLA_MONITORING_INTERVAL", time.Minute),
		PollTimeout:        envDuration("FLOTILLA_POLL_TIMEOUT", 5*time.Second),
		PeripheryPasskey:   envStr("FLOTILLA_PERIPHERY_PASSKEY", ""),
		RequestTimeout:     envDuration("FLOTILLA_REQUEST_TIMEOUT", 30*time.Second),
		JWTSecret:          envStr("FLOTILLA_JWT_SECRET", ""),
		JWTValidFor:        envDuration("FLOTILLA_JWT_VALID_FOR", 24*time.Hour),
		Thresholds:         DefaultThresholds(),
		LogJSON:            envBool("FLOTILLA_LOG_JSON", true),
	}
	if path := os.Getenv("FLOTILLA_THRESHOLDS_FILE"); path != "" {
		t, err := LoadThresholds(path)
		if err != nil {
			return nil, fmt.Errorf("load thresholds file: %w", err)
		}
		cfg.Thresholds = t
	}
	return cfg, nil
}

// Validate checks coordinator configuration for invalid values.
func (c *Core) Validate() error {
	var errs []error
	if c.StatusPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("FLOTILLA_STATUS_POLL_INTERVAL must be > 0, got %s", c.StatusPollInterval))
	}
	if c.MonitoringInterval <= 0 {
		errs = append(errs, fmt.Errorf("FLOTILLA_MONITORING_INTERVAL must be > 0, got %s", c.MonitoringInterval))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("FLOTILLA_JWT_SECRET must be set"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("FLOTILLA_DB_PATH must be set"))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Periphery holds all agent configuration from environment variables.
type Periphery struct {
	ListenAddr     string
	Passkey        string
	AllowedIPs     []string // empty means allow all
	DockerSock     string
	BuildDir       string
	GithubAccounts []string
	DockerAccounts []string
	SecretNames    []string
	LogJSON        bool
}

// LoadPeriphery reads agent configuration from the environment.
func LoadPeriphery() *Periphery {
	return &Periphery{
		ListenAddr:     envStr("PERIPHERY_LISTEN_ADDR", ":9121"),
		Passkey:        envStr("PERIPHERY_PASSKEY", ""),
		AllowedIPs:     envList("PERIPHERY_ALLOWED_IPS"),
		DockerSock:     envStr("PERIPHERY_DOCKER_SOCK", "/var/run/docker.sock"),
		BuildDir:       envStr("PERIPHERY_BUILD_DIR", "/data/builds"),
		GithubAccounts: envList("PERIPHERY_GITHUB_ACCOUNTS"),
		DockerAccounts: envList("PERIPHERY_DOCKER_ACCOUNTS"),
		SecretNames:    envList("PERIPHERY_SECRETS"),
		LogJSON:        envBool("PERIPHERY_LOG_JSON", true),
	}
}

// Validate checks agent configuration for invalid values.
func (p *Periphery) Validate() error {
	var errs []error
	if p.Passkey == "" {
		errs = append(errs, errors.New("PERIPHERY_PASSKEY must be set"))
	}
	if p.ListenAddr == "" {
		errs = append(errs, errors.New("PERIPHERY_LISTEN_ADDR must be set"))
	}
	return errors.Join(errs...)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
