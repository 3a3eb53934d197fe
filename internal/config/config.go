// Package config loads settings for both binaries.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Command-line flags are applied last by cmd/.
//
//	playground:
//	  port: 3000
//	  executor_url: http://localhost:8080/execute
//	  timeout: 0s            # 0 waits for the executor indefinitely
//	  policy: sequence-gated # or completion-order
//	executord:
//	  port: 8080
//	  db_path: data/runs.db
//	  sandbox:
//	    image: python:3.12-alpine
//	    timeout: 30s
//	log:
//	  level: info
//	  format: text
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/script-playground/internal/executor/docker"
	"github.com/sakif/script-playground/internal/logging"
	"github.com/sakif/script-playground/internal/orchestrator"
)

// Config is the full settings tree.
type Config struct {
	Playground Playground `yaml:"playground"`
	Executord  Executord  `yaml:"executord"`
	Log        Log        `yaml:"log"`
}

// Playground configures `playground serve` and `playground run`.
type Playground struct {
	Port        int           `yaml:"port"`
	ExecutorURL string        `yaml:"executor_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Policy      string        `yaml:"policy"`
}

// Executord configures the reference execution service.
type Executord struct {
	Port    int           `yaml:"port"`
	DBPath  string        `yaml:"db_path"`
	Sandbox docker.Config `yaml:"sandbox"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Playground: Playground{
			Port:        3000,
			ExecutorURL: "http://localhost:8080/execute",
			Policy:      orchestrator.PolicySequenceGated.String(),
		},
		Executord: Executord{
			Port:    8080,
			DBPath:  "data/runs.db",
			Sandbox: docker.DefaultConfig(),
		},
		Log: Log{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides fields from environment variables. PORT applies to
// whichever server the process runs, so it sets both ports.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Playground.Port = port
		c.Executord.Port = port
	}
	if v := getenv("EXECUTOR_URL"); v != "" {
		c.Playground.ExecutorURL = v
	}
	if v := getenv("EXECUTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EXECUTOR_TIMEOUT %q: %w", v, err)
		}
		c.Playground.Timeout = d
	}
	if v := getenv("ORCHESTRATOR_POLICY"); v != "" {
		c.Playground.Policy = v
	}
	if v := getenv("DB_PATH"); v != "" {
		c.Executord.DBPath = v
	}
	if v := getenv("SANDBOX_IMAGE"); v != "" {
		c.Executord.Sandbox.Image = v
	}
	if v := getenv("SANDBOX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SANDBOX_TIMEOUT %q: %w", v, err)
		}
		c.Executord.Sandbox.Timeout = d
	}
	if v := getenv("SANDBOX_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SANDBOX_POOL_SIZE %q: %w", v, err)
		}
		c.Executord.Sandbox.PoolSize = n
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log: invalid format %q", c.Log.Format)
	}
	return nil
}

// Validate checks the playground settings.
func (p Playground) Validate() error {
	var errs []error
	if p.Port < 0 || p.Port > 65535 {
		errs = append(errs, fmt.Errorf("playground: port %d out of range", p.Port))
	}
	if u, err := url.Parse(p.ExecutorURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("playground: executor_url must be an absolute http(s) URL, got %q", p.ExecutorURL))
	}
	if p.Timeout < 0 {
		errs = append(errs, fmt.Errorf("playground: timeout must not be negative, got %s", p.Timeout))
	}
	if _, err := orchestrator.ParsePolicy(p.Policy); err != nil {
		errs = append(errs, fmt.Errorf("playground: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the execution service settings.
func (e Executord) Validate() error {
	var errs []error
	if e.Port < 0 || e.Port > 65535 {
		errs = append(errs, fmt.Errorf("executord: port %d out of range", e.Port))
	}
	if e.DBPath == "" {
		errs = append(errs, fmt.Errorf("executord: db_path is required"))
	}
	if err := e.Sandbox.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("executord: %w", err))
	}
	return errors.Join(errs...)
}
