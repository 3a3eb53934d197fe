package docker

import (
	"fmt"
	"time"
)

// Config holds the configuration for Docker execution.
type Config struct {
	// Image is the Docker image to use for execution.
	Image string `yaml:"image"`
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64 `yaml:"memory_limit"`
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64 `yaml:"cpu_limit"`
	// Timeout is the maximum amount of time one script can run.
	Timeout time.Duration `yaml:"timeout"`
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int `yaml:"pool_size"`
	// MaxOutputBytes caps each of stdout and stderr.
	MaxOutputBytes int `yaml:"max_output_bytes"`
	// User runs the script inside the container.
	User string `yaml:"user"`
}

// DefaultConfig mirrors the limits of the hosted execution API.
func DefaultConfig() Config {
	return Config{
		Image:          "python:3.12-alpine",
		MemoryLimit:    256 * 1024 * 1024,
		CPULimit:       0.5,
		Timeout:        30 * time.Second,
		PoolSize:       3,
		MaxOutputBytes: 1 << 20,
		User:           "nobody",
	}
}

// Validate rejects settings the pool cannot work with.
func (c Config) Validate() error {
	switch {
	case c.Image == "":
		return fmt.Errorf("docker: image is required")
	case c.PoolSize < 1:
		return fmt.Errorf("docker: pool size must be at least 1, got %d", c.PoolSize)
	case c.Timeout <= 0:
		return fmt.Errorf("docker: timeout must be positive, got %s", c.Timeout)
	case c.MemoryLimit < 0 || c.CPULimit < 0:
		return fmt.Errorf("docker: resource limits must not be negative")
	case c.MaxOutputBytes <= 0:
		return fmt.Errorf("docker: max output bytes must be positive, got %d", c.MaxOutputBytes)
	}
	return nil
}
