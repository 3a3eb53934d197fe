// Command executord is the reference remote execution service.
//
// It accepts POST /execute {"script": "..."}, runs the script's main() in a
// pooled, network-less Docker container and answers with {"stdout",
// "result"} or {"error", "stdout"}. Every run is recorded in a SQLite run
// log served at GET /runs.
//
// MAIN PACKAGE:
// main stays minimal: read configuration, create dependencies (logger,
// sandbox), hand them to internal/server, start. All logic lives in the
// imported packages.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/script-playground/internal/config"
	"github.com/sakif/script-playground/internal/executor/docker"
	"github.com/sakif/script-playground/internal/logging"
	"github.com/sakif/script-playground/internal/server"
)

func main() {
	var (
		configPath string
		logLevel   string
		port       int
		dbPath     string
		image      string
		poolSize   int
	)

	root := &cobra.Command{
		Use:           "executord",
		Short:         "Run scripts in Docker sandboxes over HTTP",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// === 1. READ CONFIGURATION ===
			// Defaults, then --config YAML, then env vars (PORT, DB_PATH,
			// SANDBOX_IMAGE, ...), then the flags below.
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("port") {
				cfg.Executord.Port = port
			}
			if flags.Changed("db-path") {
				cfg.Executord.DBPath = dbPath
			}
			if flags.Changed("image") {
				cfg.Executord.Sandbox.Image = image
			}
			if flags.Changed("pool-size") {
				cfg.Executord.Sandbox.PoolSize = poolSize
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Executord.Validate(); err != nil {
				return err
			}

			// === 2. SET UP LOGGING ===
			logger, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			// === 3. DATABASE DIRECTORY ===
			// os.MkdirAll is `mkdir -p`; the run log lives in a file under it.
			if cfg.Executord.DBPath != ":memory:" {
				dbDir := filepath.Dir(cfg.Executord.DBPath)
				if err := os.MkdirAll(dbDir, 0o755); err != nil {
					return fmt.Errorf("creating database directory %s: %w", dbDir, err)
				}
			}

			// === 4. INITIALIZE SANDBOX ===
			// Unlike the playground, this service is useless without Docker.
			sandbox, err := docker.New(cfg.Executord.Sandbox, logger)
			if err != nil {
				return fmt.Errorf("docker executor unavailable: %w", err)
			}
			defer sandbox.Close()

			logger.Info("sandbox ready",
				slog.String("image", cfg.Executord.Sandbox.Image),
				slog.Int("poolSize", cfg.Executord.Sandbox.PoolSize),
				slog.Duration("timeout", cfg.Executord.Sandbox.Timeout),
			)

			// === 5. CREATE AND START THE SERVER ===
			srv, err := server.NewExecution(cfg.Executord, sandbox, logger)
			if err != nil {
				return err
			}
			// Start blocks until Ctrl+C or SIGTERM.
			return srv.Start(cmd.Context())
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	root.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.Flags().IntVar(&port, "port", 0, "Listen port (default from config, 8080)")
	root.Flags().StringVar(&dbPath, "db-path", "", "SQLite run log path")
	root.Flags().StringVar(&image, "image", "", "Sandbox Docker image")
	root.Flags().IntVar(&poolSize, "pool-size", 0, "Pre-warmed containers to keep")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
