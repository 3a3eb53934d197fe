// Command playground serves the script editor and runs scripts against a
// remote execution service.
//
//	playground serve               # editor on http://localhost:3000
//	playground run script.py       # one-shot execution in the terminal
//	cat script.py | playground run -
//
// Settings come from defaults, an optional --config YAML file, environment
// variables (PORT, EXECUTOR_URL, EXECUTOR_TIMEOUT, ORCHESTRATOR_POLICY,
// LOG_LEVEL, LOG_FORMAT) and finally flags.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/script-playground/internal/config"
	"github.com/sakif/script-playground/internal/logging"
)

// errRunFailed makes the process exit 1 after the failure was already shown.
var errRunFailed = errors.New("run failed")

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "playground",
		Short:         "Edit and run scripts against a remote execution service",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text, json")

	root.AddCommand(serveCmd(a))
	root.AddCommand(runCmd(a))

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// playgroundFlags binds the playground settings shared by serve and run.
type playgroundFlags struct {
	executorURL string
	timeout     string
	policy      string
}

func (f *playgroundFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.executorURL, "executor-url", "", "Remote execution endpoint (POST)")
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "Give up on a call after this long, e.g. 45s (0 waits forever)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "Overlap policy: sequence-gated or completion-order")
}

// apply overrides cfg with the flags the user set.
func (f *playgroundFlags) apply(cmd *cobra.Command, cfg *config.Playground) error {
	if cmd.Flags().Changed("executor-url") {
		cfg.ExecutorURL = f.executorURL
	}
	if cmd.Flags().Changed("timeout") {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if cmd.Flags().Changed("policy") {
		cfg.Policy = f.policy
	}
	return cfg.Validate()
}
