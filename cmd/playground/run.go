package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/script-playground/internal/buffer"
	"github.com/sakif/script-playground/internal/client"
	"github.com/sakif/script-playground/internal/config"
	"github.com/sakif/script-playground/internal/orchestrator"
	"github.com/sakif/script-playground/internal/presentation"
)

func runCmd(a *app) *cobra.Command {
	var (
		flags   playgroundFlags
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE|-",
		Short: "Execute a script once and print the outcome",
		Long: "Reads a script from FILE (or stdin for -), submits it to the execution\n" +
			"service and prints stdout, the result value or the error. Exits 1 when\n" +
			"the execution fails.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Playground
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}

			source, err := readSource(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			view, err := runOnce(cfg, source, a.logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(view); err != nil {
					return err
				}
			} else if rendered := presentation.RenderTerminal(view); rendered != "" {
				fmt.Fprintln(out, rendered)
			}

			if view.ShowError || view.Status == orchestrator.KindFailed.String() {
				return errRunFailed
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the view as JSON instead of panels")
	return cmd
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}

// runOnce drives a single submission through the same buffer, orchestrator
// and store the server uses, and returns the resolved view. The pending view
// is written to progress while the call is in flight.
func runOnce(cfg config.Playground, source string, logger *slog.Logger, progress io.Writer) (presentation.View, error) {
	policy, err := orchestrator.ParsePolicy(cfg.Policy)
	if err != nil {
		return presentation.View{}, err
	}

	buf := buffer.New(source)
	remote := client.New(cfg.ExecutorURL, client.WithLogger(logger))
	orch := orchestrator.New(remote, orchestrator.NewStore(policy),
		orchestrator.WithTimeout(cfg.Timeout),
		orchestrator.WithLogger(logger),
	)

	orch.Submit(buf.Text())
	if pending := presentation.FromOutcome(orch.Store().Snapshot()); pending.Loading {
		fmt.Fprintln(progress, presentation.RenderTerminal(pending))
	}
	orch.Wait()

	return presentation.FromOutcome(orch.Store().Snapshot()), nil
}
