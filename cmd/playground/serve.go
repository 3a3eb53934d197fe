package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/script-playground/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	var (
		port  int
		flags playgroundFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Playground
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}

			srv, err := server.NewPlayground(cfg, a.logger)
			if err != nil {
				return err
			}
			// Start blocks until Ctrl+C or SIGTERM.
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config, 3000)")
	flags.bind(cmd)
	return cmd
}
