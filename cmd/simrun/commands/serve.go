package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/simrun/cmd/simrun/handlers"
)

// Serve returns the serve command.
func Serve() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task workers and the metrics endpoint",
		Long: `Serve runs the background workers that create and remove instances
for simulation jobs, and exposes Prometheus metrics on /metrics.

Tasks that were pending when simrun last stopped are scheduled again on
start. A NATS server is required for progress broadcasts and mail.

Example:
  simrun serve -c simrun.yaml --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), configPath, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (overrides metrics.addr)")

	return cmd
}
