// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import "github.com/spf13/cobra"

// configPath is bound to the persistent --config flag of the root command.
var configPath string

// Root returns the root command for the simrun CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "simrun",
		Short:         "Run simulation jobs on ephemeral Hetzner Cloud instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to simrun configuration file (defaults and environment if unset)")

	cmd.AddCommand(Serve())
	cmd.AddCommand(Job())
	cmd.AddCommand(Instances())
	cmd.AddCommand(Catalog())
	cmd.AddCommand(Version())

	return cmd
}
