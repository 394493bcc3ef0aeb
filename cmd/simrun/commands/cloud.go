package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/simrun/cmd/simrun/handlers"
)

// Instances returns the instances command group.
func Instances() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Inspect instances managed by simrun",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every instance carrying the simrun labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.InstancesList(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	})

	return cmd
}

// Catalog returns the catalog command group.
func Catalog() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List images, zones and machine types",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "images",
		Short: "List system images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CatalogImages(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "zones",
		Short: "List zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CatalogZones(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(catalogTypes())

	return cmd
}

func catalogTypes() *cobra.Command {
	var zone string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List machine types available in a zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CatalogTypes(cmd.Context(), configPath, zone, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&zone, "zone", "", "Zone to list types for (defaults to machine.zone)")

	return cmd
}
