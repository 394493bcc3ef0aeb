package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo identifies the binary. main fills it from linker flags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var build = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

// SetBuildInfo replaces the build information reported by version.
func SetBuildInfo(b BuildInfo) { build = b }

// Version returns the version command.
func Version() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), build.Version)
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "simrun %s (commit %s, built %s)\n", build.Version, build.Commit, build.Date)
			return err
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print the version number only")
	return cmd
}
