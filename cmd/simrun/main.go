// Package main is the entry point for the simrun CLI.
//
// simrun runs long simulation jobs on ephemeral Hetzner Cloud instances.
// It tracks every job through its lifecycle, provisions and tears down the
// instance backing it and hands out presigned URLs for the results.
//
// Commands: serve, job, instances, catalog, version.
//
// For detailed usage information, run:
//
//	simrun --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/simrun/cmd/simrun/commands"
	"github.com/imamik/simrun/internal/platform/hcloud"
)

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hcloud.Version = version
	commands.SetBuildInfo(commands.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "simrun: %v\n", err)
		stop()
		os.Exit(1)
	}
}
