package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/imamik/simrun/cmd/simrun/handlers"
	"github.com/imamik/simrun/internal/lifecycle"
)

// Job returns the job command group.
func Job() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Create jobs and move them through their lifecycle",
	}

	cmd.AddCommand(jobCreate())
	cmd.AddCommand(jobEvent("start", lifecycle.EventStart, "Provision an instance for a new job"))
	cmd.AddCommand(jobEvent("stop", lifecycle.EventStop, "Stop a job and remove its instance"))
	cmd.AddCommand(jobEvent("restart", lifecycle.EventRestart, "Provision a new instance for a stopped or failed job"))
	cmd.AddCommand(jobPerform())
	cmd.AddCommand(jobShow())
	cmd.AddCommand(jobList())
	cmd.AddCommand(jobReport())
	cmd.AddCommand(jobResults())
	cmd.AddCommand(jobUploadURL())
	cmd.AddCommand(jobDeleteResults())

	return cmd
}

func jobCreate() *cobra.Command {
	var projectID, userID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.JobCreate(cmd.Context(), configPath, projectID, userID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project the job belongs to (required)")
	cmd.Flags().StringVar(&userID, "user", "", "User owning the job (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func jobEvent(use string, event lifecycle.Event, short string) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   use + " JOB_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.JobPerform(cmd.Context(), configPath, args[0], string(event), wait, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", handlers.DefaultWaitTimeout, "How long to wait for provisioning")

	return cmd
}

func jobPerform() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "perform JOB_ID [EVENT]",
		Short: "Fire an event on a job",
		Long: `Perform fires EVENT on the job. Without EVENT the job continues with
the first event allowed from its current state.

Events: start, idle, download, process, render, upload, finish, stop,
error, restart.

Example:
  simrun job perform 6f1c... render`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := ""
			if len(args) == 2 {
				event = args[1]
			}
			return handlers.JobPerform(cmd.Context(), configPath, args[0], event, wait, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", handlers.DefaultWaitTimeout, "How long to wait for scheduled tasks")

	return cmd
}

func jobShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.JobShow(cmd.Context(), configPath, args[0], cmd.OutOrStdout())
		},
	}
}

func jobList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs and the events they accept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.JobList(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}
}

func jobReport() *cobra.Command {
	return &cobra.Command{
		Use:   "report JOB_ID",
		Short: "Print a download URL for the job's report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.JobReport(cmd.Context(), configPath, args[0], cmd.OutOrStdout())
		},
	}
}

func jobResults() *cobra.Command {
	return &cobra.Command{
		Use:   "results JOB_ID",
		Short: "List the objects in the job's result folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.JobResults(cmd.Context(), configPath, args[0], cmd.OutOrStdout())
		},
	}
}

func jobUploadURL() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload-url JOB_ID",
		Short: "Print an upload URL in the job's result folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.JobUploadURL(cmd.Context(), configPath, args[0], name, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Object name (defaults to provider.storage.upload_name)")

	return cmd
}

func jobDeleteResults() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-results JOB_ID",
		Short: "Delete the job's result folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.JobDeleteResults(cmd.Context(), configPath, args[0], cmd.OutOrStdout())
		},
	}
}
