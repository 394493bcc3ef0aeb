package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/imamik/simrun/internal/lifecycle"
	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/simulation"
)

// DefaultWaitTimeout bounds how long an event command waits for the
// provisioning it triggered.
const DefaultWaitTimeout = 15 * time.Minute

// JobCreate handles the job create command.
func JobCreate(ctx context.Context, configPath, projectID, userID string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	job, err := a.service.CreateJob(ctx, projectID, userID)
	if err != nil {
		return err
	}
	return printJob(out, job)
}

// JobPerform handles the job perform command and its shortcuts. An empty
// event continues the job along its next allowed event. The command
// returns once the tasks the event scheduled have run, or after wait.
func JobPerform(ctx context.Context, configPath, jobID, event string, wait time.Duration, out io.Writer) error {
	var ev lifecycle.Event
	if event != "" {
		var err error
		if ev, err = lifecycle.ParseEvent(event); err != nil {
			return err
		}
	}

	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	drain := a.runQueue(ctx)

	var job *simulation.Job
	if ev == "" {
		job, err = a.service.Continue(ctx, jobID)
	} else {
		job, err = a.service.Perform(ctx, jobID, ev)
	}
	if err != nil {
		_ = drain(ctx)
		return fmt.Errorf("%s failed: %w", eventName(ev), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := drain(waitCtx); err != nil {
		return fmt.Errorf("waiting for tasks: %w", err)
	}

	if job, err = a.service.Job(ctx, jobID); err != nil {
		return err
	}
	return printJob(out, job)
}

// JobShow handles the job show command.
func JobShow(ctx context.Context, configPath, jobID string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	job, err := a.service.Job(ctx, jobID)
	if err != nil {
		return err
	}
	return printJob(out, job)
}

// JobList handles the job list command.
func JobList(ctx context.Context, configPath string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	jobs, err := a.service.Jobs(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tUSER\tSTATE\tNEXT")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.ProjectID, j.UserID, j.State, joinEvents(lifecycle.Events(j.State)))
	}
	return w.Flush()
}

// JobReport handles the job report command.
func JobReport(ctx context.Context, configPath, jobID string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	url, err := a.service.Report(ctx, jobID)
	if err != nil {
		return err
	}
	if url == nil {
		fmt.Fprintln(out, "No report uploaded yet")
		return nil
	}
	return printURL(out, url)
}

// JobUploadURL handles the job upload-url command.
func JobUploadURL(ctx context.Context, configPath, jobID, name string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	url, err := a.service.UploadURL(ctx, jobID, name)
	if err != nil {
		return err
	}
	return printURL(out, url)
}

// JobResults handles the job results command.
func JobResults(ctx context.Context, configPath, jobID string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	files, err := a.service.Results(ctx, jobID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Key, f.Size, f.LastModified.Format(time.RFC3339))
	}
	return w.Flush()
}

// JobDeleteResults handles the job delete-results command.
func JobDeleteResults(ctx context.Context, configPath, jobID string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.service.DeleteResults(ctx, jobID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted results of job %s\n", jobID)
	return nil
}

func printJob(out io.Writer, job *simulation.Job) error {
	b, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func printURL(out io.Writer, url *provider.SignedURL) error {
	_, err := fmt.Fprintf(out, "%s %s\nexpires: %s\n", url.Method, url.URL, url.ExpiresAt.Format(time.RFC3339))
	return err
}

func eventName(ev lifecycle.Event) string {
	if ev == "" {
		return "continue"
	}
	return string(ev)
}

func joinEvents(events []lifecycle.Event) string {
	if len(events) == 0 {
		return "-"
	}
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	return strings.Join(names, ",")
}
