// Package handlers implements the simrun commands.
//
// Every handler assembles the components it needs through the factory
// variables below, which tests replace with in-memory fakes.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/simrun/internal/broadcast"
	"github.com/imamik/simrun/internal/bucket"
	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/logging"
	"github.com/imamik/simrun/internal/platform/hcloud"
	"github.com/imamik/simrun/internal/platform/s3"
	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/simulation"
	"github.com/imamik/simrun/internal/store"
	"github.com/imamik/simrun/internal/tasks"
)

// Factory function variables - can be replaced in tests.
var (
	loadConfig = config.Load

	newLogger = logging.New

	newComputeFactory = func(log logr.Logger) provider.ComputeFactory {
		return hcloud.Factory(hcloud.WithLogger(log.WithName("hcloud")))
	}

	newStorageFactory = s3.Factory

	openStore = store.Open

	// connectNATS returns the publishing side of a NATS connection and a
	// func that flushes and closes it.
	connectNATS = func(url string, log logr.Logger) (broadcast.Conn, func(), error) {
		nc, err := broadcast.Connect(url, "simrun", log)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { _ = nc.Drain() }, nil
	}
)

// app is the set of components a command works with.
type app struct {
	cfg     *config.Config
	log     logr.Logger
	cloud   *provider.Cloud
	db      *store.DB
	queue   *tasks.Queue
	service *simulation.Service

	closers []func()
}

// appOptions selects the optional parts of an app.
type appOptions struct {
	// requireNATS fails when the NATS server is unreachable instead of
	// running without broadcasts and notifications.
	requireNATS bool
	// withoutStore skips opening the job store.
	withoutStore bool
}

// resolveConfig loads the file at path, or builds the configuration from
// defaults and environment when path is empty.
func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return loadConfig(path)
}

func providerConfig(cfg *config.Config) provider.Config {
	s := cfg.Provider.Storage
	return provider.Config{
		Token:        cfg.Provider.Token,
		Project:      cfg.Provider.Project,
		Endpoint:     s.Endpoint,
		Region:       s.Region,
		Bucket:       s.Bucket,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		ResultPath:   s.ResultPath,
		ReportName:   s.ReportName,
		UploadName:   s.UploadName,
		ReportExpiry: s.ReportExpiry,
		UploadExpiry: s.UploadExpiry,
	}
}

// newApp assembles the components described by the configuration at
// configPath. Callers must call close.
func newApp(configPath string, opts appOptions) (_ *app, err error) {
	cfg, err := resolveConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.cloud = provider.New(providerConfig(cfg),
		provider.WithLogger(log.WithName("provider")),
		provider.WithTimeouts(config.LoadTimeouts()),
		provider.WithComputeFactory(newComputeFactory(log)),
		provider.WithStorageFactory(newStorageFactory()),
	)

	if opts.withoutStore {
		return a, nil
	}

	a.db, err = openStore(store.Options{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.db.Close() })

	var (
		notifier    simulation.Notifier
		broadcaster simulation.Broadcaster
	)
	conn, closeConn, err := connectNATS(cfg.NATS.URL, log.WithName("nats"))
	switch {
	case err == nil:
		a.closers = append(a.closers, closeConn)
		notifier = broadcast.NewMailer(conn, log.WithName("mail"))
		broadcaster = broadcast.NewPublisher(conn, log.WithName("broadcast"))
	case opts.requireNATS:
		return nil, err
	default:
		log.Info("running without notifications", "error", err.Error())
	}

	a.queue = tasks.New(tasks.Options{
		Workers:     cfg.Tasks.Workers,
		QueueSize:   cfg.Tasks.QueueSize,
		MaxAttempts: cfg.Tasks.MaxAttempts,
	}, log.WithName("tasks"))

	a.service = simulation.NewService(simulation.Deps{
		Repository: simulation.NewRepository(a.db),
		Provider:   a.cloud,
		Bucket: bucket.New(a.cloud,
			bucket.WithReportExpiry(cfg.Provider.Storage.ReportExpiry),
			bucket.WithUploadName(cfg.Provider.Storage.UploadName),
			bucket.WithLogger(log.WithName("bucket")),
		),
		Scheduler:   a.queue,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Machine:     cfg.Machine,
		Logger:      log.WithName("simulation"),
	})
	a.service.RegisterTasks(a.queue)

	return a, nil
}

// runQueue starts the task workers and returns a func that waits for the
// scheduled work to finish, then stops them.
func (a *app) runQueue(ctx context.Context) (drain func(context.Context) error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.queue.Run(ctx) }()

	return func(waitCtx context.Context) error {
		err := a.queue.Drain(waitCtx)
		cancel()
		return errors.Join(err, <-done)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
