package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imamik/simrun/internal/metrics"
)

// shutdownTimeout bounds the graceful shutdown of the metrics server.
const shutdownTimeout = 10 * time.Second

// Serve handles the serve command. It runs the task workers and the
// metrics endpoint until ctx is cancelled.
func Serve(ctx context.Context, configPath, metricsAddr string) error {
	a, err := newApp(configPath, appOptions{requireNATS: true})
	if err != nil {
		return err
	}
	defer a.close()

	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.Addr
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.queue.Run(ctx)
	})

	srv := &http.Server{
		Addr:              metricsAddr,
		Handler:           newMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		a.log.Info("serving metrics", "addr", metricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	n, err := a.service.Resume(ctx)
	if err != nil {
		a.log.Error(err, "failed to resume pending tasks")
	}
	a.log.Info("simrun started", "resumed", n, "workers", a.cfg.Tasks.Workers)

	return g.Wait()
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
