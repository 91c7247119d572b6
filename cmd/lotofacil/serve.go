package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/lotofacil/internal/di"
	"github.com/aristath/lotofacil/internal/scheduler"
	"github.com/aristath/lotofacil/internal/server"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return err
	}
	defer container.Close()

	sched := scheduler.New(log)
	if err := di.RegisterJobs(container, sched, log); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// Catch up on start; the fetch gate keeps this to one fetch per day.
	go func() {
		if err := sched.RunNow(di.NewIngestJob(container, log)); err != nil {
			log.Warn().Err(err).Msg("Startup ingest failed")
		}
	}()

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		Store:   container.Store,
		Runner:  container.Pipeline,
		Metrics: container.Metrics.Handler(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
