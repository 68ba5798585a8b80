package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"pricewatch/internal/auth"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/server"
	"pricewatch/internal/service"
)

// Serve runs the HTTP API alongside the scheduled compliance sweep until a
// termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn must be configured to serve")
	}
	if closeStore != nil {
		defer closeStore()
	}

	authSvc, err := auth.NewService(store, a.Config.Auth)
	if err != nil {
		return err
	}

	srv := server.New(a.Config, store, store, authSvc, a.Logger)
	httpServer := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Sweep.Interval,
		AlignToStart: a.Config.Sweep.AlignToBucket,
		StartupDelay: a.Config.Sweep.StartupDelay,
	}, a.Logger)
	sweeper := service.New(a.Config, sched, store, store, a.newSRPFetcher(), a.newNotifier(), a.Logger)

	sweepDone := make(chan error, 1)
	go func() {
		sweepDone <- sweeper.Run(ctx)
	}()

	serveDone := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		serveDone <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http shutdown failed")
	}

	if err := <-sweepDone; err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("sweep loop terminated with error")
	}

	a.Logger.Info().Msg("server stopped")
	return nil
}

// Sweep runs one compliance sweep immediately and exits.
func (a *App) Sweep(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn must be configured to sweep")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sweeper := service.New(a.Config, nil, store, store, a.newSRPFetcher(), a.newNotifier(), a.Logger)
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("examined", result.Examined).
		Int("compliant", result.Compliant).
		Int("non_compliant", result.NonCompliant).
		Int("breaches", len(result.Breaches)).
		Msg("sweep finished")
	return nil
}
