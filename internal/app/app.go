// Package app orchestrates the application's component lifecycle: the
// front-end loop and the task scheduler run under one errgroup and shut
// down together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// FrontEnd is a blocking user-facing loop. Run returns when the context
// is cancelled or input is exhausted.
type FrontEnd interface {
	Run(ctx context.Context) error
}

// App represents the application and manages its components' lifecycle.
type App struct {
	logger    *slog.Logger
	frontEnd  FrontEnd
	scheduler *Scheduler
}

// New creates the application orchestrator.
func New(logger *slog.Logger, frontEnd FrontEnd, scheduler *Scheduler) *App {
	return &App{
		logger:    logger.With("component", "orchestrator"),
		frontEnd:  frontEnd,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until shutdown. It returns an
// error if any component fails during startup or execution.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting front-end...")
		if err := a.frontEnd.Run(gCtx); err != nil {
			a.logger.Error("Front-end stopped with error", "error", err)
			return fmt.Errorf("front-end stopped: %w", err)
		}
		a.logger.Info("Front-end stopped.")
		// Input exhaustion is a normal way to end the process.
		return context.Canceled
	})

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
