package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/naka-gawa/trending-digest/internal/server"
	"github.com/naka-gawa/trending-digest/internal/usecase"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the read API and runs the scheduled jobs",
	Long: `Starts the HTTP API. Unless --no-schedule is given it also runs the daily
analysis and weekly newsletter on their cron schedules. In the development
environment POST /api/trigger runs the analysis on demand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		renderer, err := a.newRenderer()
		if err != nil {
			return err
		}
		opts := server.Options{
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
			Development:    a.cfg.IsDevelopment(),
			HandlerTimeout: a.cfg.HandlerTimeout(),
		}
		if a.cfg.IsDevelopment() {
			if pipeline, err := a.newPipeline(db); err == nil {
				opts.Trigger = pipeline
			} else {
				a.logger.Warn("manual trigger disabled", "reason", err)
			}
		}
		srv := server.New(db, usecase.NewRegistry(db, a.logger), renderer, opts, a.logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if noSchedule, _ := cmd.Flags().GetBool("no-schedule"); !noSchedule {
			sched, err := a.newScheduler(db)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
			a.logNextRuns(sched)
		}

		httpServer := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("server starting", "addr", httpServer.Addr, "environment", a.cfg.Environment, "database", db.DatabaseType())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-schedule", false, "Serve the API without running scheduled jobs")
}
