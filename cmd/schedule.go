package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/naka-gawa/trending-digest/internal/scheduler"
	"github.com/naka-gawa/trending-digest/internal/store"
	"github.com/naka-gawa/trending-digest/internal/usecase"
	"github.com/spf13/cobra"
)

const (
	jobDaily  = "daily-analysis"
	jobWeekly = "weekly-newsletter"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Runs the daily analysis and weekly newsletter on their cron schedules",
	Long: `Starts a long-running process that runs the analysis pipeline on
schedule.daily and, when mail settings are present, the newsletter on
schedule.weekly. Stops on SIGINT or SIGTERM after running jobs finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.cfg.RequireLLM(); err != nil {
			return err
		}
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		sched, err := a.newScheduler(db)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched.Start()
		a.logNextRuns(sched)
		<-ctx.Done()
		a.logger.Info("shutting down scheduler")
		sched.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

// newScheduler registers the daily job when LLM credentials are configured and
// the weekly job when mail settings are.
func (a *app) newScheduler(db *store.SQLStore) (*scheduler.Scheduler, error) {
	sched, err := scheduler.NewScheduler(a.cfg.Schedule.Timezone, a.logger)
	if err != nil {
		return nil, err
	}

	if a.cfg.RequireLLM() == nil {
		pipeline, err := a.newPipeline(db)
		if err != nil {
			return nil, err
		}
		if err := sched.Add(jobDaily, a.cfg.Schedule.Daily, dailyJob(a, pipeline)); err != nil {
			return nil, err
		}
	} else {
		a.logger.Warn("LLM credentials missing; daily analysis not scheduled")
	}

	if err := a.cfg.RequireMailer(); err == nil {
		dispatcher, err := a.newDispatcher(db)
		if err != nil {
			return nil, err
		}
		if err := sched.Add(jobWeekly, a.cfg.Schedule.Weekly, weeklyJob(a, dispatcher)); err != nil {
			return nil, err
		}
	} else {
		a.logger.Warn("newsletter not scheduled", "reason", err)
	}
	return sched, nil
}

func dailyJob(a *app, pipeline *usecase.Pipeline) scheduler.Job {
	return func(ctx context.Context) error {
		report, err := pipeline.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("analysis run failed: %w", err)
		}
		a.logger.Info("daily analysis done", "date", report.Date, "outcome", report.Outcome, "repos", report.Repos, "tokens", report.TokensUsed)
		return nil
	}
}

func weeklyJob(a *app, dispatcher *usecase.Dispatcher) scheduler.Job {
	return func(ctx context.Context) error {
		report, err := dispatcher.SendWeekly(ctx)
		if err != nil {
			return fmt.Errorf("newsletter dispatch failed: %w", err)
		}
		a.logger.Info("weekly newsletter done", "delivered", report.Delivered, "total", report.Total, "failed", len(report.Failed))
		return nil
	}
}

func (a *app) logNextRuns(sched *scheduler.Scheduler) {
	for _, name := range []string{jobDaily, jobWeekly} {
		if next, ok := sched.Next(name); ok {
			a.logger.Info("next run", "job", name, "at", next)
		}
	}
}
