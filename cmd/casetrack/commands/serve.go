package commands

import (
	"context"
	"log/slog"
	"time"

	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/tracker"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the daily refresh of every tracked case until interrupted.",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		if !*e.cfg.Refresh.Enabled {
			slog.Info("scheduled refresh is disabled, nothing to do")
			return nil
		}

		spec := chrono.DailySpec(*e.cfg.Refresh.Hour, e.cfg.Refresh.Minute)
		cron := chrono.NewStandardCron(e.tel, e.location)
		scheduler := tracker.NewScheduler(e.tracker, cron, spec, e.tel)
		err := scheduler.Start()
		if err != nil {
			return err
		}
		slog.Info("scheduler started", "spec", spec, "timezone", e.location.String())

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err = scheduler.Stop(stopCtx)
		if err != nil {
			slog.Warn("scheduler did not stop in time", "err", err)
		}
		slog.Info("scheduler stopped")
		return nil
	}),
}
