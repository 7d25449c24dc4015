package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/pababhi7/device-checker/internal/logger"
)

// newWatchCmd creates the watch subcommand: an in-process scheduler that
// runs the check on the configured cron expression, for deployments that
// don't lean on an external CI scheduler.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run checks continuously on the configured cron schedule",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cfg.Schedule, false),
		gocron.NewTask(func() {
			// Each tick is an independent run; the store lock keeps an
			// overlapping tick from interleaving, it just fails fast.
			r, err := buildRunner(cfg, flagDryRun, cfg.Commit.Enabled)
			if err != nil {
				logger.Error("building run pipeline failed", nil, err)
				return
			}
			if _, err := r.Run(context.Background()); err != nil {
				logger.Error("scheduled run failed", nil, err)
			}
		}),
		gocron.WithName("device-check"),
	)
	if err != nil {
		return fmt.Errorf("scheduling check job: %w", err)
	}

	logger.Info("watch started", logger.Fields{"schedule": cfg.Schedule})
	scheduler.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down", nil)
	return scheduler.Shutdown()
}
