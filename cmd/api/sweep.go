package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/chatdesk/internal/service"
	"github.com/spec-kit/chatdesk/internal/worker"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Close pending tickets left open by rating traffic and print how many",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	app, err := newApplication(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	defer worker.StartNotificationWorker(app.notifications, app.stream, logger)()

	closed, err := app.cleanup.SweepFor(cmd.Context(), service.TriggerManual)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "closed %d tickets\n", closed)
	return nil
}
