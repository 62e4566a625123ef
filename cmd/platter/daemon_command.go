package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"platter/internal/daemon"
	"platter/internal/importer"
	"platter/internal/recommend"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the import pipeline in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			// The daemon has no terminal to prompt on; tasks the auto-accept
			// floor cannot decide stay parked for an interactive session.
			provider := importer.NewAutoProvider(recommend.NewEngine(cfg.Thresholds))
			d, err := daemon.New(cfg, provider, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
}
