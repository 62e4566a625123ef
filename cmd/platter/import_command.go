package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"platter/internal/daemon"
	"platter/internal/importer"
	"platter/internal/recommend"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Scan directories, enqueue them, and run the import pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var provider importer.Provider
			if !nonInteractive && isatty.IsTerminal(os.Stdin.Fd()) {
				provider = newPromptProvider(cmd.InOrStdin(), out)
			} else {
				provider = importer.NewAutoProvider(recommend.NewEngine(cfg.Thresholds))
			}

			d, err := daemon.New(cfg, provider, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			scanner := &importer.DirScanner{}
			queued := 0
			for _, arg := range args {
				unit, err := scanner.Scan(cmd.Context(), arg)
				if err != nil {
					return fmt.Errorf("scan %s: %w", arg, err)
				}
				item, created, err := d.Enqueue(cmd.Context(), unit)
				if err != nil {
					return fmt.Errorf("enqueue %s: %w", arg, err)
				}
				if created {
					queued++
					fmt.Fprintf(out, "Queued #%d %s (%d tracks)\n", item.ID, item.UnitTitle, len(unit.Tracks))
				} else {
					fmt.Fprintf(out, "Already queued as #%d: %s\n", item.ID, item.UnitTitle)
				}
			}

			summary, err := d.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nImported %d, skipped %d, failed %d", summary.Completed, summary.Skipped, summary.Failed)
			if summary.Parked > 0 {
				fmt.Fprintf(out, ", awaiting decision %d", summary.Parked)
			}
			fmt.Fprintln(out)
			if summary.Parked > 0 {
				fmt.Fprintln(out, "Run `platter import` again from a terminal to decide the remaining tasks.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; rely on the auto-accept floor")
	return cmd
}
