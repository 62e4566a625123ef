package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/resume"
)

func newResumeLogCommand(ctx *commandContext) *cobra.Command {
	resumeCmd := &cobra.Command{
		Use:   "resume-log",
		Short: "Inspect and edit the resume log",
	}

	resumeCmd.AddCommand(newResumeLogListCommand(ctx))
	resumeCmd.AddCommand(newResumeLogForgetCommand(ctx))
	resumeCmd.AddCommand(newResumeLogClearCommand(ctx))

	return resumeCmd
}

func (c *commandContext) openResumeLog() (*resume.Log, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return resume.Open(cfg.ResumeLogPath(), logger), nil
}

func newResumeLogListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remembered import outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.openResumeLog()
			if err != nil {
				return err
			}
			entries := log.List()
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Resume log is empty.")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Identity,
					string(entry.State),
					entry.UnitPath,
					entry.RecordedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Identity", "State", "Path", "Recorded"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newResumeLogForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <identity>",
		Short: "Forget one unit so it is imported again on the next run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.openResumeLog()
			if err != nil {
				return err
			}
			removed, err := log.Forget(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !removed {
				fmt.Fprintf(out, "No resume entry for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Forgot %s\n", args[0])
			return nil
		},
	}
}

func newResumeLogClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every remembered outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.openResumeLog()
			if err != nil {
				return err
			}
			count := log.Count()
			if err := log.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries\n", count)
			return nil
		},
	}
}
