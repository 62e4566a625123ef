package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the import queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List import tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var statuses []queue.Status
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					for _, value := range strings.Split(trimmed, ",") {
						status, ok := queue.ParseStatus(value)
						if !ok {
							return fmt.Errorf("unknown status %q", value)
						}
						statuses = append(statuses, status)
					}
				}

				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty.")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					detail := item.ProgressMessage
					if item.ErrorMessage != "" {
						detail = item.ErrorMessage
					} else if item.NeedsReview && item.ReviewReason != "" {
						detail = item.ReviewReason
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.UnitTitle,
						string(item.Status),
						fmt.Sprintf("%.0f%%", item.ProgressPercent),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Comma-separated status filter")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed tasks back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid task id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(store *queue.Store) error {
				count, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d tasks for retry\n", count)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearFailed bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished tasks from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var count int64
				var err error
				switch {
				case clearAll:
					count, err = store.Clear(cmd.Context())
				case clearFailed:
					count, err = store.ClearFailed(cmd.Context())
				default:
					count, err = store.ClearCompleted(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d tasks\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed tasks instead of completed ones")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every task")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue counts by lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Total", strconv.Itoa(summary.Total)},
					{"Pending", strconv.Itoa(summary.Pending)},
					{"Processing", strconv.Itoa(summary.Processing)},
					{"Awaiting decision", strconv.Itoa(summary.Waiting)},
					{"Failed", strconv.Itoa(summary.Failed)},
					{"Done", strconv.Itoa(summary.Done)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"State", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
