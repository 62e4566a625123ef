package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/library"
	"platter/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the queue database and library catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Database", health.DBPath},
					{"Exists", yesNo(health.DatabaseExists)},
					{"Readable", yesNo(health.DatabaseReadable)},
					{"Schema version", valueOr(health.SchemaVersion, "unknown")},
					{"Integrity", yesNo(health.IntegrityCheck)},
					{"Tasks", strconv.Itoa(health.TotalItems)},
				}
				if len(health.MissingColumns) > 0 {
					rows = append(rows, []string{"Missing columns", strings.Join(health.MissingColumns, ", ")})
				}
				if health.Error != "" {
					rows = append(rows, []string{"Error", health.Error})
				}

				catalogCount := "unavailable"
				if catalog, err := library.Open(cfg); err == nil {
					if count, err := catalog.Count(cmd.Context()); err == nil {
						catalogCount = strconv.Itoa(count)
					}
					catalog.Close()
				}
				rows = append(rows, []string{"Library entries", catalogCount})

				fmt.Fprintln(out, renderTable(
					[]string{"Check", "Result"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))

				if !health.DatabaseReadable || !health.IntegrityCheck {
					return fmt.Errorf("queue database is unhealthy")
				}
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
