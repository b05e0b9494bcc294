package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/run"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage gantry runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsPruneCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := run.NewStore(storeDB)
			rows, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				log.Info().Msg("no runs")
				return nil
			}
			for _, row := range rows {
				_, _ = io.WriteString(os.Stdout,
					fmt.Sprintf("%s\t%s\t%s\t%d\t%s\n", row.RunID, row.Ticket, row.Status, row.Turn, row.Summary))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}

func runsPruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune old runs from disk and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, gantryDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := loadConfig(gantryDir)
			if err != nil {
				return err
			}

			policy := run.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = run.RetentionPolicy{
					KeepLast: cfg.Retention.KeepLast,
					KeepDays: cfg.Retention.KeepDays,
				}
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in .gantry/config.json)")
			}

			lock, err := run.AcquireRunLock(gantryDir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			res, err := run.PruneRuns(cmd.Context(), storeDB, filepath.Join(gantryDir, "runs"), policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d, skipped %d)", mode, res.Deleted, res.Kept, res.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
