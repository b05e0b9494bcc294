package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/llm"
	"github.com/gantry-dev/gantry/internal/metrics"
	"github.com/gantry-dev/gantry/internal/run"
	"github.com/gantry-dev/gantry/internal/ticket"
)

func runCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Work the next open ticket",
		Long:         "Claim the oldest open ticket, prepare the workspace, and drive the model conversation until the change is complete.",
		SilenceUsage: true,
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

			model, err := llm.New(cfg.Model, nil)
			if err != nil {
				return err
			}
			tracker := ticket.NewStore(storeDB)
			runStore := run.NewStore(storeDB)
			recorder := metrics.NewRecorder()
			runner := run.NewRunner(gantryDir, cfg, runStore, tracker, model, recorder)

			ctx := cmd.Context()
			for {
				result, err := runner.Execute(ctx)
				if errors.Is(err, ticket.ErrNoOpenTickets) {
					log.Info().Msg("no open tickets")
					return nil
				}
				if err != nil {
					return err
				}
				log.Info().
					Str("run_id", result.RunID).
					Str("ticket", result.Ticket).
					Str("status", result.Status).
					Int("turns", result.Turns).
					Msg("run finished")
				if !all {
					return holdPreview(ctx, result)
				}
				if result.Preview != nil {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					_ = result.Preview.Shutdown(shutdownCtx)
					cancel()
				}
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "keep running until no open tickets remain")
	return cmd
}

// holdPreview keeps the preview server alive until interrupted.
func holdPreview(ctx context.Context, result run.Result) error {
	if result.Preview == nil {
		return nil
	}
	fmt.Printf("Preview available at %s (ctrl-c to stop)\n", result.PreviewURL)
	waitCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-waitCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return result.Preview.Shutdown(shutdownCtx)
}
