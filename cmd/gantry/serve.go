package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/preview"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace for preview",
		Long:  "Serve the git workspace of the last run over local HTTP so the change can be inspected in a browser.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gantryDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			cfg, err := loadConfig(gantryDir)
			if err != nil {
				return err
			}

			workspaceDir := cfg.Git.WorkspaceDir
			if workspaceDir == "" {
				workspaceDir = filepath.Join(gantryDir, "workspace")
			}
			if _, err := os.Stat(workspaceDir); err != nil {
				return fmt.Errorf("workspace %s does not exist, run gantry run first", workspaceDir)
			}

			if port <= 0 {
				port = cfg.Preview.Port
			}
			server := preview.New(workspaceDir, port)
			url, err := server.Start()
			if err != nil {
				return err
			}
			fmt.Printf("Serving workspace at %s (ctrl-c to stop)\n", url)

			waitCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-waitCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "preferred port (default from config, then 7777)")
	return cmd
}
