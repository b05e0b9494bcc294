package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a gantry project",
		Long:  "Initialize a gantry project by creating the .gantry directory layout and installing a default config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			gantryDir := filepath.Join(cwd, ".gantry")
			log.Info().Str("dir", gantryDir).Msg("creating gantry directory")
			for _, sub := range []string{"runs", "locks", "attachments", "instructions"} {
				if err := os.MkdirAll(filepath.Join(gantryDir, sub), 0o755); err != nil {
					return fmt.Errorf("create %s dir: %w", sub, err)
				}
			}

			configPath := filepath.Join(gantryDir, "config.json")
			if _, err := os.Stat(configPath); err == nil {
				log.Info().Msg("config.json already exists, skipping")
			} else {
				log.Info().Str("path", configPath).Msg("installing default config")
				defaultConfig := map[string]any{
					"model": map[string]any{
						"provider": "gemini",
						"name":     "gemini-2.0-flash-exp",
					},
					"git": map[string]any{
						"repo_url": "",
					},
					"budgets": map[string]any{
						"max_turns": 20,
					},
					"preview": map[string]any{
						"enabled": true,
						"port":    7777,
					},
					"retention": map[string]any{
						"keep_last": 50,
						"keep_days": 30,
					},
				}
				data, err := json.MarshalIndent(defaultConfig, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal default config: %w", err)
				}
				if err := os.WriteFile(configPath, data, 0o644); err != nil {
					return fmt.Errorf("write default config: %w", err)
				}
			}

			fmt.Println("gantry initialized, set git.repo_url in .gantry/config.json to get started")
			return nil
		},
	}
}
