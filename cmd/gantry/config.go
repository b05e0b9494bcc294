package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/gantry-dev/gantry/internal/config"
)

func loadConfig(gantryDir string) (config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".gantry", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(gantryDir), path)
	}
	// Validate the file's raw JSON so flag-bound keys on the global viper
	// (e.g. "config") never reach schema validation, and empty objects in
	// the file are not dropped the way viper's AllSettings drops them (F5).
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	var settings map[string]any
	if err := json.Unmarshal(raw, &settings); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return config.Config{}, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg config.Config
	decodeStrict := func(dc *mapstructure.DecoderConfig) { dc.ErrorUnused = true }
	if err := v.Unmarshal(&cfg, decodeStrict); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Model.Provider == "" {
		return config.Config{}, fmt.Errorf("model.provider is required")
	}
	if cfg.Git.RepoURL == "" {
		return config.Config{}, fmt.Errorf("git.repo_url is required")
	}
	return cfg, nil
}
