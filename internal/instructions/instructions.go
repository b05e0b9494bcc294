// Package instructions loads the analyst and coder prompt instructions,
// preferring files under .gantry/instructions/ over the embedded
// defaults.
package instructions

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

//go:embed analyst.md
var defaultAnalyst string

//go:embed coder.md
var defaultCoder string

// Set holds the instruction texts for both model roles.
type Set struct {
	Analyst string
	Coder   string
}

// Load reads instruction overrides from gantryDir/instructions, falling
// back to the embedded defaults per file.
func Load(gantryDir string) (Set, error) {
	dir := filepath.Join(gantryDir, "instructions")
	analyst, err := loadOne(filepath.Join(dir, "analyst.md"), defaultAnalyst)
	if err != nil {
		return Set{}, err
	}
	coder, err := loadOne(filepath.Join(dir, "coder.md"), defaultCoder)
	if err != nil {
		return Set{}, err
	}
	return Set{Analyst: analyst, Coder: coder}, nil
}

func loadOne(path, fallback string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, nil
		}
		return "", fmt.Errorf("read instructions %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("instructions: using override")
	return string(data), nil
}
