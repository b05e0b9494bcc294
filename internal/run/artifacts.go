package run

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ArtifactWriter persists raw model output under the run directory.
// Writes are fire-and-forget: a failed write logs a warning and never
// fails the run.
type ArtifactWriter struct {
	runDir string
}

// NewArtifactWriter creates the writer and its turns directory.
func NewArtifactWriter(runDir string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(filepath.Join(runDir, "turns"), 0o755); err != nil {
		return nil, fmt.Errorf("create turns dir: %w", err)
	}
	return &ArtifactWriter{runDir: runDir}, nil
}

// RecordTurn writes one coder turn's raw output.
func (w *ArtifactWriter) RecordTurn(turn int, text string) {
	path := filepath.Join(w.runDir, "turns", fmt.Sprintf("%02d-coder.txt", turn))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("artifacts: failed to write turn log")
	}
}

// RecordAnalyst writes the analyst's raw specification output.
func (w *ArtifactWriter) RecordAnalyst(text string) {
	path := filepath.Join(w.runDir, "analyst.txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("artifacts: failed to write analyst log")
	}
}
