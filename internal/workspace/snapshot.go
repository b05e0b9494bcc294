package workspace

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	maxSnapshotFileSize = 1024 * 1024
	maxRenderedChars    = 10000
)

// Text file extensions included in snapshots.
var textExtensions = map[string]bool{
	".py": true, ".js": true, ".html": true, ".htm": true, ".css": true,
	".json": true, ".md": true, ".txt": true, ".yml": true, ".yaml": true,
	".xml": true, ".sql": true, ".sh": true, ".bat": true, ".env": true,
}

// SnapshotFile is one workspace text file captured for a model prompt.
type SnapshotFile struct {
	Path    string
	Content string
}

// Snapshot reads every text file in the workspace, skipping excluded
// directories and files over 1MB. Unreadable files are logged and skipped.
func (s *Store) Snapshot() ([]SnapshotFile, error) {
	var out []SnapshotFile
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSnapshotFileSize {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		content, err := s.ReadFile(filepath.ToSlash(rel))
		if err != nil {
			log.Warn().Err(err).Str("path", rel).Msg("workspace: skipping unreadable file")
			return nil
		}
		out = append(out, SnapshotFile{Path: filepath.ToSlash(rel), Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot workspace: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// RenderSnapshot formats snapshot files for a prompt, truncating long
// files with a marker that names the original length.
func RenderSnapshot(files []SnapshotFile) string {
	var b strings.Builder
	for _, f := range files {
		content := f.Content
		if len(content) > maxRenderedChars {
			content = content[:maxRenderedChars] +
				fmt.Sprintf("\n\n... [FILE TRUNCATED - %d total characters] ...", len(f.Content))
		}
		fmt.Fprintf(&b, "---\nFILE: %s\n---\n%s\n\n", f.Path, content)
	}
	return b.String()
}
