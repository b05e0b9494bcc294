// Package workspace is the file-backed store a run's operations act on.
// All paths are relative to the git checkout root and confined to it.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a read targets a missing file.
var ErrNotFound = errors.New("file not found")

// Directories never listed or snapshotted.
var excludedDirs = map[string]bool{
	".git":          true,
	".gantry":       true,
	"node_modules":  true,
	"__pycache__":   true,
	".pytest_cache": true,
	".idea":         true,
	".vscode":       true,
	"venv":          true,
}

// Store provides confined file operations over a workspace directory.
// Attachment sources for CopyFile resolve against a separate directory.
type Store struct {
	root        string
	attachments string
}

// New creates a store rooted at dir. attachmentsDir may be empty when the
// run has no staged attachments.
func New(dir, attachmentsDir string) *Store {
	return &Store{root: dir, attachments: attachmentsDir}
}

// Root returns the workspace directory.
func (s *Store) Root() string { return s.root }

func (s *Store) resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path %q not allowed", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return filepath.Join(s.root, clean), nil
}

// ReadFile returns the file contents, or ErrNotFound.
func (s *Store) ReadFile(path string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile replaces the file contents, creating parent directories.
func (s *Store) WriteFile(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CreateFile writes a new file, overwriting any existing one.
func (s *Store) CreateFile(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(abs); statErr == nil {
		log.Warn().Str("path", path).Msg("workspace: file exists, overwriting")
	}
	return s.WriteFile(path, content)
}

// DeleteFile removes a file. A missing file is not an error.
func (s *Store) DeleteFile(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// CopyFile copies an attachment into the workspace. An "attachments/"
// prefix on the source is accepted and stripped.
func (s *Store) CopyFile(sourcePath, targetPath string) error {
	if s.attachments == "" {
		return fmt.Errorf("no attachment area configured")
	}
	rel := strings.TrimPrefix(sourcePath, "attachments/")
	if rel == "" || strings.Contains(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("invalid attachment path %q", sourcePath)
	}
	src := filepath.Join(s.attachments, filepath.FromSlash(rel))
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("attachment %s: %w", sourcePath, ErrNotFound)
		}
		return fmt.Errorf("open attachment %s: %w", sourcePath, err)
	}
	defer in.Close()

	abs, err := s.resolve(targetPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", targetPath, err)
	}
	out, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("create %s: %w", targetPath, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", targetPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", targetPath, err)
	}
	return nil
}

// ListTree returns all workspace paths, directories suffixed with "/",
// sorted, excluding version-control and dependency-cache directories.
func (s *Store) ListTree() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			out = append(out, rel+"/")
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
