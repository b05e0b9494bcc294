package ticket

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SafeFileName reduces a filename to characters safe to write to disk.
// fallback names the file when nothing survives the filter.
func SafeFileName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimRight(b.String(), " ")
	if safe == "" {
		return fallback
	}
	return safe
}

// StageAttachments copies every file from the ticket's attachment
// directory into destDir under a sanitized name. Name conflicts get a
// numeric suffix before the extension. Returns staged names keyed by the
// original filename. A missing source directory stages nothing.
func StageAttachments(srcDir, destDir string) (map[string]string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read attachments dir: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	staged := make(map[string]string)
	for i, e := range entries {
		if e.IsDir() {
			continue
		}
		name := SafeFileName(e.Name(), fmt.Sprintf("attachment_%d", i+1))
		dest := filepath.Join(destDir, name)
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for counter := 1; ; counter++ {
			if _, err := os.Stat(dest); os.IsNotExist(err) {
				break
			}
			dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		}
		if err := copyFile(filepath.Join(srcDir, e.Name()), dest); err != nil {
			return nil, fmt.Errorf("stage attachment %s: %w", e.Name(), err)
		}
		staged[e.Name()] = filepath.Base(dest)
	}
	return staged, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
