package ticket

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "mockup v2.png", SafeFileName("mockup v2.png", "x"))
	// Slashes are stripped, dots are kept, so traversal attempts collapse
	// to a harmless flat name.
	assert.Equal(t, "evil....passwd", SafeFileName("evil/../../passwd", "x"))
	assert.Equal(t, "report_final-1.pdf", SafeFileName("report_final-1.pdf", "x"))
	assert.Equal(t, "fallback", SafeFileName("???", "fallback"))
	assert.Equal(t, "fallback", SafeFileName("   ", "fallback"))
}

func TestStageAttachments(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.WriteFile(filepath.Join(src, "design.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes?.txt"), []byte("notes"), 0o644))

	staged, err := StageAttachments(src, dest)
	require.NoError(t, err)
	assert.Equal(t, "design.png", staged["design.png"])
	assert.Equal(t, "notes.txt", staged["notes?.txt"])

	data, err := os.ReadFile(filepath.Join(dest, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))
}

func TestStageAttachments_ConflictSuffix(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a?.txt"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.txt"), []byte("existing"), 0o644))

	staged, err := StageAttachments(src, dest)
	require.NoError(t, err)
	assert.Equal(t, "a_1.txt", staged["a?.txt"])
}

func TestStageAttachments_MissingSource(t *testing.T) {
	staged, err := StageAttachments(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, staged)
}
