package gitx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	require.NoError(t, RunCmdErr(ctx, dir, "git", "init", "-b", branch))
	require.NoError(t, RunCmdErr(ctx, dir, "git", "config", "user.email", "test@example.com"))
	require.NoError(t, RunCmdErr(ctx, dir, "git", "config", "user.name", "test"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, RunCmdErr(ctx, dir, "git", "add", "-A"))
	require.NoError(t, RunCmdErr(ctx, dir, "git", "commit", "-m", "initial commit"))
	return dir
}

func TestPrepareWorkspace_ClonesMissing(t *testing.T) {
	ctx := context.Background()
	origin := initRepo(t, "main")
	dir := filepath.Join(t.TempDir(), "checkout")

	base, err := PrepareWorkspace(ctx, origin, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "main", base)
	assert.FileExists(t, filepath.Join(dir, "index.html"))
}

func TestPrepareWorkspace_MasterFallback(t *testing.T) {
	ctx := context.Background()
	origin := initRepo(t, "master")
	dir := filepath.Join(t.TempDir(), "checkout")

	base, err := PrepareWorkspace(ctx, origin, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "master", base)
}

func TestPrepareWorkspace_HintBranch(t *testing.T) {
	ctx := context.Background()
	origin := initRepo(t, "main")
	require.NoError(t, RunCmdErr(ctx, origin, "git", "branch", "feature/banner"))
	dir := filepath.Join(t.TempDir(), "checkout")

	base, err := PrepareWorkspace(ctx, origin, dir, "feature/banner")
	require.NoError(t, err)
	assert.Equal(t, "feature/banner", base)
}

func TestPrepareWorkspace_MissingHintFallsBack(t *testing.T) {
	ctx := context.Background()
	origin := initRepo(t, "main")
	dir := filepath.Join(t.TempDir(), "checkout")

	base, err := PrepareWorkspace(ctx, origin, dir, "does/not-exist")
	require.NoError(t, err)
	assert.Equal(t, "main", base)
}

func TestPrepareWorkspace_ResetsDirtyCheckout(t *testing.T) {
	ctx := context.Background()
	origin := initRepo(t, "main")
	dir := filepath.Join(t.TempDir(), "checkout")
	_, err := PrepareWorkspace(ctx, origin, dir, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("dirty"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.txt"), []byte("junk"), 0o644))

	_, err = PrepareWorkspace(ctx, origin, dir, "")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "junk.txt"))
}

func TestFeatureBranch_CreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t, "main")

	require.NoError(t, FeatureBranch(ctx, dir, "GNT-7"))
	branch, err := CurrentBranch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "GNT-7", branch)

	require.NoError(t, RunCmdErr(ctx, dir, "git", "checkout", "main"))
	require.NoError(t, FeatureBranch(ctx, dir, "GNT-7"))
	branch, err = CurrentBranch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "GNT-7", branch)
}

func TestCommitAndHasChanges(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t, "main")

	changed, err := HasChanges(ctx, dir)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.css"), []byte("body{}"), 0o644))
	changed, err = HasChanges(ctx, dir)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, Commit(ctx, dir, "feat(GNT-1): add stylesheet"))
	changed, err = HasChanges(ctx, dir)
	require.NoError(t, err)
	assert.False(t, changed)

	out, err := RunCmdOutput(ctx, dir, "git", "log", "-1", "--pretty=%s")
	require.NoError(t, err)
	assert.Contains(t, out, "feat(GNT-1): add stylesheet")
}

func TestPush_SetsUpstream(t *testing.T) {
	ctx := context.Background()
	// The clone has no per-repo identity, so commit identity comes from
	// the environment.
	t.Setenv("GIT_AUTHOR_NAME", "test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	origin := initRepo(t, "main")
	// Bare-style push target: allow updating the checked-out branch.
	require.NoError(t, RunCmdErr(ctx, origin, "git", "config", "receive.denyCurrentBranch", "ignore"))

	dir := filepath.Join(t.TempDir(), "checkout")
	_, err := PrepareWorkspace(ctx, origin, dir, "")
	require.NoError(t, err)

	require.NoError(t, FeatureBranch(ctx, dir, "GNT-2"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, Commit(ctx, dir, "feat(GNT-2): add file"))

	require.NoError(t, Push(ctx, dir, "GNT-2"))

	out, err := RunCmdOutput(ctx, origin, "git", "branch", "--list", "GNT-2")
	require.NoError(t, err)
	assert.Contains(t, out, "GNT-2")
}
