package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/config"
	internaldb "github.com/gantry-dev/gantry/internal/db"
	"github.com/gantry-dev/gantry/internal/gitx"
	"github.com/gantry-dev/gantry/internal/ticket"
)

type fakeModel struct {
	responses []string
	calls     int
	failAt    int
}

func (m *fakeModel) Complete(_ context.Context, _, _ string) (string, error) {
	m.calls++
	if m.failAt > 0 && m.calls >= m.failAt {
		return "", fmt.Errorf("model unavailable")
	}
	if m.calls > len(m.responses) {
		return "", fmt.Errorf("no scripted response for call %d", m.calls)
	}
	return m.responses[m.calls-1], nil
}

func setupOrigin(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	require.NoError(t, gitx.RunCmdErr(ctx, dir, "git", "init", "-b", "main"))
	require.NoError(t, gitx.RunCmdErr(ctx, dir, "git", "config", "user.email", "test@example.com"))
	require.NoError(t, gitx.RunCmdErr(ctx, dir, "git", "config", "user.name", "test"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>\n<body>\n</body>\n</html>"), 0o644))
	require.NoError(t, gitx.RunCmdErr(ctx, dir, "git", "add", "-A"))
	require.NoError(t, gitx.RunCmdErr(ctx, dir, "git", "commit", "-m", "initial commit"))
	return dir
}

// setGitIdentity provides a commit identity through the environment.
// The checkout the Runner commits in is created inside Execute, so
// per-repo config is not an option here.
func setGitIdentity(t *testing.T) {
	t.Helper()
	t.Setenv("GIT_AUTHOR_NAME", "test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func setupRunner(t *testing.T, model *fakeModel) (*Runner, *ticket.Store, string) {
	t.Helper()
	setGitIdentity(t)
	gantryDir := t.TempDir()
	database, err := internaldb.Open(filepath.Join(gantryDir, "gantry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	origin := setupOrigin(t)
	previewOff := false
	cfg := config.Config{
		Git: config.GitConfig{
			RepoURL:      origin,
			WorkspaceDir: filepath.Join(t.TempDir(), "checkout"),
		},
		Preview: config.PreviewConfig{Enabled: &previewOff},
	}

	tracker := ticket.NewStore(database)
	runner := NewRunner(gantryDir, cfg, NewStore(database), tracker, model, nil)
	return runner, tracker, origin
}

func TestRunner_Execute_Success(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{responses: []string{
		"## Summary\nAdd a footer paragraph to index.html.",
		`{"operation": "find_replace", "file_path": "index.html", "find": "</body>", "replace": "<p>footer</p>\n</body>"}`,
		`{"operation": "complete", "summary": "Added footer paragraph"}`,
	}}
	runner, tracker, origin := setupRunner(t, model)

	key, err := tracker.Add(ctx, "Add footer", "Add a footer paragraph")
	require.NoError(t, err)

	res, err := runner.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, key, res.Ticket)
	assert.Equal(t, "Added footer paragraph", res.Summary)
	assert.Equal(t, 3, model.calls)

	tk, err := tracker.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusDone, tk.Status)
	var bodies []string
	for _, c := range tk.Comments {
		bodies = append(bodies, c.Body)
	}
	joined := fmt.Sprint(bodies)
	assert.Contains(t, joined, "Working on branch "+key)
	assert.Contains(t, joined, "Specification:")
	assert.Contains(t, joined, "Done: Added footer paragraph")

	// The feature branch with the commit landed on the origin.
	out, err := gitx.RunCmdOutput(ctx, origin, "git", "log", key, "-1", "--pretty=%s")
	require.NoError(t, err)
	assert.Contains(t, out, "feat("+key+"): Add footer")

	rows, err := runner.store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, StatusCompleted, rows[0].Status)
	assert.Equal(t, key, rows[0].Ticket)

	assert.FileExists(t, filepath.Join(rows[0].RunDir, "analyst.txt"))
	assert.FileExists(t, filepath.Join(rows[0].RunDir, "turns", "01-coder.txt"))
}

func TestRunner_Execute_PartialCommitMessage(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{responses: []string{
		"spec",
		`{"operation": "find_replace", "file_path": "index.html", "find": "nope-absent", "replace": "x"}`,
		`{"operation": "write_file", "file_path": "notes.txt", "file_content": "added"}`,
		"CHANGES DONE",
	}}
	runner, tracker, origin := setupRunner(t, model)

	key, err := tracker.Add(ctx, "Tweak things", "")
	require.NoError(t, err)

	res, err := runner.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)

	out, err := gitx.RunCmdOutput(ctx, origin, "git", "log", key, "-1", "--pretty=%s")
	require.NoError(t, err)
	assert.Contains(t, out, "(partial - 1 operations failed)")
}

func TestRunner_Execute_NoOpenTickets(t *testing.T) {
	runner, _, _ := setupRunner(t, &fakeModel{})

	_, err := runner.Execute(context.Background())
	require.ErrorIs(t, err, ticket.ErrNoOpenTickets)
}

func TestRunner_Execute_ModelFailureMarksTicketFailed(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{failAt: 1}
	runner, tracker, _ := setupRunner(t, model)

	key, err := tracker.Add(ctx, "Doomed", "")
	require.NoError(t, err)

	res, err := runner.Execute(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)

	tk, err := tracker.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFailed, tk.Status)

	status, err := runner.store.GetRunStatus(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status)
}

func TestRunner_Execute_AbortIsPartialResult(t *testing.T) {
	ctx := context.Background()
	get := `{"operation": "get_file", "file_path": "index.html"}`
	model := &fakeModel{responses: []string{"spec", get, get}}
	runner, tracker, _ := setupRunner(t, model)

	key, err := tracker.Add(ctx, "Stalls", "")
	require.NoError(t, err)

	res, err := runner.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, res.Status)
	assert.Empty(t, res.Summary)

	tk, err := tracker.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFailed, tk.Status)
}

func TestRunner_Execute_BranchHintCheckout(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{responses: []string{"spec", "CHANGES DONE"}}
	runner, tracker, origin := setupRunner(t, model)
	require.NoError(t, gitx.RunCmdErr(ctx, origin, "git", "branch", "develop"))

	key, err := tracker.Add(ctx, "Hinted", "use branch develop")
	require.NoError(t, err)

	_, err = runner.Execute(ctx)
	require.NoError(t, err)

	tk, err := tracker.Get(ctx, key)
	require.NoError(t, err)
	var joined string
	for _, c := range tk.Comments {
		joined += c.Body + "\n"
	}
	assert.Contains(t, joined, "based on develop")
}
