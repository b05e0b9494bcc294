package gitx

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// PrepareWorkspace opens the checkout at dir, cloning repoURL when it is
// missing, discards local changes, and checks out the base branch:
// the hint when it exists, then main, then master. Returns the base
// branch name.
func PrepareWorkspace(ctx context.Context, repoURL, dir, hint string) (string, error) {
	if Available(ctx, dir) {
		_ = RunCmdErr(ctx, dir, "git", "reset", "--hard")
		_ = RunCmdErr(ctx, dir, "git", "clean", "-fdx")
		if hasRemote(ctx, dir) {
			if err := RunCmdErr(ctx, dir, "git", "fetch", "origin"); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("git fetch failed, continuing with local refs")
			}
		}
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create workspace dir: %w", err)
		}
		if err := RunCmdErr(ctx, dir, "git", "clone", repoURL, "."); err != nil {
			return "", fmt.Errorf("git clone %s: %w", repoURL, err)
		}
	}
	return checkoutBase(ctx, dir, hint)
}

func checkoutBase(ctx context.Context, dir, hint string) (string, error) {
	candidates := []string{}
	if hint != "" {
		candidates = append(candidates, hint)
	}
	candidates = append(candidates, "main", "master")

	for _, branch := range candidates {
		if !localBranchExists(ctx, dir, branch) && !remoteBranchExists(ctx, dir, branch) {
			if branch == hint {
				log.Warn().Str("branch", hint).Msg("requested branch not found, falling back")
			}
			continue
		}
		if err := RunCmdErr(ctx, dir, "git", "checkout", branch); err != nil {
			return "", fmt.Errorf("git checkout %s: %w", branch, err)
		}
		if hasRemote(ctx, dir) && remoteBranchExists(ctx, dir, branch) {
			if err := RunCmdErr(ctx, dir, "git", "pull", "origin", branch); err != nil {
				log.Warn().Err(err).Str("branch", branch).Msg("git pull failed, continuing with local state")
			}
		}
		return branch, nil
	}

	// Repo uses neither main nor master; stay where HEAD is.
	return CurrentBranch(ctx, dir)
}

// FeatureBranch switches to the named branch, creating it when missing.
// An existing remote branch of the same name becomes its start point.
func FeatureBranch(ctx context.Context, dir, name string) error {
	switch {
	case localBranchExists(ctx, dir, name):
		return RunCmdErr(ctx, dir, "git", "checkout", name)
	case remoteBranchExists(ctx, dir, name):
		return RunCmdErr(ctx, dir, "git", "checkout", "-b", name, "origin/"+name)
	default:
		return RunCmdErr(ctx, dir, "git", "checkout", "-b", name)
	}
}

// HasChanges reports whether the work tree has staged, unstaged, or
// untracked changes.
func HasChanges(ctx context.Context, dir string) (bool, error) {
	out, err := RunCmdOutput(ctx, dir, "git", "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// Commit stages everything and commits with the given message.
func Commit(ctx context.Context, dir, message string) error {
	if err := RunCmdErr(ctx, dir, "git", "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	if err := RunCmdErr(ctx, dir, "git", "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// Push publishes the branch, setting the upstream when the remote does
// not have it yet.
func Push(ctx context.Context, dir, branch string) error {
	args := []string{"push", "origin", branch}
	if !remoteBranchExists(ctx, dir, branch) {
		args = []string{"push", "--set-upstream", "origin", branch}
	}
	if err := RunCmdErr(ctx, dir, "git", args...); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}
