// Package gitx shells out to git for workspace preparation, feature
// branches, commits, and pushes.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Available checks if the given directory is inside a git work tree.
func Available(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

func RunCmd(ctx context.Context, dir string, name string, args ...string) string {
	log.Debug().Str("dir", dir).Str("cmd", name).Strs("args", args).Msg("running git command")
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Str("cmd", name).Strs("args", args).Msg("git command failed")
	}
	return string(out)
}

func RunCmdOutput(ctx context.Context, dir string, name string, args ...string) (string, error) {
	log.Debug().Str("dir", dir).Str("cmd", name).Strs("args", args).Msg("running git command (output return)")
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func RunCmdErr(ctx context.Context, dir string, name string, args ...string) error {
	log.Debug().Str("dir", dir).Str("cmd", name).Strs("args", args).Msg("running git command (err return)")
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	if !Available(ctx, dir) {
		return "", fmt.Errorf("not a git repository: %s", dir)
	}
	out, err := RunCmdOutput(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve current branch: %w", err)
	}
	branch := strings.TrimSpace(out)
	if branch == "" {
		return "", fmt.Errorf("resolve current branch: empty branch name")
	}
	if branch == "HEAD" {
		return "", fmt.Errorf("resolve current branch: detached HEAD")
	}
	return branch, nil
}

func localBranchExists(ctx context.Context, dir, branch string) bool {
	return strings.TrimSpace(RunCmd(ctx, dir, "git", "branch", "--list", branch)) != ""
}

func remoteBranchExists(ctx context.Context, dir, branch string) bool {
	err := RunCmdErr(ctx, dir, "git", "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+branch)
	return err == nil
}

func hasRemote(ctx context.Context, dir string) bool {
	return strings.TrimSpace(RunCmd(ctx, dir, "git", "remote")) != ""
}
