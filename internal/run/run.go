// Package run orchestrates the ticket workflow: claim a ticket, prepare
// the git workspace, run the analyst and coder steps, commit and push
// the result, and report back to the tracker.
package run

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantry-dev/gantry/internal/analyst"
	"github.com/gantry-dev/gantry/internal/coder"
	"github.com/gantry-dev/gantry/internal/config"
	"github.com/gantry-dev/gantry/internal/gitx"
	"github.com/gantry-dev/gantry/internal/instructions"
	"github.com/gantry-dev/gantry/internal/metrics"
	"github.com/gantry-dev/gantry/internal/preview"
	"github.com/gantry-dev/gantry/internal/ticket"
	"github.com/gantry-dev/gantry/internal/workspace"
)

const commentAuthor = "gantry"

// Runner executes the gantry workflow for one ticket.
type Runner struct {
	cfg       config.Config
	gantryDir string
	store     *Store
	tracker   ticket.Tracker
	model     coder.Model
	metrics   *metrics.Recorder
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Ticket     string
	Status     string
	Turns      int
	Summary    string
	PreviewURL string
	Preview    *preview.Server
}

// NewRunner constructs a Runner.
func NewRunner(gantryDir string, cfg config.Config, store *Store, tracker ticket.Tracker, model coder.Model, recorder *metrics.Recorder) *Runner {
	return &Runner{
		cfg:       cfg,
		gantryDir: gantryDir,
		store:     store,
		tracker:   tracker,
		model:     model,
		metrics:   recorder,
	}
}

// Execute claims the oldest open ticket and works it to completion.
// ticket.ErrNoOpenTickets is returned untouched when the queue is empty.
func (r *Runner) Execute(ctx context.Context) (Result, error) {
	lock, ok, err := TryAcquireRunLock(r.gantryDir)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("another run is already in progress")
	}
	defer func() { _ = lock.Release() }()

	tk, err := r.tracker.NextOpen(ctx)
	if err != nil {
		return Result{}, err
	}

	runID, err := newRunID()
	if err != nil {
		return Result{}, err
	}
	runDir := filepath.Join(r.gantryDir, "runs", runID)
	artifacts, err := NewArtifactWriter(runDir)
	if err != nil {
		return Result{}, err
	}
	if err := r.store.CreateRun(ctx, runID, tk.Key, tk.Title, runDir); err != nil {
		return Result{}, err
	}
	log.Info().Str("run_id", runID).Str("ticket", tk.Key).Str("title", tk.Title).Msg("run: started")

	if err := r.tracker.Transition(ctx, tk.Key, ticket.StatusInProgress); err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}
	r.comment(ctx, tk.Key, fmt.Sprintf("Run %s started.", runID))

	staged, err := ticket.StageAttachments(
		filepath.Join(r.gantryDir, "attachments", tk.Key),
		filepath.Join(runDir, "attachments"))
	if err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}

	workspaceDir := r.cfg.Git.WorkspaceDir
	if workspaceDir == "" {
		workspaceDir = filepath.Join(r.gantryDir, "workspace")
	}
	base, err := gitx.PrepareWorkspace(ctx, r.cfg.Git.RepoURL, workspaceDir, tk.BranchHint())
	if err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}
	branch := tk.Key
	if err := gitx.FeatureBranch(ctx, workspaceDir, branch); err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}
	r.comment(ctx, tk.Key, fmt.Sprintf("Working on branch %s (based on %s).", branch, base))
	r.event(ctx, runID, "workspace_ready", fmt.Sprintf("branch %s from %s", branch, base))

	instr, err := instructions.Load(r.gantryDir)
	if err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}

	ws := workspace.New(workspaceDir, filepath.Join(runDir, "attachments"))
	snapshot, err := ws.Snapshot()
	if err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}

	spec, err := analyst.New(r.model, artifacts, r.metrics).Specify(ctx, analyst.Request{
		Ticket:       tk,
		Snapshot:     snapshot,
		Attachments:  staged,
		Instructions: instr.Analyst,
	})
	if err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}
	r.comment(ctx, tk.Key, "Specification:\n\n"+spec)
	r.event(ctx, runID, "analyst_done", fmt.Sprintf("%d chars", len(spec)))

	driver := coder.NewDriver(r.model, ws, coder.DriverOptions{
		Artifacts: artifacts,
		Metrics:   r.metrics,
		MaxTurns:  r.cfg.Budgets.MaxTurns,
	})
	res, err := driver.Run(ctx, coder.Request{
		Ticket:        tk,
		Specification: spec,
		Instructions:  instr.Coder,
	})
	if err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}
	r.recordTurns(ctx, runID, res)

	if err := r.applyResult(ctx, tk, branch, workspaceDir, res); err != nil {
		return r.fail(ctx, runID, tk.Key, err)
	}

	out := Result{RunID: runID, Ticket: tk.Key, Turns: res.Turns, Summary: res.Summary}
	if r.cfg.Preview.Active() {
		srv := preview.New(workspaceDir, r.cfg.Preview.Port)
		url, err := srv.Start()
		if err != nil {
			log.Warn().Err(err).Msg("run: preview server failed to start")
		} else {
			out.PreviewURL = url
			out.Preview = srv
			r.comment(ctx, tk.Key, "Preview available at "+url)
			r.event(ctx, runID, "preview_started", url)
		}
	}

	if res.State == coder.StateCompleted {
		out.Status = StatusCompleted
		summary := res.Summary
		if summary == "" {
			summary = "Changes applied."
		}
		r.comment(ctx, tk.Key, "Done: "+summary)
		if err := r.tracker.Transition(ctx, tk.Key, ticket.StatusDone); err != nil {
			return r.fail(ctx, runID, tk.Key, err)
		}
	} else {
		out.Status = StatusAborted
		r.comment(ctx, tk.Key, fmt.Sprintf("Conversation aborted (%s) after %d turns; any partial changes were committed.", res.AbortReason, res.Turns))
		if err := r.tracker.Transition(ctx, tk.Key, ticket.StatusFailed); err != nil {
			return r.fail(ctx, runID, tk.Key, err)
		}
	}

	if err := r.store.UpdateRun(ctx, runID, RunUpdate{Turn: res.Turns, Status: out.Status, Summary: res.Summary}, &Event{Type: "run_finished", Message: out.Status}); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("run: failed to record final status")
	}
	if r.metrics != nil {
		r.metrics.ObserveRun(out.Status, res.Turns)
	}

	r.prune(ctx)
	log.Info().Str("run_id", runID).Str("status", out.Status).Int("turns", res.Turns).Msg("run: finished")
	return out, nil
}

// applyResult commits and pushes whatever the conversation produced.
func (r *Runner) applyResult(ctx context.Context, tk ticket.Ticket, branch, workspaceDir string, res coder.Result) error {
	changed, err := gitx.HasChanges(ctx, workspaceDir)
	if err != nil {
		return err
	}
	if !changed {
		log.Info().Str("ticket", tk.Key).Msg("run: no changes to commit")
		return nil
	}

	msg := fmt.Sprintf("feat(%s): %s", tk.Key, tk.Title)
	if res.FailedOps > 0 {
		msg += fmt.Sprintf(" (partial - %d operations failed)", res.FailedOps)
	}
	if err := gitx.Commit(ctx, workspaceDir, msg); err != nil {
		return err
	}
	if r.cfg.Git.PushEnabled() {
		if err := gitx.Push(ctx, workspaceDir, branch); err != nil {
			return err
		}
		r.comment(ctx, tk.Key, fmt.Sprintf("Changes pushed to branch %s.", branch))
	}
	return nil
}

func (r *Runner) recordTurns(ctx context.Context, runID string, res coder.Result) {
	for i, op := range res.Applied {
		turn := TurnRecord{
			RunID:  runID,
			Turn:   i + 1,
			Kind:   op.Kind,
			OpPath: op.Target(),
			Status: "applied",
			Detail: op.String(),
		}
		update := RunUpdate{Turn: res.Turns, Status: StatusRunning, Summary: res.Summary}
		if err := r.store.CommitTurn(ctx, turn, nil, update); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Int("turn", i+1).Msg("run: failed to record turn")
		}
	}
}

// fail marks the run and ticket as failed. The original error is
// returned for the caller.
func (r *Runner) fail(ctx context.Context, runID, ticketKey string, cause error) (Result, error) {
	log.Error().Err(cause).Str("run_id", runID).Str("ticket", ticketKey).Msg("run: failed")
	r.comment(ctx, ticketKey, "Run failed: "+cause.Error())
	if err := r.tracker.Transition(ctx, ticketKey, ticket.StatusFailed); err != nil {
		log.Warn().Err(err).Str("ticket", ticketKey).Msg("run: failed to transition ticket")
	}
	if err := r.store.UpdateRun(ctx, runID, RunUpdate{Status: StatusFailed, Summary: cause.Error()},
		&Event{Type: "run_failed", Message: cause.Error()}); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("run: failed to record failure")
	}
	return Result{RunID: runID, Ticket: ticketKey, Status: StatusFailed}, cause
}

func (r *Runner) comment(ctx context.Context, key, body string) {
	if err := r.tracker.AddComment(ctx, key, commentAuthor, body); err != nil {
		log.Warn().Err(err).Str("ticket", key).Msg("run: failed to add comment")
	}
}

func (r *Runner) event(ctx context.Context, runID, typ, message string) {
	if err := r.store.UpdateRun(ctx, runID, RunUpdate{Status: StatusRunning}, &Event{Type: typ, Message: message}); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("run: failed to record event")
	}
}

func (r *Runner) prune(ctx context.Context) {
	policy := RetentionPolicy{KeepLast: r.cfg.Retention.KeepLast, KeepDays: r.cfg.Retention.KeepDays}
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return
	}
	res, err := PruneRuns(ctx, r.store.db, filepath.Join(r.gantryDir, "runs"), policy, false)
	if err != nil {
		log.Warn().Err(err).Msg("run: prune failed")
		return
	}
	if res.Deleted > 0 {
		log.Info().Int("deleted", res.Deleted).Int("kept", res.Kept).Msg("run: pruned old runs")
	}
}

func newRunID() (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s", ts, suffix), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
