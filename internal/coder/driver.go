package coder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantry-dev/gantry/internal/metrics"
	"github.com/gantry-dev/gantry/internal/ticket"
)

// DefaultMaxTurns bounds the conversation length.
const DefaultMaxTurns = 20

const (
	maxReplaceSpan  = 50
	maxReplaceShare = 0.8
)

// Final states of a conversation.
const (
	StateCompleted = "completed"
	StateAborted   = "aborted"
)

// Abort reasons.
const (
	AbortTurnLimit      = "turn-limit"
	AbortRepeatGet      = "repeat-get"
	AbortRepeatMutation = "repeat-mutation"
)

// Workspace is the file store a conversation operates on.
type Workspace interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	CreateFile(path, content string) error
	DeleteFile(path string) error
	CopyFile(sourcePath, targetPath string) error
	ListTree() ([]string, error)
}

// Model produces one completion per turn.
type Model interface {
	Complete(ctx context.Context, instructions, input string) (string, error)
}

// ArtifactLogger persists raw model output per turn. Implementations
// must swallow their own failures.
type ArtifactLogger interface {
	RecordTurn(turn int, text string)
}

// Request carries the immutable inputs of one conversation.
type Request struct {
	Ticket        ticket.Ticket
	Specification string
	Instructions  string
}

// Result is the outcome of a conversation. An aborted conversation is a
// partial result, not an error: Applied holds whatever landed.
type Result struct {
	State       string
	AbortReason string
	Applied     []Operation
	Summary     string
	Turns       int
	FailedOps   int
}

// DriverOptions are optional driver collaborators and limits.
type DriverOptions struct {
	Artifacts ArtifactLogger
	Metrics   *metrics.Recorder
	MaxTurns  int
}

// Driver owns the turn loop, the file cache, and loop detection.
type Driver struct {
	model     Model
	ws        Workspace
	artifacts ArtifactLogger
	metrics   *metrics.Recorder
	maxTurns  int
}

// NewDriver creates a conversation driver.
func NewDriver(model Model, ws Workspace, opts DriverOptions) *Driver {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Driver{
		model:     model,
		ws:        ws,
		artifacts: opts.Artifacts,
		metrics:   opts.Metrics,
		maxTurns:  maxTurns,
	}
}

// convo is the per-invocation conversation state. It is created empty,
// never shared, and discarded when the conversation ends.
type convo struct {
	transcript  []string
	cache       map[string]string
	lastGet     string
	lastMut     string
	applied     []Operation
	failed      int
	abortReason string
	summary     string
	done        bool
}

func newConvo() *convo {
	return &convo{cache: map[string]string{}}
}

func (c *convo) assistant(turn int, text string) {
	c.transcript = append(c.transcript, fmt.Sprintf("ASSISTANT TURN %d: %s", turn, text))
}

func (c *convo) system(text string) {
	c.transcript = append(c.transcript, "SYSTEM: "+text)
}

func (c *convo) systemError(text string) {
	c.transcript = append(c.transcript, "SYSTEM ERROR: "+text)
}

// cacheFresh stores known content for a path after a successful mutation.
// The repeat-get tracker is cleared only when the mutation touched the
// tracked path; mutating some other file does not excuse re-requesting it.
func (c *convo) cacheFresh(path, content string) {
	c.cache[path] = content
	if c.lastGet == path {
		c.lastGet = ""
	}
}

func (c *convo) evict(path string) {
	delete(c.cache, path)
	if c.lastGet == path {
		c.lastGet = ""
	}
}

// Run executes the conversation until completion, abort, or a model
// transport failure. Transport failures return the partial result along
// with the error; retry policy belongs to the caller.
func (d *Driver) Run(ctx context.Context, req Request) (Result, error) {
	c := newConvo()
	turns := 0

	for turn := 1; ; turn++ {
		if turn > d.maxTurns {
			log.Warn().Int("max_turns", d.maxTurns).Str("ticket", req.Ticket.Key).Msg("coder: turn limit reached")
			c.abortReason = AbortTurnLimit
			break
		}
		if err := ctx.Err(); err != nil {
			return d.result(c, turns), err
		}

		input, err := d.buildInput(req, c)
		if err != nil {
			return d.result(c, turns), err
		}

		start := time.Now()
		raw, err := d.model.Complete(ctx, req.Instructions, input)
		if d.metrics != nil {
			d.metrics.ObserveModelRequest("coder", err, time.Since(start))
		}
		if err != nil {
			return d.result(c, turns), fmt.Errorf("coder model call (turn %d): %w", turn, err)
		}
		turns = turn
		if d.artifacts != nil {
			d.artifacts.RecordTurn(turn, raw)
		}

		op, perr := Parse(raw)
		if perr != nil {
			d.handleInvalid(c, turn, perr)
			continue
		}

		log.Debug().Int("turn", turn).Str("op", op.Kind).Str("path", op.Target()).Msg("coder: operation received")

		if op.Kind == OpComplete {
			if problems := markupProblems(c.cache); problems != "" {
				c.assistant(turn, raw)
				c.systemError("Completion rejected, markup is unbalanced. " + problems + ". Fix the files before responding with 'CHANGES DONE'.")
				continue
			}
			c.summary = op.Summary
			c.done = true
			return d.result(c, turns), nil
		}

		c.assistant(turn, raw)
		d.dispatch(c, op)
		if c.abortReason != "" {
			break
		}
	}

	return d.result(c, turns), nil
}

func (d *Driver) result(c *convo, turns int) Result {
	state := StateAborted
	if c.done {
		state = StateCompleted
	}
	return Result{
		State:       state,
		AbortReason: c.abortReason,
		Applied:     c.applied,
		Summary:     c.summary,
		Turns:       turns,
		FailedOps:   c.failed,
	}
}

func (d *Driver) handleInvalid(c *convo, turn int, perr error) {
	var vf *ValidationFailure
	if errors.As(perr, &vf) {
		c.assistant(turn, "[Response contained an invalid operation: "+vf.Reason+"]")
		c.systemError("Invalid operation: " + vf.Reason + ". Provide JSON with 'operation' (get_file/replace_lines/find_replace/write_file/create_file/delete_file/copy_file/complete) and its required fields, or 'CHANGES DONE' when everything is finished.")
		return
	}
	c.assistant(turn, "[Response contained invalid JSON]")
	c.systemError("Invalid JSON format. Provide a single JSON object with 'operation' and its required fields, or 'CHANGES DONE' when everything is finished.")
}

// buildInput assembles the per-turn prompt body: ticket, specification,
// workspace tree listing (paths only), and the rolling transcript.
func (d *Driver) buildInput(req Request, c *convo) (string, error) {
	tree, err := d.ws.ListTree()
	if err != nil {
		return "", fmt.Errorf("list workspace tree: %w", err)
	}

	var b strings.Builder
	t := req.Ticket
	fmt.Fprintf(&b, "TICKET: %s\nTitle: %s\nDescription: %s\n", t.Key, t.Title, t.Description)
	if len(t.Comments) > 0 {
		b.WriteString("Comments:\n")
		for _, cm := range t.Comments {
			fmt.Fprintf(&b, "- %s\n", cm.Body)
		}
	}
	fmt.Fprintf(&b, "\nSPECIFICATION:\n%s\n", req.Specification)

	b.WriteString("\nWORKSPACE TREE:\n")
	for _, p := range tree {
		fmt.Fprintf(&b, "%s\n", p)
	}

	b.WriteString("\n--- CONVERSATION HISTORY ---\n")
	if len(c.transcript) == 0 {
		b.WriteString("No previous conversation.\n")
	} else {
		for _, entry := range c.transcript {
			b.WriteString(entry)
			b.WriteString("\n")
		}
	}
	b.WriteString("--- END CONVERSATION HISTORY ---\n")
	b.WriteString("\nRespond with exactly one JSON operation, or 'CHANGES DONE' when everything is finished.\n")
	return b.String(), nil
}

// dispatch executes one validated operation. Every call appends exactly
// one system transcript entry describing the outcome.
func (d *Driver) dispatch(c *convo, op Operation) {
	switch op.Kind {
	case OpGetFile:
		d.getFile(c, op)
	case OpReplaceLines:
		d.replaceLines(c, op)
	case OpFindAndReplace:
		d.findReplace(c, op)
	case OpWriteFile, OpCreateFile:
		d.writeFull(c, op)
	case OpDeleteFile:
		d.deleteFile(c, op)
	case OpCopyFile:
		d.copyFile(c, op)
	}
}

func (d *Driver) operationOK(c *convo, op Operation) {
	c.applied = append(c.applied, op)
	c.lastMut = mutationSignature(op)
	c.system(op.String() + " completed successfully. Is there anything else needed, or are you ready to respond with 'CHANGES DONE'?")
	if d.metrics != nil {
		d.metrics.ObserveOperation(op.Kind, true)
	}
}

func (d *Driver) operationFailed(c *convo, op Operation, msg string) {
	c.failed++
	c.systemError(op.String() + " failed: " + msg)
	if d.metrics != nil {
		d.metrics.ObserveOperation(op.Kind, false)
	}
}

func mutationSignature(op Operation) string {
	switch op.Kind {
	case OpReplaceLines:
		return fmt.Sprintf("%s|%s|%d|%d|%s", op.Kind, op.Path, op.Start, op.End, op.Content)
	case OpFindAndReplace:
		return fmt.Sprintf("%s|%s|%s|%s", op.Kind, op.Path, op.Find, op.Replace)
	case OpCopyFile:
		return fmt.Sprintf("%s|%s|%s", op.Kind, op.SourcePath, op.TargetPath)
	default:
		return fmt.Sprintf("%s|%s|%s", op.Kind, op.Path, op.Content)
	}
}

func (d *Driver) getFile(c *convo, op Operation) {
	if c.lastGet == op.Path {
		c.system("Conversation terminated: '" + op.Path + "' was requested twice in a row with no change in between.")
		c.abortReason = AbortRepeatGet
		return
	}
	c.lastGet = op.Path

	if content, ok := c.cache[op.Path]; ok {
		c.system(fmt.Sprintf("content of '%s':\n%s", op.Path, content))
		return
	}

	content, err := d.ws.ReadFile(op.Path)
	if err != nil {
		c.systemError(fmt.Sprintf("cannot read '%s': %s", op.Path, err))
		return
	}
	c.cache[op.Path] = content
	c.system(fmt.Sprintf("content of '%s':\n%s", op.Path, content))
}

// currentContent returns the file content the mutation should apply to,
// from cache when known, reading the workspace otherwise.
func (d *Driver) currentContent(c *convo, path string) (string, error) {
	if content, ok := c.cache[path]; ok {
		return content, nil
	}
	return d.ws.ReadFile(path)
}

func (d *Driver) replaceLines(c *convo, op Operation) {
	if mutationSignature(op) == c.lastMut {
		c.system("Conversation terminated: the same replace_lines operation was issued twice in a row.")
		c.abortReason = AbortRepeatMutation
		return
	}

	content, err := d.currentContent(c, op.Path)
	if err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	lines := strings.Split(content, "\n")
	total := len(lines)
	if op.End > total {
		d.operationFailed(c, op, fmt.Sprintf("end_line %d exceeds file length %d", op.End, total))
		return
	}
	span := op.End - op.Start + 1
	if span > maxReplaceSpan || float64(span) > maxReplaceShare*float64(total) {
		d.operationFailed(c, op, fmt.Sprintf("span of %d lines is too large for a %d-line file, use write_file for a full rewrite", span, total))
		return
	}

	merged := make([]string, 0, total)
	merged = append(merged, lines[:op.Start-1]...)
	merged = append(merged, strings.Split(op.Content, "\n")...)
	merged = append(merged, lines[op.End:]...)
	result := strings.Join(merged, "\n")

	if err := d.ws.WriteFile(op.Path, result); err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	c.cacheFresh(op.Path, result)
	d.operationOK(c, op)
}

func (d *Driver) findReplace(c *convo, op Operation) {
	if mutationSignature(op) == c.lastMut {
		c.system("Conversation terminated: the same find_replace operation was issued twice in a row.")
		c.abortReason = AbortRepeatMutation
		return
	}

	content, err := d.currentContent(c, op.Path)
	if err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	count := strings.Count(content, op.Find)
	if count != 1 {
		d.operationFailed(c, op, fmt.Sprintf("pattern matched %d times, it must match exactly once", count))
		return
	}

	result := strings.Replace(content, op.Find, op.Replace, 1)
	if err := d.ws.WriteFile(op.Path, result); err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	c.cacheFresh(op.Path, result)
	d.operationOK(c, op)
}

func (d *Driver) writeFull(c *convo, op Operation) {
	var err error
	if op.Kind == OpCreateFile {
		err = d.ws.CreateFile(op.Path, op.Content)
	} else {
		err = d.ws.WriteFile(op.Path, op.Content)
	}
	if err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	c.cacheFresh(op.Path, op.Content)
	d.operationOK(c, op)
}

func (d *Driver) deleteFile(c *convo, op Operation) {
	if err := d.ws.DeleteFile(op.Path); err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	c.evict(op.Path)
	d.operationOK(c, op)
}

func (d *Driver) copyFile(c *convo, op Operation) {
	if err := d.ws.CopyFile(op.SourcePath, op.TargetPath); err != nil {
		d.operationFailed(c, op, err.Error())
		return
	}
	// Copied content is never read back here, so the target cannot stay cached.
	c.evict(op.TargetPath)
	d.operationOK(c, op)
}
