// Package analyst turns a ticket and a codebase snapshot into a change
// specification with a single model call.
package analyst

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantry-dev/gantry/internal/metrics"
	"github.com/gantry-dev/gantry/internal/ticket"
	"github.com/gantry-dev/gantry/internal/workspace"
)

// Model produces one completion per call.
type Model interface {
	Complete(ctx context.Context, instructions, input string) (string, error)
}

// ArtifactLogger persists the raw analyst output.
type ArtifactLogger interface {
	RecordAnalyst(text string)
}

// Analyst runs the specification step.
type Analyst struct {
	model     Model
	artifacts ArtifactLogger
	metrics   *metrics.Recorder
}

// New creates an analyst. artifacts and recorder may be nil.
func New(model Model, artifacts ArtifactLogger, recorder *metrics.Recorder) *Analyst {
	return &Analyst{model: model, artifacts: artifacts, metrics: recorder}
}

// Request carries the inputs of the specification step.
type Request struct {
	Ticket       ticket.Ticket
	Snapshot     []workspace.SnapshotFile
	Attachments  map[string]string
	Instructions string
}

// Specify asks the model for a change specification.
func (a *Analyst) Specify(ctx context.Context, req Request) (string, error) {
	input := buildInput(req)

	start := time.Now()
	spec, err := a.model.Complete(ctx, req.Instructions, input)
	if a.metrics != nil {
		a.metrics.ObserveModelRequest("analyst", err, time.Since(start))
	}
	if err != nil {
		return "", fmt.Errorf("analyst model call: %w", err)
	}
	if a.artifacts != nil {
		a.artifacts.RecordAnalyst(spec)
	}
	log.Info().Str("ticket", req.Ticket.Key).Int("spec_chars", len(spec)).Msg("analyst: specification produced")
	return spec, nil
}

func buildInput(req Request) string {
	var b strings.Builder
	t := req.Ticket
	fmt.Fprintf(&b, "TICKET: %s\nTitle: %s\nDescription: %s\n", t.Key, t.Title, t.Description)
	if len(t.Comments) > 0 {
		b.WriteString("Comments:\n")
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "- %s\n", c.Body)
		}
	}

	if len(req.Attachments) > 0 {
		b.WriteString("\nATTACHMENTS (available to copy_file as attachments/<name>):\n")
		originals := make([]string, 0, len(req.Attachments))
		for original := range req.Attachments {
			originals = append(originals, original)
		}
		sort.Strings(originals)
		for _, original := range originals {
			fmt.Fprintf(&b, "- %s (from %s)\n", req.Attachments[original], original)
		}
	}

	b.WriteString("\nCODEBASE STRUCTURE AND CONTENT:\n")
	b.WriteString(workspace.RenderSnapshot(req.Snapshot))

	b.WriteString("\nProvide the change specification following the format given in the instructions.\n")
	return b.String()
}
