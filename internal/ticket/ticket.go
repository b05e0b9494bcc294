package ticket

import (
	"context"
	"errors"
)

// Ticket statuses.
const (
	StatusOpen       = "open"
	StatusReopened   = "reopened"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// ErrNoOpenTickets is returned by NextOpen when the queue is empty.
var ErrNoOpenTickets = errors.New("no open tickets")

// Comment is a single comment on a ticket.
type Comment struct {
	Author    string
	Body      string
	CreatedAt string
}

// Ticket describes a tracker issue. The fields are a snapshot taken when
// the ticket was fetched; a run works against that snapshot.
type Ticket struct {
	Key         string
	Title       string
	Description string
	Comments    []Comment
	Status      string
	CreatedAt   string
	UpdatedAt   string
}

// BranchHint scans the description and comments for a requested base
// branch and returns it, or empty when none is found.
func (t Ticket) BranchHint() string {
	bodies := make([]string, 0, len(t.Comments))
	for _, c := range t.Comments {
		bodies = append(bodies, c.Body)
	}
	return extractBranchHint(t.Description, bodies)
}

// Tracker is the ticket tracker surface the runner needs.
type Tracker interface {
	NextOpen(ctx context.Context) (Ticket, error)
	Get(ctx context.Context, key string) (Ticket, error)
	AddComment(ctx context.Context, key, author, body string) error
	Transition(ctx context.Context, key, status string) error
}
