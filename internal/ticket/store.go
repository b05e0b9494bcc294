package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// KeyPrefix is the project prefix for locally created tickets.
const KeyPrefix = "GNT"

// Store manages ticket persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a ticket store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ Tracker = (*Store)(nil)

// Add inserts a new open ticket and returns its key.
func (s *Store) Add(ctx context.Context, title, description string) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(substr(key, ?) AS INTEGER)), 0) + 1 FROM tickets WHERE key LIKE ?`,
		len(KeyPrefix)+2, KeyPrefix+"-%")
	if err := row.Scan(&next); err != nil {
		return "", fmt.Errorf("next ticket number: %w", err)
	}
	key := fmt.Sprintf("%s-%d", KeyPrefix, next)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tickets(key, title, description, status, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)`,
		key, title, description, StatusOpen, now, now)
	if err != nil {
		return "", fmt.Errorf("insert ticket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return key, nil
}

// NextOpen returns the oldest ticket with status open or reopened.
func (s *Store) NextOpen(ctx context.Context) (Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key FROM tickets WHERE status IN (?, ?) ORDER BY created_at, key LIMIT 1`,
		StatusOpen, StatusReopened)
	var key string
	if err := row.Scan(&key); err != nil {
		if err == sql.ErrNoRows {
			return Ticket{}, ErrNoOpenTickets
		}
		return Ticket{}, fmt.Errorf("query open tickets: %w", err)
	}
	return s.Get(ctx, key)
}

// Get fetches a ticket with its comments in creation order.
func (s *Store) Get(ctx context.Context, key string) (Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, title, description, status, created_at, updated_at FROM tickets WHERE key=?`, key)
	var t Ticket
	if err := row.Scan(&t.Key, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Ticket{}, fmt.Errorf("ticket %s not found", key)
		}
		return Ticket{}, fmt.Errorf("read ticket: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT author, body, created_at FROM ticket_comments WHERE ticket_key=? ORDER BY id`, key)
	if err != nil {
		return Ticket{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.Author, &c.Body, &c.CreatedAt); err != nil {
			return Ticket{}, fmt.Errorf("scan comment: %w", err)
		}
		t.Comments = append(t.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return Ticket{}, fmt.Errorf("iterate comments: %w", err)
	}
	return t, nil
}

// List returns tickets filtered by status (optional), oldest first.
func (s *Store) List(ctx context.Context, status *string) ([]Ticket, error) {
	query := `SELECT key, title, description, status, created_at, updated_at FROM tickets`
	args := []any{}
	if status != nil {
		query += " WHERE status=?"
		args = append(args, *status)
	}
	query += " ORDER BY created_at, key"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.Key, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return out, nil
}

// AddComment appends a comment to a ticket.
func (s *Store) AddComment(ctx context.Context, key, author, body string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ticket_comments(ticket_key, author, body, created_at)
		SELECT key, ?, ?, ? FROM tickets WHERE key=?`, author, body, now, key)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ticket %s not found", key)
	}
	return nil
}

// Transition updates a ticket's status.
func (s *Store) Transition(ctx context.Context, key, status string) error {
	switch status {
	case StatusOpen, StatusReopened, StatusInProgress, StatusDone, StatusFailed:
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status=?, updated_at=? WHERE key=?`, status, now, key)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ticket %s not found", key)
	}
	return nil
}
