package run

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists run, turn, and event records.
type Store struct {
	db *sql.DB
}

// NewStore creates a store for run persistence.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// RunRow is one runs table record.
type RunRow struct {
	RunID     string
	CreatedAt string
	Ticket    string
	Goal      string
	Status    string
	Turn      int
	RunDir    string
	Summary   string
}

// TurnRecord is one recorded conversation turn.
type TurnRecord struct {
	RunID  string
	Turn   int
	Kind   string
	OpPath string
	Status string
	Detail string
}

// RunUpdate carries the mutable run fields.
type RunUpdate struct {
	Turn    int
	Status  string
	Summary string
}

// Event is an appended run event.
type Event struct {
	Type    string
	Message string
}

// CreateRun inserts the run record and a run_started event.
func (s *Store) CreateRun(ctx context.Context, runID, ticketKey, goal, runDir string) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, ticket, goal, status, turn, run_dir, summary)
		VALUES(?, ?, ?, ?, ?, 0, ?, '')`,
		runID, createdAt, ticketKey, goal, StatusRunning, runDir); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_started", "run started for "+ticketKey); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create run: %w", err)
	}
	return nil
}

// CommitTurn inserts a turn record, optional events, and updates the run
// in one transaction.
func (s *Store) CommitTurn(ctx context.Context, turn TurnRecord, events []Event, update RunUpdate) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO turns(run_id, turn, kind, op_path, status, detail, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		turn.RunID, turn.Turn, turn.Kind, turn.OpPath, turn.Status, turn.Detail, createdAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert turn: %w", err)
	}
	for _, ev := range events {
		if err := insertEvent(ctx, tx, turn.RunID, ev.Type, ev.Message); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := updateRun(ctx, tx, turn.RunID, update); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// UpdateRun applies a run update and optional event without a turn row.
func (s *Store) UpdateRun(ctx context.Context, runID string, update RunUpdate, event *Event) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin update run: %w", err)
	}
	if event != nil {
		if err := insertEvent(ctx, tx, runID, event.Type, event.Message); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := updateRun(ctx, tx, runID, update); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update run: %w", err)
	}
	return nil
}

func updateRun(ctx context.Context, tx *sql.Tx, runID string, update RunUpdate) error {
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET turn=?, status=?, summary=? WHERE run_id=?`,
		update.Turn, update.Status, update.Summary, runID); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runID, typ, message string) error {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id=?`, runID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(run_id, seq, ts, type, message) VALUES(?, ?, ?, ?, ?)`,
		runID, seq+1, ts, typ, message); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, ticket, goal, status, turn, run_dir, summary
		FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Ticket, &r.Goal, &r.Status, &r.Turn, &r.RunDir, &r.Summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRunStatus returns the status for a run id, or empty if missing.
func (s *Store) GetRunStatus(ctx context.Context, runID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id=?`, runID)
	var status string
	if err := row.Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("read run status: %w", err)
	}
	return status, nil
}
