// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/orphanscan/internal/ports/secondary"
)

// sqliteTime is the layout SQLite's datetime() functions produce, so
// stored timestamps compare correctly against datetime('now', ...).
const sqliteTime = "2006-01-02 15:04:05"

// RunRepository implements secondary.RunRepository with SQLite.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun persists a new run.
func (r *RunRepository) CreateRun(ctx context.Context, run *secondary.RunRecord) error {
	startedAt, err := toSQLiteTime(run.StartedAt)
	if err != nil {
		return fmt.Errorf("invalid run start time: %w", err)
	}
	status := run.Status
	if status == "" {
		status = "running"
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, dry_run, epic_status, epic_count, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		status,
		run.DryRun,
		nullString(run.EpicStatus),
		run.EpicCount,
		startedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the final status, epic outcome and finish time.
func (r *RunRepository) FinishRun(ctx context.Context, run *secondary.RunRecord) error {
	finishedAt, err := toSQLiteTime(run.FinishedAt)
	if err != nil {
		return fmt.Errorf("invalid run finish time: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, epic_status = ?, epic_count = ?, finished_at = ? WHERE id = ?`,
		run.Status,
		nullString(run.EpicStatus),
		run.EpicCount,
		finishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// RecordCategory persists one category outcome.
func (r *RunRepository) RecordCategory(ctx context.Context, c *secondary.CategoryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_categories (run_id, category, outcome, reason, open_count, remote_count, orphan_count, marked_count, mark_errors, batch_count, oldest) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID,
		c.Category,
		c.Outcome,
		nullString(c.Reason),
		c.OpenCount,
		c.RemoteCount,
		c.OrphanCount,
		c.MarkedCount,
		c.MarkErrors,
		c.BatchCount,
		nullString(c.Oldest),
	)
	if err != nil {
		return fmt.Errorf("failed to record category: %w", err)
	}
	return nil
}

// RecordMark persists one marking attempt.
func (r *RunRepository) RecordMark(ctx context.Context, m *secondary.MarkRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_marks (run_id, category, ticket_number, document_id, index_name, result, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RunID,
		m.Category,
		m.TicketNumber,
		nullString(m.DocumentID),
		nullString(m.IndexName),
		m.Result,
		nullString(m.Detail),
	)
	if err != nil {
		return fmt.Errorf("failed to record mark: %w", err)
	}
	return nil
}

// GetRun retrieves a run by its ID.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*secondary.RunRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, status, dry_run, epic_status, epic_count, started_at, finished_at FROM runs WHERE id = ?`,
		id,
	)
	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// ListRuns retrieves runs matching the given filters, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	query := `SELECT id, status, dry_run, epic_status, epic_count, started_at, finished_at FROM runs WHERE 1=1`
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*secondary.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, record)
	}
	return runs, rows.Err()
}

// ListCategories retrieves the category outcomes of a run in insertion order.
func (r *RunRepository) ListCategories(ctx context.Context, runID string) ([]*secondary.CategoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, category, outcome, reason, open_count, remote_count, orphan_count, marked_count, mark_errors, batch_count, oldest FROM run_categories WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*secondary.CategoryRecord
	for rows.Next() {
		var reason, oldest sql.NullString
		c := &secondary.CategoryRecord{}
		if err := rows.Scan(&c.RunID,
			&c.Category,
			&c.Outcome,
			&reason,
			&c.OpenCount,
			&c.RemoteCount,
			&c.OrphanCount,
			&c.MarkedCount,
			&c.MarkErrors,
			&c.BatchCount,
			&oldest); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Reason = reason.String
		c.Oldest = oldest.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListMarks retrieves the marking attempts of a run in insertion order.
func (r *RunRepository) ListMarks(ctx context.Context, runID string) ([]*secondary.MarkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, category, ticket_number, document_id, index_name, result, detail, created_at FROM run_marks WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list marks: %w", err)
	}
	defer rows.Close()

	var marks []*secondary.MarkRecord
	for rows.Next() {
		var (
			documentID sql.NullString
			indexName  sql.NullString
			detail     sql.NullString
			createdAt  time.Time
		)
		m := &secondary.MarkRecord{}
		if err := rows.Scan(&m.RunID,
			&m.Category,
			&m.TicketNumber,
			&documentID,
			&indexName,
			&m.Result,
			&detail,
			&createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mark: %w", err)
		}
		m.DocumentID = documentID.String
		m.IndexName = indexName.String
		m.Detail = detail.String
		m.CreatedAt = createdAt.Format(time.RFC3339)
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// PruneOlderThan deletes runs started more than days ago, with their
// categories and marks.
func (r *RunRepository) PruneOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := fmt.Sprintf("-%d days", days)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin prune: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM run_marks WHERE run_id IN (SELECT id FROM runs WHERE started_at < datetime('now', ?))",
		"DELETE FROM run_categories WHERE run_id IN (SELECT id FROM runs WHERE started_at < datetime('now', ?))",
	} {
		if _, err := tx.ExecContext(ctx, stmt, cutoff); err != nil {
			return 0, fmt.Errorf("failed to prune run details: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < datetime('now', ?)", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}

	count, _ := result.RowsAffected()
	return int(count), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*secondary.RunRecord, error) {
	var (
		epicStatus sql.NullString
		startedAt  time.Time
		finishedAt sql.NullTime
	)
	record := &secondary.RunRecord{}
	if err := s.Scan(&record.ID,
		&record.Status,
		&record.DryRun,
		&epicStatus,
		&record.EpicCount,
		&startedAt,
		&finishedAt); err != nil {
		return nil, err
	}
	record.EpicStatus = epicStatus.String
	record.StartedAt = startedAt.Format(time.RFC3339)
	if finishedAt.Valid {
		record.FinishedAt = finishedAt.Time.Format(time.RFC3339)
	}
	return record, nil
}

// toSQLiteTime converts an RFC3339 timestamp to the stored layout in UTC.
// An empty value becomes the current time.
func toSQLiteTime(value string) (string, error) {
	if value == "" {
		return time.Now().UTC().Format(sqliteTime), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(sqliteTime), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure RunRepository implements the interface
var _ secondary.RunRepository = (*RunRepository)(nil)
