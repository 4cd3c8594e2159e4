package secondary

import "context"

// RunRepository defines the secondary port for run history persistence.
type RunRepository interface {
	// CreateRun persists a new run in the running state.
	CreateRun(ctx context.Context, run *RunRecord) error

	// FinishRun records the final status of a run.
	FinishRun(ctx context.Context, run *RunRecord) error

	// RecordCategory persists the outcome of one category.
	RecordCategory(ctx context.Context, category *CategoryRecord) error

	// RecordMark persists one orphan marking attempt.
	RecordMark(ctx context.Context, mark *MarkRecord) error

	// GetRun retrieves a run by its ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns retrieves runs, newest first.
	ListRuns(ctx context.Context, filters RunFilters) ([]*RunRecord, error)

	// ListCategories retrieves the category outcomes of a run.
	ListCategories(ctx context.Context, runID string) ([]*CategoryRecord, error)

	// ListMarks retrieves the marking attempts of a run.
	ListMarks(ctx context.Context, runID string) ([]*MarkRecord, error)

	// PruneOlderThan deletes runs started more than days ago.
	PruneOlderThan(ctx context.Context, days int) (int, error)
}

// RunRecord represents a run as stored in persistence.
type RunRecord struct {
	ID         string
	Status     string // 'running', 'success', 'failure'
	DryRun     bool
	EpicStatus string
	EpicCount  int
	StartedAt  string
	FinishedAt string
}

// CategoryRecord represents one category outcome as stored in persistence.
type CategoryRecord struct {
	RunID       string
	Category    string
	Outcome     string
	Reason      string
	OpenCount   int
	RemoteCount int
	OrphanCount int
	MarkedCount int
	MarkErrors  int
	BatchCount  int
	Oldest      string
}

// MarkRecord represents one orphan marking attempt.
type MarkRecord struct {
	RunID        string
	Category     string
	TicketNumber string
	DocumentID   string
	IndexName    string
	Result       string // 'marked', 'not_found', 'type_unknown', 'error', 'dry_run'
	Detail       string
	CreatedAt    string
}

// RunFilters contains filter options for querying runs.
type RunFilters struct {
	Status string
	Limit  int
}
