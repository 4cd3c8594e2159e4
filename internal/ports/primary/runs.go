package primary

import "context"

// RunHistoryService defines the primary port for run history operations.
type RunHistoryService interface {
	// ListRuns retrieves runs matching the given filters, newest first.
	ListRuns(ctx context.Context, filters RunFilters) ([]*RunSummary, error)

	// GetRun retrieves a run with its categories and marks.
	GetRun(ctx context.Context, id string) (*RunDetail, error)

	// PruneRuns deletes runs older than the specified number of days.
	PruneRuns(ctx context.Context, olderThanDays int) (int, error)
}

// RunSummary represents a run at the port boundary.
type RunSummary struct {
	ID         string
	Status     string // 'running', 'success', 'failure'
	DryRun     bool
	EpicStatus string
	EpicCount  int
	StartedAt  string
	FinishedAt string
}

// RunDetail is a run with everything recorded under it.
type RunDetail struct {
	RunSummary
	Categories []*CategorySummary
	Marks      []*MarkEntry
}

// CategorySummary represents one category outcome at the port boundary.
type CategorySummary struct {
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

// MarkEntry represents one orphan marking attempt at the port boundary.
type MarkEntry struct {
	Category     string
	TicketNumber string
	DocumentID   string
	IndexName    string
	Result       string
	Detail       string
	CreatedAt    string
}

// RunFilters contains filter options for querying runs.
type RunFilters struct {
	Status string
	Limit  int
}
