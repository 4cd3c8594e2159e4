package secondary

import "context"

// EventPublisher defines the secondary port for announcing marked orphans
// to downstream consumers.
type EventPublisher interface {
	PublishOrphanMarked(ctx context.Context, event OrphanEvent) error
}

// OrphanEvent is published once per successfully marked orphan.
type OrphanEvent struct {
	RunID        string `json:"run_id"`
	Category     string `json:"category"`
	TicketNumber string `json:"ticket_number"`
	TicketID     string `json:"ticket_id"`
	Index        string `json:"index"`
	DocumentID   string `json:"document_id"`
	MarkedAt     int64  `json:"marked_at"`
}

// MetricsRecorder defines the secondary port for run metrics.
type MetricsRecorder interface {
	// ObserveCategory records the counters of a finished category.
	ObserveCategory(category, outcome string, open, remote, orphans int)

	// ObserveMark records one marking attempt by result.
	ObserveMark(category, result string)

	// ObserveRun records the end of a run.
	ObserveRun(status string, durationSeconds float64)

	// Flush delivers recorded metrics, if a sink is configured.
	Flush(ctx context.Context) error
}
