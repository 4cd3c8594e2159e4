package app

import (
	"context"
	"fmt"

	"github.com/example/orphanscan/internal/core/jql"
	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/core/ticket"
)

// BatchExecutor splits an epic key list into bounded chunks, one query
// per chunk, and unions the results.
type BatchExecutor struct {
	collector *IssueCollector
}

// NewBatchExecutor creates an executor over collector.
func NewBatchExecutor(collector *IssueCollector) *BatchExecutor {
	return &BatchExecutor{collector: collector}
}

// BatchResult is the union of every chunk's issues.
type BatchResult struct {
	Issues   *ticket.OpenSet[ticket.RemoteRecord]
	Batches  int
	Requests int
}

// ExecuteBatched appends an epic clause for each chunk of keys to base and
// collects the query. The first failing chunk aborts the whole execution
// with an error wrapping ErrBatchFailed; no partial union is returned.
func (e *BatchExecutor) ExecuteBatched(ctx context.Context, base, keys []string, batchSize int, fields, label string) (*BatchResult, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive (got %d)", reconcile.ErrBatchFailed, batchSize)
	}

	chunks := reconcile.Partition(keys, batchSize)
	result := &BatchResult{Issues: ticket.NewOpenSet[ticket.RemoteRecord]()}

	for i, chunk := range chunks {
		clauses := make([]string, 0, len(base)+1)
		clauses = append(clauses, base...)
		clauses = append(clauses, jql.EpicLink(chunk))

		batchLabel := fmt.Sprintf("%s_batch_%d", label, i+1)
		collected, err := e.collector.Collect(ctx, jql.Build(clauses...), fields, batchLabel)
		if collected != nil {
			result.Requests += collected.Requests
		}
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d of %d: %w", reconcile.ErrBatchFailed, i+1, len(chunks), err)
		}

		result.Issues.Merge(collected.Issues)
		result.Batches++
	}

	return result, nil
}
