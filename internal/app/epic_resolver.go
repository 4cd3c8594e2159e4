package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/orphanscan/internal/core/jql"
	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// EpicResolver turns the configured epic filter into epic keys.
type EpicResolver struct {
	searcher   secondary.IssueSearcher
	maxResults int
	logger     *slog.Logger
}

// NewEpicResolver creates a resolver capped at maxResults keys.
func NewEpicResolver(searcher secondary.IssueSearcher, maxResults int, logger *slog.Logger) *EpicResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &EpicResolver{searcher: searcher, maxResults: maxResults, logger: logger}
}

// Resolve runs one search for epics matching epicJQL. A failed request
// returns an error wrapping ErrEpicResolution; a successful empty answer
// returns an empty, non-nil slice. Keys keep response order, duplicates
// dropped.
func (r *EpicResolver) Resolve(ctx context.Context, epicJQL string) ([]string, error) {
	page, err := r.searcher.Search(ctx, secondary.SearchRequest{
		JQL:        jql.EpicQuery(epicJQL),
		Fields:     "key",
		StartAt:    0,
		MaxResults: r.maxResults,
		Label:      "epic",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", reconcile.ErrEpicResolution, err)
	}

	keys := make([]string, 0, len(page.Issues))
	seen := make(map[string]struct{}, len(page.Issues))
	for _, issue := range page.Issues {
		if issue.Key == "" {
			continue
		}
		if _, dup := seen[issue.Key]; dup {
			continue
		}
		seen[issue.Key] = struct{}{}
		keys = append(keys, issue.Key)
	}

	if page.Total > len(page.Issues) {
		r.logger.Warn("epic keys truncated", "returned", len(page.Issues), "total", page.Total, "max_results", r.maxResults)
	}
	r.logger.Info("epic keys resolved", "count", len(keys), "epic_keys", keys)
	return keys, nil
}
