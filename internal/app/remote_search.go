package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/orphanscan/internal/core/ticket"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// IssueCollector runs one JQL query to completion, following startAt
// paging, and keeps the issues not in an excluded state.
type IssueCollector struct {
	searcher   secondary.IssueSearcher
	maxResults int
	filter     ticket.StateFilter
	logger     *slog.Logger
}

// NewIssueCollector creates a collector requesting maxResults per page.
func NewIssueCollector(searcher secondary.IssueSearcher, maxResults int, filter ticket.StateFilter, logger *slog.Logger) *IssueCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueCollector{searcher: searcher, maxResults: maxResults, filter: filter, logger: logger}
}

// Collection is the outcome of one collected query.
type Collection struct {
	Issues   *ticket.OpenSet[ticket.RemoteRecord]
	Requests int
}

// Collect pages until startAt reaches the reported total or a page comes
// back empty.
func (c *IssueCollector) Collect(ctx context.Context, query, fields, label string) (*Collection, error) {
	var all []ticket.RemoteRecord
	requests := 0

	for startAt := 0; ; {
		page, err := c.searcher.Search(ctx, secondary.SearchRequest{
			JQL:        query,
			Fields:     fields,
			StartAt:    startAt,
			MaxResults: c.maxResults,
			Label:      label,
		})
		requests++
		if err != nil {
			return nil, fmt.Errorf("search %s at %d: %w", label, startAt, err)
		}

		for _, issue := range page.Issues {
			all = append(all, ticket.RemoteRecord{Key: issue.Key, State: issue.Status})
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	set := ticket.OpenRemote(all, c.filter)
	c.logger.Debug("tracker B query collected", "label", label, "issues", len(all), "open", set.Len(), "requests", requests)
	return &Collection{Issues: set, Requests: requests}, nil
}
