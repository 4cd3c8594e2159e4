package secondary

import (
	"context"
	"encoding/json"
)

// SearchIndex defines the secondary port for the reporting search index.
type SearchIndex interface {
	// Search runs a query against an index pattern and returns its hits.
	Search(ctx context.Context, index string, query map[string]any) ([]IndexHit, error)

	// Update applies a partial-document update to one document.
	Update(ctx context.Context, index, id string, body map[string]any) error
}

// IndexHit is one search hit.
type IndexHit struct {
	Index  string
	ID     string
	Source json.RawMessage
}

// IndexResolver maps a ticket type to the index holding its documents.
type IndexResolver interface {
	IndexFor(ticketType string) string
}
