// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"

	"github.com/example/orphanscan/internal/config"
)

// AdminCredential is the Tracker A admin login and where to reach it.
type AdminCredential struct {
	Username string
	Password string
	BaseURL  string
}

// CredentialProvider defines the secondary port for secret retrieval.
type CredentialProvider interface {
	// AdminCredential returns the Tracker A admin credential.
	AdminCredential(ctx context.Context) (*AdminCredential, error)
}

// TicketPlatform defines the secondary port for Tracker A.
type TicketPlatform interface {
	// PluginConfig retrieves the Tracker B plugin configuration document.
	PluginConfig(ctx context.Context) (*config.PluginDocument, error)

	// ListTickets retrieves one page of tickets of a ticket type.
	// A non-2xx response is returned as an error.
	ListTickets(ctx context.Context, req TicketPageRequest) (*TicketPage, error)
}

// TicketPageRequest selects one listing page. Page is zero-based.
type TicketPageRequest struct {
	TicketType string
	Page       int
	PerPage    int
}

// TicketPage is one listing page. IsList is false when the payload was
// not a JSON array, which ends paging.
type TicketPage struct {
	Tickets []RawTicket
	IsList  bool
}

// RawTicket is a ticket as listed by Tracker A.
type RawTicket struct {
	ID         string
	Number     string
	State      string
	LastUpdate string
}

// IssueSearcher defines the secondary port for Tracker B JQL search.
type IssueSearcher interface {
	// Search runs one search request and returns one page of issues.
	Search(ctx context.Context, req SearchRequest) (*SearchPage, error)
}

// SearchRequest is one JQL search call.
type SearchRequest struct {
	JQL        string
	Fields     string
	StartAt    int
	MaxResults int
	Label      string // used only for logging
}

// SearchPage is one page of search results.
type SearchPage struct {
	Issues     []RawIssue
	StartAt    int
	MaxResults int
	Total      int
}

// RawIssue is a Tracker B issue reduced to what reconciliation reads.
type RawIssue struct {
	Key    string
	Status string
}
