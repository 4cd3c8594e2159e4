package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/core/ticket"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// TicketFetcher pages through the Tracker A listing for one ticket type.
type TicketFetcher struct {
	platform secondary.TicketPlatform
	perPage  int
	logger   *slog.Logger
}

// NewTicketFetcher creates a fetcher requesting perPage tickets per page.
func NewTicketFetcher(platform secondary.TicketPlatform, perPage int, logger *slog.Logger) *TicketFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketFetcher{platform: platform, perPage: perPage, logger: logger}
}

// FetchAll requests pages 0, 1, 2, ... in sequence and concatenates them.
// Paging ends on a non-list payload or an empty page; a short page does
// not end it. A failed page aborts with an error wrapping ErrPageFetch,
// so a partial listing is never returned as if it were complete.
func (f *TicketFetcher) FetchAll(ctx context.Context, ticketType string) ([]ticket.Record, error) {
	var records []ticket.Record

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %w", reconcile.ErrPageFetch, ticketType, page, err)
		}

		result, err := f.platform.ListTickets(ctx, secondary.TicketPageRequest{
			TicketType: ticketType,
			Page:       page,
			PerPage:    f.perPage,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %w", reconcile.ErrPageFetch, ticketType, page, err)
		}

		if !result.IsList || len(result.Tickets) == 0 {
			f.logger.Debug("ticket listing finished", "ticket_type", ticketType, "pages", page, "tickets", len(records))
			return records, nil
		}

		for _, t := range result.Tickets {
			records = append(records, ticket.Record{
				Number:        t.Number,
				ID:            t.ID,
				State:         t.State,
				LastUpdateRaw: t.LastUpdate,
			})
		}
	}
}
