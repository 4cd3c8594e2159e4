package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/example/orphanscan/internal/core/ticket"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// OrphanState is the value written to atr_coredata_state for orphans.
const OrphanState = "Orphan"

// Mark results as recorded in run history and metrics.
const (
	MarkMarked      = "marked"
	MarkNotFound    = "not_found"
	MarkTypeUnknown = "type_unknown"
	MarkError       = "error"
	MarkDryRun      = "dry_run"
)

// IndexUpdater flags orphan documents in the search index. It is the only
// writer to the index.
type IndexUpdater struct {
	index       secondary.SearchIndex
	resolver    secondary.IndexResolver
	searchIndex string
	numberField string
	events      secondary.EventPublisher
	metrics     secondary.MetricsRecorder
	history     secondary.RunRepository
	now         func() time.Time
	logger      *slog.Logger
}

// IndexUpdaterConfig wires an IndexUpdater. Events, Metrics and History
// are optional.
type IndexUpdaterConfig struct {
	Index       secondary.SearchIndex
	Resolver    secondary.IndexResolver
	SearchIndex string
	NumberField string
	Events      secondary.EventPublisher
	Metrics     secondary.MetricsRecorder
	History     secondary.RunRepository
	Clock       func() time.Time
	Logger      *slog.Logger
}

// NewIndexUpdater creates an updater.
func NewIndexUpdater(cfg IndexUpdaterConfig) *IndexUpdater {
	u := &IndexUpdater{
		index:       cfg.Index,
		resolver:    cfg.Resolver,
		searchIndex: cfg.SearchIndex,
		numberField: cfg.NumberField,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		history:     cfg.History,
		now:         cfg.Clock,
		logger:      cfg.Logger,
	}
	if u.searchIndex == "" {
		u.searchIndex = "*"
	}
	if u.numberField == "" {
		u.numberField = "fields.atr_coredata_number.value"
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	return u
}

// MarkRequest selects the orphans of one category.
type MarkRequest struct {
	RunID    string
	Category string
	Orphans  *ticket.OpenSet[ticket.Record]
	DryRun   bool
}

// MarkReport counts marking results. Per-ticket failures end up here and
// never abort the batch.
type MarkReport struct {
	Marked      int
	NotFound    int
	TypeUnknown int
	Errors      int
	DryRun      int
	Skipped     int // left untouched after cancellation
}

// Failures is the number of orphans that could not be marked.
func (r MarkReport) Failures() int {
	return r.NotFound + r.TypeUnknown + r.Errors
}

// MarkOrphans marks every orphan in req. Marking is idempotent: the update
// sets an absolute state, so re-marking an already flagged document only
// refreshes updateDate.
func (u *IndexUpdater) MarkOrphans(ctx context.Context, req MarkRequest) MarkReport {
	var report MarkReport
	logger := u.logger.With("run_id", req.RunID, "category", req.Category)

	keys := req.Orphans.Keys()
	for i, number := range keys {
		if ctx.Err() != nil {
			report.Skipped = len(keys) - i
			logger.Warn("marking interrupted", "skipped", report.Skipped, "error", ctx.Err())
			break
		}
		orphan, _ := req.Orphans.Get(number)
		result, mark := u.markOne(ctx, logger, req, orphan)

		switch result {
		case MarkMarked:
			report.Marked++
		case MarkNotFound:
			report.NotFound++
		case MarkTypeUnknown:
			report.TypeUnknown++
		case MarkDryRun:
			report.DryRun++
		default:
			report.Errors++
		}

		if u.metrics != nil {
			u.metrics.ObserveMark(req.Category, result)
		}
		if u.history != nil && req.RunID != "" {
			if err := u.history.RecordMark(context.WithoutCancel(ctx), mark); err != nil {
				logger.Warn("failed to record mark", "ticket", number, "error", err)
			}
		}
	}

	return report
}

func (u *IndexUpdater) markOne(ctx context.Context, logger *slog.Logger, req MarkRequest, orphan ticket.Record) (string, *secondary.MarkRecord) {
	mark := &secondary.MarkRecord{
		RunID:        req.RunID,
		Category:     req.Category,
		TicketNumber: orphan.Number,
	}
	done := func(result, detail string) (string, *secondary.MarkRecord) {
		mark.Result = result
		mark.Detail = detail
		return result, mark
	}

	hits, err := u.index.Search(ctx, u.searchIndex, NumberQuery(u.numberField, orphan.Number))
	if err != nil {
		logger.Error("ticket_search_error", "ticket", orphan.Number, "error", err)
		return done(MarkError, err.Error())
	}
	if len(hits) == 0 {
		logger.Error("ticket_not_found", "ticket", orphan.Number)
		return done(MarkNotFound, "")
	}

	hit := hits[0]
	mark.DocumentID = hit.ID

	ticketType := DocumentType(hit.Source)
	if ticketType == "" {
		logger.Error("ticket_type_unknown", "ticket", orphan.Number, "document_id", hit.ID)
		return done(MarkTypeUnknown, "")
	}

	index := u.resolver.IndexFor(ticketType)
	mark.IndexName = index
	markedAt := u.now()

	if req.DryRun {
		logger.Info("ticket_would_mark_orphan", "ticket", orphan.Number, "index", index, "document_id", hit.ID)
		return done(MarkDryRun, "")
	}

	if err := u.index.Update(ctx, index, hit.ID, OrphanUpdate(markedAt)); err != nil {
		logger.Error("ticket_update_error", "ticket", orphan.Number, "index", index, "document_id", hit.ID, "error", err)
		return done(MarkError, err.Error())
	}
	logger.Info("ticket_marked_orphan", "ticket", orphan.Number, "index", index, "document_id", hit.ID)

	if u.events != nil {
		err := u.events.PublishOrphanMarked(ctx, secondary.OrphanEvent{
			RunID:        req.RunID,
			Category:     req.Category,
			TicketNumber: orphan.Number,
			TicketID:     orphan.ID,
			Index:        index,
			DocumentID:   hit.ID,
			MarkedAt:     markedAt.UnixMilli(),
		})
		if err != nil {
			logger.Warn("failed to publish orphan event", "ticket", orphan.Number, "error", err)
		}
	}
	return done(MarkMarked, "")
}

// NumberQuery matches the one document carrying a ticket number.
func NumberQuery(field, number string) map[string]any {
	return map[string]any{
		"size": 1,
		"query": map[string]any{
			"term": map[string]any{field: number},
		},
	}
}

// OrphanUpdate is the partial document flagging a ticket as orphan.
func OrphanUpdate(at time.Time) map[string]any {
	return map[string]any{
		"doc": map[string]any{
			"fields": map[string]any{
				"atr_coredata_state": map[string]any{"value": OrphanState},
			},
			"updateDate": at.UnixMilli(),
		},
	}
}

// DocumentType reads the ticket type from an index document, preferring
// fields.atr_coredata_type.value over allFields.type. The result is
// lower-cased; "" means unknown.
func DocumentType(source json.RawMessage) string {
	var doc map[string]any
	if len(source) == 0 || json.Unmarshal(source, &doc) != nil {
		return ""
	}
	if s := lookupString(doc, "fields", "atr_coredata_type", "value"); s != "" {
		return s
	}
	return lookupString(doc, "allFields", "type")
}

// lookupString walks nested objects along path and returns the trimmed,
// lower-cased string at its end.
func lookupString(doc map[string]any, path ...string) string {
	var cur any = doc
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	s, _ := cur.(string)
	return strings.ToLower(strings.TrimSpace(s))
}
