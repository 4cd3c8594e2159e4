package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/orphanscan/internal/config"
	"github.com/example/orphanscan/internal/core/jql"
	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/core/ticket"
	"github.com/example/orphanscan/internal/ctxutil"
	"github.com/example/orphanscan/internal/ports/primary"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// ReconcileDeps wires a ReconcileServiceImpl. History, Events and Metrics
// are optional; Clock, NewID and Logger have defaults.
type ReconcileDeps struct {
	Plugin   *config.Plugin
	Platform secondary.TicketPlatform
	Searcher secondary.IssueSearcher
	Index    secondary.SearchIndex
	Resolver secondary.IndexResolver

	History secondary.RunRepository
	Events  secondary.EventPublisher
	Metrics secondary.MetricsRecorder

	Clock  func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

// ReconcileOptions are the tunables of a pass.
type ReconcileOptions struct {
	ExcludedStates []string
	PageSize       int
	MaxResults     int
	EpicMaxResults int
	EpicBatchSize  int
	SearchIndex    string
	NumberField    string
}

// ReconcileServiceImpl implements the ReconcileService interface.
type ReconcileServiceImpl struct {
	plugin        *config.Plugin
	epicBatchSize int

	fetcher   *TicketFetcher
	epics     *EpicResolver
	collector *IssueCollector
	batches   *BatchExecutor
	updater   *IndexUpdater

	history secondary.RunRepository
	metrics secondary.MetricsRecorder
	clock   func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// NewReconcileService creates a new ReconcileService with injected dependencies.
func NewReconcileService(deps ReconcileDeps, opts ReconcileOptions) *ReconcileServiceImpl {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	filter := ticket.NewStateFilter(opts.ExcludedStates)
	collector := NewIssueCollector(deps.Searcher, opts.MaxResults, filter, logger)

	return &ReconcileServiceImpl{
		plugin:        deps.Plugin,
		epicBatchSize: opts.EpicBatchSize,
		fetcher:       NewTicketFetcher(deps.Platform, opts.PageSize, logger),
		epics:         NewEpicResolver(deps.Searcher, opts.EpicMaxResults, logger),
		collector:     collector,
		batches:       NewBatchExecutor(collector),
		updater: NewIndexUpdater(IndexUpdaterConfig{
			Index:       deps.Index,
			Resolver:    deps.Resolver,
			SearchIndex: opts.SearchIndex,
			NumberField: opts.NumberField,
			Events:      deps.Events,
			Metrics:     deps.Metrics,
			History:     deps.History,
			Clock:       clock,
			Logger:      logger,
		}),
		history: deps.History,
		metrics: deps.Metrics,
		clock:   clock,
		newID:   newID,
		logger:  logger,
	}
}

// Run performs one reconciliation pass. Epic keys are resolved once, then
// every category runs to a terminal outcome; one category's failure never
// stops the next. The returned error is non-nil only when ctx ended the
// pass early.
func (s *ReconcileServiceImpl) Run(ctx context.Context, opts primary.RunOptions) (*reconcile.RunResult, error) {
	result := &reconcile.RunResult{
		RunID:     s.newID(),
		StartedAt: s.clock(),
		DryRun:    opts.DryRun,
	}
	logger := s.logger.With("run_id", result.RunID)
	ctx = ctxutil.WithLogger(ctxutil.WithRunID(ctx, result.RunID), logger)

	logger.Info("run started", "dry_run", opts.DryRun)
	s.recordRunStart(ctx, result)

	epicKeys := s.resolveEpics(ctx, result)

	for _, category := range s.plugin.Categories() {
		cr := s.reconcileCategory(ctx, result.RunID, category, result.EpicStatus, epicKeys, opts.DryRun)
		result.Categories = append(result.Categories, cr)
		s.recordCategory(ctx, result.RunID, cr)
	}

	result.FinishedAt = s.clock()
	orphans, marked, markErrors := result.Totals()
	logger.Info("run finished",
		"status", result.Status(),
		"epic_status", result.EpicStatus,
		"orphans", orphans,
		"marked", marked,
		"mark_errors", markErrors,
		"duration", result.FinishedAt.Sub(result.StartedAt).String(),
	)
	s.recordRunFinish(ctx, result)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run %s interrupted: %w", result.RunID, err)
	}
	return result, nil
}

// resolveEpics records the epic status on result and returns the keys.
func (s *ReconcileServiceImpl) resolveEpics(ctx context.Context, result *reconcile.RunResult) []string {
	result.EpicStatus = s.plugin.EpicStatus()
	if result.EpicStatus != reconcile.EpicPending {
		return nil
	}

	keys, err := s.epics.Resolve(ctx, s.plugin.EpicJQL)
	switch {
	case err != nil:
		result.EpicStatus = reconcile.EpicFailed
		ctxutil.Logger(ctx).Error("epic key retrieval failed", "error", err)
		return nil
	case len(keys) == 0:
		result.EpicStatus = reconcile.EpicEmpty
		ctxutil.Logger(ctx).Error("epic key retrieval returned no keys")
		return nil
	default:
		result.EpicStatus = reconcile.EpicResolved
		result.EpicCount = len(keys)
		return keys
	}
}

func (s *ReconcileServiceImpl) reconcileCategory(ctx context.Context, runID string, category reconcile.Category, epicStatus reconcile.EpicStatus, epicKeys []string, dryRun bool) reconcile.CategoryResult {
	cr := reconcile.CategoryResult{Category: category, StartedAt: s.clock()}
	logger := ctxutil.Logger(ctx).With("category", category.ShortLabel)

	finish := func(outcome reconcile.Outcome, reason string, err error) reconcile.CategoryResult {
		cr.Outcome = outcome
		cr.Reason = reason
		cr.Err = err
		cr.FinishedAt = s.clock()
		switch {
		case outcome == reconcile.OutcomeFailed:
			logger.Error("category failed", "reason", reason, "error", err)
		case outcome.IsFailure():
			logger.Error("category skipped", "outcome", outcome, "reason", reason)
		case outcome != reconcile.OutcomeCompleted:
			logger.Warn("category skipped", "outcome", outcome, "reason", reason)
		}
		return cr
	}

	plan := reconcile.PlanCategory(reconcile.PlanContext{
		Category:      category,
		EpicStatus:    epicStatus,
		EpicKeyCount:  len(epicKeys),
		EpicBatchSize: s.epicBatchSize,
	})
	if plan.Path == reconcile.PathSkip {
		return finish(plan.Outcome, plan.Reason, nil)
	}

	records, err := s.fetcher.FetchAll(ctx, category.TrackerTypeID)
	if err != nil {
		return finish(reconcile.OutcomeFailed, "tracker A listing failed", err)
	}

	open := ticket.Open(records, s.collector.filter)
	cr.OpenCount = open.Len()
	logger.Info("tracker A open tickets", "fetched", len(records), "open", cr.OpenCount)
	if open.Len() == 0 {
		return finish(reconcile.OutcomeSkippedNoData, "no open tickets", nil)
	}

	oldest, ok := ticket.OldestUpdate(open)
	if !ok {
		return finish(reconcile.OutcomeSkippedNoData, "no parseable lastUpdateDate", nil)
	}
	cr.Oldest = jql.UpdatedAfter(oldest)
	logger.Info("oldest lastUpdateDate", "oldest", cr.Oldest)

	base := s.baseClauses(category, cr.Oldest)

	var remote *ticket.OpenSet[ticket.RemoteRecord]
	switch plan.Path {
	case reconcile.PathBatched:
		batched, err := s.batches.ExecuteBatched(ctx, base, epicKeys, s.epicBatchSize, category.Fields, category.ShortLabel)
		if err != nil {
			return finish(reconcile.OutcomeFailed, "tracker B batched query failed", err)
		}
		remote = batched.Issues
		cr.BatchCount = batched.Batches
		cr.RemoteRequests = batched.Requests
	default:
		clauses := base
		if plan.WithEpic {
			clauses = append(clauses, jql.EpicLink(epicKeys))
		}
		collected, err := s.collector.Collect(ctx, jql.Build(clauses...), category.Fields, category.ShortLabel)
		if err != nil {
			return finish(reconcile.OutcomeFailed, "tracker B query failed", err)
		}
		remote = collected.Issues
		cr.RemoteRequests = collected.Requests
	}
	cr.RemoteCount = remote.Len()

	orphans := ticket.Orphans(open, remote)
	cr.OrphanCount = orphans.Len()
	logger.Info("orphans computed", "tracker_a_open", cr.OpenCount, "tracker_b_open", cr.RemoteCount, "orphans", cr.OrphanCount, "batches", cr.BatchCount)

	report := s.updater.MarkOrphans(ctx, MarkRequest{
		RunID:    runID,
		Category: category.ShortLabel,
		Orphans:  orphans,
		DryRun:   dryRun,
	})
	cr.MarkedCount = report.Marked
	cr.MarkErrors = report.Failures()

	if report.Skipped > 0 {
		return finish(reconcile.OutcomeFailed, fmt.Sprintf("marking interrupted with %d orphans left", report.Skipped), ctx.Err())
	}
	return finish(reconcile.OutcomeCompleted, "", nil)
}

// baseClauses returns the category query without the epic clause.
func (s *ReconcileServiceImpl) baseClauses(category reconcile.Category, oldest string) []string {
	if category.Kind == reconcile.KindBug {
		return jql.BugClauses(s.plugin.BugProjects, category.IssueType, oldest, s.plugin.BugFilter.Clause())
	}
	return jql.ServiceRequestClauses(
		s.plugin.ProjectsFor(category.IssueType),
		category.IssueType,
		oldest,
		s.plugin.ServiceFilter.Clause(),
		s.plugin.CustomFilter(category.IssueType),
	)
}

// recordRunStart creates the history row. History writes use a context
// detached from cancellation so an interrupted run is stored with every
// category it reached.
func (s *ReconcileServiceImpl) recordRunStart(ctx context.Context, result *reconcile.RunResult) {
	if s.history == nil {
		return
	}
	err := s.history.CreateRun(context.WithoutCancel(ctx), &secondary.RunRecord{
		ID:        result.RunID,
		Status:    "running",
		DryRun:    result.DryRun,
		StartedAt: result.StartedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		ctxutil.Logger(ctx).Warn("failed to record run start", "error", err)
	}
}

func (s *ReconcileServiceImpl) recordCategory(ctx context.Context, runID string, cr reconcile.CategoryResult) {
	if s.metrics != nil {
		s.metrics.ObserveCategory(cr.Category.ShortLabel, string(cr.Outcome), cr.OpenCount, cr.RemoteCount, cr.OrphanCount)
	}
	if s.history == nil {
		return
	}
	err := s.history.RecordCategory(context.WithoutCancel(ctx), &secondary.CategoryRecord{
		RunID:       runID,
		Category:    cr.Category.ShortLabel,
		Outcome:     string(cr.Outcome),
		Reason:      categoryReason(cr),
		OpenCount:   cr.OpenCount,
		RemoteCount: cr.RemoteCount,
		OrphanCount: cr.OrphanCount,
		MarkedCount: cr.MarkedCount,
		MarkErrors:  cr.MarkErrors,
		BatchCount:  cr.BatchCount,
		Oldest:      cr.Oldest,
	})
	if err != nil {
		ctxutil.Logger(ctx).Warn("failed to record category", "category", cr.Category.ShortLabel, "error", err)
	}
}

// recordRunFinish persists the final status and flushes metrics.
func (s *ReconcileServiceImpl) recordRunFinish(ctx context.Context, result *reconcile.RunResult) {
	finishCtx := context.WithoutCancel(ctx)

	if s.history != nil {
		err := s.history.FinishRun(finishCtx, &secondary.RunRecord{
			ID:         result.RunID,
			Status:     result.Status(),
			EpicStatus: string(result.EpicStatus),
			EpicCount:  result.EpicCount,
			FinishedAt: result.FinishedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			ctxutil.Logger(ctx).Warn("failed to record run finish", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(result.Status(), result.FinishedAt.Sub(result.StartedAt).Seconds())
		if err := s.metrics.Flush(finishCtx); err != nil {
			ctxutil.Logger(ctx).Warn("failed to flush metrics", "error", err)
		}
	}
}

func categoryReason(cr reconcile.CategoryResult) string {
	if cr.Err == nil {
		return cr.Reason
	}
	if cr.Reason == "" {
		return cr.Err.Error()
	}
	return cr.Reason + ": " + cr.Err.Error()
}

// IsRunInterrupted reports whether err came from a cancelled pass.
func IsRunInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Ensure ReconcileServiceImpl implements the interface
var _ primary.ReconcileService = (*ReconcileServiceImpl)(nil)
