package app

import (
	"context"
	"fmt"

	"github.com/example/orphanscan/internal/ports/primary"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// RunHistoryServiceImpl implements the RunHistoryService interface.
type RunHistoryServiceImpl struct {
	runRepo secondary.RunRepository
}

// NewRunHistoryService creates a new RunHistoryService with injected dependencies.
func NewRunHistoryService(runRepo secondary.RunRepository) *RunHistoryServiceImpl {
	return &RunHistoryServiceImpl{
		runRepo: runRepo,
	}
}

// ListRuns retrieves runs matching the given filters.
func (s *RunHistoryServiceImpl) ListRuns(ctx context.Context, filters primary.RunFilters) ([]*primary.RunSummary, error) {
	records, err := s.runRepo.ListRuns(ctx, secondary.RunFilters{
		Status: filters.Status,
		Limit:  filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*primary.RunSummary, len(records))
	for i, r := range records {
		summary := recordToRunSummary(r)
		runs[i] = &summary
	}
	return runs, nil
}

// GetRun retrieves a single run with its categories and marks.
func (s *RunHistoryServiceImpl) GetRun(ctx context.Context, id string) (*primary.RunDetail, error) {
	record, err := s.runRepo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	categories, err := s.runRepo.ListCategories(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories of run %s: %w", id, err)
	}
	marks, err := s.runRepo.ListMarks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list marks of run %s: %w", id, err)
	}

	detail := &primary.RunDetail{RunSummary: recordToRunSummary(record)}
	for _, c := range categories {
		detail.Categories = append(detail.Categories, &primary.CategorySummary{
			Category:    c.Category,
			Outcome:     c.Outcome,
			Reason:      c.Reason,
			OpenCount:   c.OpenCount,
			RemoteCount: c.RemoteCount,
			OrphanCount: c.OrphanCount,
			MarkedCount: c.MarkedCount,
			MarkErrors:  c.MarkErrors,
			BatchCount:  c.BatchCount,
			Oldest:      c.Oldest,
		})
	}
	for _, m := range marks {
		detail.Marks = append(detail.Marks, &primary.MarkEntry{
			Category:     m.Category,
			TicketNumber: m.TicketNumber,
			DocumentID:   m.DocumentID,
			IndexName:    m.IndexName,
			Result:       m.Result,
			Detail:       m.Detail,
			CreatedAt:    m.CreatedAt,
		})
	}
	return detail, nil
}

// PruneRuns deletes runs older than the specified number of days.
func (s *RunHistoryServiceImpl) PruneRuns(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("days must not be negative (got %d)", olderThanDays)
	}
	return s.runRepo.PruneOlderThan(ctx, olderThanDays)
}

func recordToRunSummary(r *secondary.RunRecord) primary.RunSummary {
	return primary.RunSummary{
		ID:         r.ID,
		Status:     r.Status,
		DryRun:     r.DryRun,
		EpicStatus: r.EpicStatus,
		EpicCount:  r.EpicCount,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// Ensure RunHistoryServiceImpl implements the interface
var _ primary.RunHistoryService = (*RunHistoryServiceImpl)(nil)
