package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/orphanscan/internal/adapters/sqlite"
	"github.com/example/orphanscan/internal/ports/secondary"
)

func TestRunRepository_CreateAndFinish(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)
	ctx := context.Background()

	err := repo.CreateRun(ctx, &secondary.RunRecord{
		ID:        "run-abc",
		DryRun:    true,
		StartedAt: "2024-03-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-abc")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != "running" {
		t.Errorf("Status = %q, want %q", got.Status, "running")
	}
	if !got.DryRun {
		t.Error("DryRun = false, want true")
	}
	if got.StartedAt != "2024-03-01T10:00:00Z" {
		t.Errorf("StartedAt = %q, want %q", got.StartedAt, "2024-03-01T10:00:00Z")
	}
	if got.FinishedAt != "" {
		t.Errorf("FinishedAt = %q, want empty", got.FinishedAt)
	}

	err = repo.FinishRun(ctx, &secondary.RunRecord{
		ID:         "run-abc",
		Status:     "failure",
		EpicStatus: "failed",
		FinishedAt: "2024-03-01T10:05:00Z",
	})
	if err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err = repo.GetRun(ctx, "run-abc")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != "failure" {
		t.Errorf("Status = %q, want %q", got.Status, "failure")
	}
	if got.EpicStatus != "failed" {
		t.Errorf("EpicStatus = %q, want %q", got.EpicStatus, "failed")
	}
	if got.FinishedAt != "2024-03-01T10:05:00Z" {
		t.Errorf("FinishedAt = %q, want %q", got.FinishedAt, "2024-03-01T10:05:00Z")
	}
}

func TestRunRepository_FinishRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)

	err := repo.FinishRun(context.Background(), &secondary.RunRecord{ID: "missing", Status: "success"})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRunRepository_GetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)

	_, err := repo.GetRun(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRunRepository_CategoriesAndMarks(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)
	ctx := context.Background()

	runID := seedRun(t, db, "run-001", "", "2024-03-01 10:00:00")

	categories := []*secondary.CategoryRecord{
		{RunID: runID, Category: "SREQUEST", Outcome: "skipped_epic_failure", Reason: "epic key retrieval failed"},
		{RunID: runID, Category: "BUG", Outcome: "completed", OpenCount: 3, RemoteCount: 2, OrphanCount: 1, MarkedCount: 1, Oldest: "2024-01-15 07:45"},
	}
	for _, c := range categories {
		if err := repo.RecordCategory(ctx, c); err != nil {
			t.Fatalf("RecordCategory failed: %v", err)
		}
	}

	err := repo.RecordMark(ctx, &secondary.MarkRecord{
		RunID:        runID,
		Category:     "BUG",
		TicketNumber: "2",
		DocumentID:   "doc-2",
		IndexName:    "bug",
		Result:       "marked",
	})
	if err != nil {
		t.Fatalf("RecordMark failed: %v", err)
	}

	gotCats, err := repo.ListCategories(ctx, runID)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(gotCats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(gotCats))
	}
	if gotCats[0].Category != "SREQUEST" {
		t.Errorf("first category = %q, want insertion order", gotCats[0].Category)
	}
	if gotCats[1].OrphanCount != 1 || gotCats[1].Oldest != "2024-01-15 07:45" {
		t.Errorf("bug category = %+v", gotCats[1])
	}

	marks, err := repo.ListMarks(ctx, runID)
	if err != nil {
		t.Fatalf("ListMarks failed: %v", err)
	}
	if len(marks) != 1 {
		t.Fatalf("expected 1 mark, got %d", len(marks))
	}
	if marks[0].DocumentID != "doc-2" || marks[0].Result != "marked" {
		t.Errorf("mark = %+v", marks[0])
	}
}

func TestRunRepository_RecordCategory_RejectsUnknownOutcome(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)

	runID := seedRun(t, db, "", "", "2024-03-01 10:00:00")
	err := repo.RecordCategory(context.Background(), &secondary.CategoryRecord{RunID: runID, Category: "BUG", Outcome: "exploded"})
	if err == nil {
		t.Fatal("expected CHECK constraint to reject unknown outcome")
	}
}

func TestRunRepository_ListRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)
	ctx := context.Background()

	seedRun(t, db, "run-1", "success", "2024-03-01 10:00:00")
	seedRun(t, db, "run-2", "failure", "2024-03-02 10:00:00")
	seedRun(t, db, "run-3", "success", "2024-03-03 10:00:00")

	tests := []struct {
		name    string
		filters secondary.RunFilters
		wantIDs []string
	}{
		{"all newest first", secondary.RunFilters{}, []string{"run-3", "run-2", "run-1"}},
		{"by status", secondary.RunFilters{Status: "success"}, []string{"run-3", "run-1"}},
		{"limit", secondary.RunFilters{Limit: 1}, []string{"run-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := repo.ListRuns(ctx, tt.filters)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != len(tt.wantIDs) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if runs[i].ID != id {
					t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
				}
			}
		})
	}
}

func TestRunRepository_PruneOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRunRepository(db)
	ctx := context.Background()

	oldID := seedRun(t, db, "run-old", "success", "2000-01-01 00:00:00")
	if err := repo.RecordMark(ctx, &secondary.MarkRecord{RunID: oldID, Category: "BUG", TicketNumber: "1", Result: "marked"}); err != nil {
		t.Fatalf("RecordMark failed: %v", err)
	}
	err := repo.CreateRun(ctx, &secondary.RunRecord{ID: "run-new"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	n, err := repo.PruneOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	if _, err := repo.GetRun(ctx, "run-new"); err != nil {
		t.Errorf("recent run should survive: %v", err)
	}
	marks, err := repo.ListMarks(ctx, oldID)
	if err != nil {
		t.Fatalf("ListMarks failed: %v", err)
	}
	if len(marks) != 0 {
		t.Errorf("expected marks of pruned run removed, got %d", len(marks))
	}
}
