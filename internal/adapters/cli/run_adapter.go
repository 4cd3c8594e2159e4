// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/orphanscan/internal/ports/primary"
)

// RunAdapter is a thin adapter that translates CLI operations to RunHistoryService calls.
type RunAdapter struct {
	service primary.RunHistoryService
	out     io.Writer
}

// NewRunAdapter creates a new RunAdapter with the given service.
func NewRunAdapter(service primary.RunHistoryService, out io.Writer) *RunAdapter {
	return &RunAdapter{
		service: service,
		out:     out,
	}
}

// List lists recorded runs with optional status filter.
func (a *RunAdapter) List(ctx context.Context, status string, limit int) error {
	runs, err := a.service.ListRuns(ctx, primary.RunFilters{
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-36s %-9s %-15s %-20s %s\n", "ID", "STATUS", "EPICS", "STARTED", "MODE")
	fmt.Fprintln(a.out, "──────────────────────────────────────────────────────────────────────────────────────────")
	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(a.out, "%-36s %s %-15s %-20s %s\n", r.ID, colorStatus(r.Status, 9), epicLabel(r.EpicStatus, r.EpicCount), r.StartedAt, mode)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays a run with its category outcomes and marking attempts.
func (a *RunAdapter) Show(ctx context.Context, runID string, showMarks bool) (*primary.RunDetail, error) {
	run, err := a.service.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Fprintf(a.out, "\nRun:      %s\n", run.ID)
	fmt.Fprintf(a.out, "Status:   %s\n", colorStatus(run.Status, 0))
	fmt.Fprintf(a.out, "Epics:    %s\n", epicLabel(run.EpicStatus, run.EpicCount))
	if run.DryRun {
		fmt.Fprintln(a.out, "Mode:     dry-run")
	}
	fmt.Fprintf(a.out, "Started:  %s\n", run.StartedAt)
	if run.FinishedAt != "" {
		fmt.Fprintf(a.out, "Finished: %s\n", run.FinishedAt)
	}

	if len(run.Categories) > 0 {
		fmt.Fprintf(a.out, "\n%-10s %-24s %6s %6s %7s %6s %6s %7s\n", "CATEGORY", "OUTCOME", "OPEN_A", "OPEN_B", "ORPHANS", "MARKED", "ERRORS", "BATCHES")
		for _, c := range run.Categories {
			fmt.Fprintf(a.out, "%-10s %s %6d %6d %7d %6d %6d %7d\n",
				c.Category, colorOutcome(c.Outcome, 24), c.OpenCount, c.RemoteCount, c.OrphanCount, c.MarkedCount, c.MarkErrors, c.BatchCount)
			if c.Reason != "" {
				fmt.Fprintf(a.out, "           %s\n", c.Reason)
			}
		}
	}

	if showMarks && len(run.Marks) > 0 {
		fmt.Fprintf(a.out, "\n%-10s %-20s %-13s %-30s %s\n", "CATEGORY", "TICKET", "RESULT", "INDEX", "DOCUMENT")
		for _, m := range run.Marks {
			fmt.Fprintf(a.out, "%-10s %-20s %-13s %-30s %s\n", m.Category, m.TicketNumber, m.Result, m.IndexName, m.DocumentID)
		}
	}
	fmt.Fprintln(a.out)

	return run, nil
}

// Prune deletes runs older than days.
func (a *RunAdapter) Prune(ctx context.Context, days int) error {
	count, err := a.service.PruneRuns(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}

	if count == 0 {
		fmt.Fprintf(a.out, "No runs older than %d days found.\n", days)
	} else {
		fmt.Fprintf(a.out, "✓ Pruned %d runs older than %d days.\n", count, days)
	}
	return nil
}

func epicLabel(status string, count int) string {
	if status == "resolved" {
		return fmt.Sprintf("%s (%d)", status, count)
	}
	if status == "" {
		return "-"
	}
	return status
}

// colorStatus pads before coloring so escape codes do not break alignment.
func colorStatus(status string, width int) string {
	padded := fmt.Sprintf("%-*s", width, status)
	switch status {
	case "success":
		return color.New(color.FgGreen).Sprint(padded)
	case "failure":
		return color.New(color.FgRed).Sprint(padded)
	default:
		return color.New(color.FgYellow).Sprint(padded)
	}
}

func colorOutcome(outcome string, width int) string {
	padded := fmt.Sprintf("%-*s", width, outcome)
	switch outcome {
	case "completed":
		return color.New(color.FgGreen).Sprint(padded)
	case "failed", "skipped_epic_failure":
		return color.New(color.FgRed).Sprint(padded)
	default:
		return color.New(color.FgYellow).Sprint(padded)
	}
}
