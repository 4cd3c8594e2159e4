package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/ports/primary"
)

// ReconcileAdapter runs a pass through ReconcileService and prints its summary.
type ReconcileAdapter struct {
	service primary.ReconcileService
	out     io.Writer
}

// NewReconcileAdapter creates a new ReconcileAdapter with the given service.
func NewReconcileAdapter(service primary.ReconcileService, out io.Writer) *ReconcileAdapter {
	return &ReconcileAdapter{
		service: service,
		out:     out,
	}
}

// Run performs one pass. The summary is printed even when the pass was
// interrupted, as long as a result came back.
func (a *ReconcileAdapter) Run(ctx context.Context, dryRun bool) (*reconcile.RunResult, error) {
	result, err := a.service.Run(ctx, primary.RunOptions{DryRun: dryRun})
	if result != nil {
		PrintResult(a.out, result)
	}
	return result, err
}

// PrintResult writes the end-of-run table.
func PrintResult(out io.Writer, result *reconcile.RunResult) {
	fmt.Fprintf(out, "\nRun %s", result.RunID)
	if result.DryRun {
		fmt.Fprint(out, " (dry-run)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Epics: %s\n", epicLabel(string(result.EpicStatus), result.EpicCount))

	fmt.Fprintf(out, "\n%-10s %-24s %6s %6s %7s %6s %6s\n", "CATEGORY", "OUTCOME", "OPEN_A", "OPEN_B", "ORPHANS", "MARKED", "ERRORS")
	fmt.Fprintln(out, "────────────────────────────────────────────────────────────────────────")
	for _, c := range result.Categories {
		fmt.Fprintf(out, "%-10s %s %6d %6d %7d %6d %6d\n",
			c.Category.ShortLabel, colorOutcome(string(c.Outcome), 24), c.OpenCount, c.RemoteCount, c.OrphanCount, c.MarkedCount, c.MarkErrors)
		if c.Reason != "" {
			fmt.Fprintf(out, "           %s\n", c.Reason)
		}
	}

	orphans, marked, markErrors := result.Totals()
	fmt.Fprintf(out, "\nOrphans: %d  Marked: %d  Errors: %d\n", orphans, marked, markErrors)
	if result.Failed() {
		fmt.Fprintf(out, "%s Run failed\n\n", color.New(color.FgRed).Sprint("✗"))
	} else {
		fmt.Fprintf(out, "%s Run succeeded\n\n", color.New(color.FgGreen).Sprint("✓"))
	}
}
