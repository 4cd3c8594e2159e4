// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the CLI drives the application.
package primary

import (
	"context"

	"github.com/example/orphanscan/internal/core/reconcile"
)

// ReconcileService defines the primary port for reconciliation runs.
type ReconcileService interface {
	// Run performs one reconciliation pass over every configured category.
	// Category failures are reported in the result; the error is reserved
	// for failures that prevent the pass from running at all.
	Run(ctx context.Context, opts RunOptions) (*reconcile.RunResult, error)
}

// RunOptions controls one pass.
type RunOptions struct {
	// DryRun computes orphans and logs the intended writes without
	// updating the index.
	DryRun bool
}

// ScheduleService defines the primary port for watch mode.
type ScheduleService interface {
	// Watch runs passes on the configured schedule until ctx is done.
	Watch(ctx context.Context) error
}
