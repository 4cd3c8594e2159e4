// Package reconcile contains the pure decision logic of a reconciliation
// run: categories, per-category outcomes, the run result and the planner
// that chooses a query path for each category.
package reconcile

import (
	"errors"
	"time"
)

// Sentinel errors shared across the engine.
var (
	ErrMissingCredentials = errors.New("tracker credentials missing or empty")
	ErrMissingHomeURL     = errors.New("tracker home url missing from plugin configuration")
	ErrPageFetch          = errors.New("ticket page fetch failed")
	ErrEpicResolution     = errors.New("epic key resolution failed")
	ErrBatchFailed        = errors.New("batched query failed")
)

// Kind distinguishes the two query-building paths.
type Kind string

const (
	KindServiceRequest Kind = "service_request"
	KindBug            Kind = "bug"
)

// Category is one configured ticket-type grouping.
type Category struct {
	TrackerTypeID string // ticketType value on Tracker A, e.g. JIRA_BUG
	ShortLabel    string // BUG, SREQUEST
	Fields        string // fields parameter for Tracker B searches
	IssueType     string // issuetype name on Tracker B
	Kind          Kind

	// Missing names the config fields that were absent; non-empty means
	// the category cannot run.
	Missing []string
}

// Outcome is the terminal state of one category within a run.
type Outcome string

const (
	OutcomeCompleted            Outcome = "completed"
	OutcomeSkippedNoData        Outcome = "skipped_no_data"
	OutcomeSkippedConfigMissing Outcome = "skipped_config_missing"
	OutcomeSkippedEpicFailure   Outcome = "skipped_epic_failure"
	OutcomeFailed               Outcome = "failed"
)

// IsFailure reports whether the outcome flips the run to failed.
func (o Outcome) IsFailure() bool {
	return o == OutcomeFailed || o == OutcomeSkippedEpicFailure
}

// EpicStatus records what happened to epic resolution this run.
type EpicStatus string

const (
	EpicDisabled      EpicStatus = "disabled"
	EpicPending       EpicStatus = "pending"
	EpicNotConfigured EpicStatus = "not_configured"
	EpicResolved      EpicStatus = "resolved"
	EpicEmpty         EpicStatus = "empty"
	EpicFailed        EpicStatus = "failed"
)

// Failed reports whether epic scoping was demanded but
// no usable keys came back.
func (s EpicStatus) Failed() bool {
	return s == EpicEmpty || s == EpicFailed
}

// CategoryResult summarizes one category.
type CategoryResult struct {
	Category       Category
	Outcome        Outcome
	Reason         string
	OpenCount      int // Tracker A open tickets
	RemoteCount    int // Tracker B open issues
	OrphanCount    int
	MarkedCount    int
	MarkErrors     int
	BatchCount     int
	RemoteRequests int
	Oldest         string
	Err            error
	StartedAt      time.Time
	FinishedAt     time.Time
}

// RunResult aggregates a whole run. The process exit code derives only
// from Failed.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	EpicStatus EpicStatus
	EpicCount  int
	Categories []CategoryResult
}

// Failed reports whether any category failed or epic resolution failed
// while it was required.
func (r *RunResult) Failed() bool {
	if r.EpicStatus.Failed() {
		return true
	}
	for _, c := range r.Categories {
		if c.Outcome.IsFailure() {
			return true
		}
	}
	return false
}

// Status renders the run status as stored in run history.
func (r *RunResult) Status() string {
	if r.Failed() {
		return "failure"
	}
	return "success"
}

// Totals sums orphan and mark counters over all categories.
func (r *RunResult) Totals() (orphans, marked, markErrors int) {
	for _, c := range r.Categories {
		orphans += c.OrphanCount
		marked += c.MarkedCount
		markErrors += c.MarkErrors
	}
	return orphans, marked, markErrors
}
