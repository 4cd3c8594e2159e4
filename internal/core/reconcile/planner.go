package reconcile

import (
	"fmt"
	"strings"
)

// Path is the Tracker B query strategy chosen for a category.
type Path string

const (
	PathSkip    Path = "skip"
	PathDirect  Path = "direct"
	PathBatched Path = "batched"
)

// PlanContext carries the inputs the planner needs for one category.
type PlanContext struct {
	Category      Category
	EpicStatus    EpicStatus
	EpicKeyCount  int
	EpicBatchSize int
}

// Plan is the planner's decision for one category. When Path is PathSkip,
// Outcome and Reason say why.
type Plan struct {
	Path     Path
	WithEpic bool
	Outcome  Outcome
	Reason   string
}

// PlanCategory decides how a category is reconciled before any ticket is
// fetched.
// Rules:
// - a category with missing config is skipped as config-missing
// - service requests under failed or empty epic resolution are skipped as epic failures
// - service requests without epic scoping are skipped as config-missing
// - service requests with more epic keys than the batch size are batched
// - everything else runs as one direct query
func PlanCategory(ctx PlanContext) Plan {
	if len(ctx.Category.Missing) > 0 {
		return Plan{
			Path:    PathSkip,
			Outcome: OutcomeSkippedConfigMissing,
			Reason:  fmt.Sprintf("missing %s config: %s", ctx.Category.ShortLabel, strings.Join(ctx.Category.Missing, ", ")),
		}
	}

	if ctx.Category.Kind == KindBug {
		return Plan{Path: PathDirect}
	}

	switch ctx.EpicStatus {
	case EpicFailed:
		return Plan{
			Path:    PathSkip,
			Outcome: OutcomeSkippedEpicFailure,
			Reason:  "epic key retrieval failed",
		}
	case EpicEmpty:
		return Plan{
			Path:    PathSkip,
			Outcome: OutcomeSkippedEpicFailure,
			Reason:  "epic key retrieval returned no keys",
		}
	case EpicDisabled, EpicNotConfigured:
		return Plan{
			Path:    PathSkip,
			Outcome: OutcomeSkippedConfigMissing,
			Reason:  "no epic keys or epic switch is off",
		}
	}

	if ctx.EpicKeyCount == 0 {
		return Plan{
			Path:    PathSkip,
			Outcome: OutcomeSkippedConfigMissing,
			Reason:  "no epic keys or epic switch is off",
		}
	}

	if ctx.EpicBatchSize > 0 && ctx.EpicKeyCount > ctx.EpicBatchSize {
		return Plan{Path: PathBatched, WithEpic: true}
	}
	return Plan{Path: PathDirect, WithEpic: true}
}

// Partition splits keys into contiguous chunks of at most size.
// size must be positive.
func Partition(keys []string, size int) [][]string {
	if size <= 0 || len(keys) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}
