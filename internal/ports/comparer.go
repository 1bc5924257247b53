package ports

import (
	"context"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
)

// Comparer defines the interface for pairwise fragment comparison.
type Comparer interface {
	// CompareAll scores every unordered fragment pair and returns the
	// qualifying results sorted by score descending.
	CompareAll(ctx context.Context, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error)

	// CompareAllParallel produces the same results as CompareAll by
	// decomposing the pair matrix into independent worker strips.
	CompareAllParallel(ctx context.Context, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error)

	// CompareOne scores one target fragment against every fragment in the
	// sequence.
	CompareOne(ctx context.Context, target domain.Fragment, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error)

	// CompareAgainst scores every target fragment against the corpus,
	// never targets against each other.
	CompareAgainst(ctx context.Context, targets, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error)

	// FindDuplicates reports pairs scoring at or above the duplicate
	// threshold, regardless of the options' configured minimum.
	FindDuplicates(ctx context.Context, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error)
}
