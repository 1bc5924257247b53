// Package compare implements the pairwise similarity comparison engine:
// the upper-triangle driver, the pruning chain hookup, and the parallel
// strip decomposition.
package compare

import (
	"context"
	"errors"
	"sort"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
	"github.com/baditaflorin/go_code_similarity/internal/core/prune"
	"github.com/baditaflorin/go_code_similarity/internal/core/score"
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// DuplicateThreshold is the minimum similarity at which two fragments are
// reported as duplicates of each other.
const DuplicateThreshold = 90

// Config holds configuration for the comparer.
type Config struct {
	// ParallelThreshold is the filtered fragment count below which the
	// parallel path falls back to the sequential driver.
	ParallelThreshold int
	// MaxWorkers caps the number of comparison workers.
	MaxWorkers int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ParallelThreshold: 100,
		MaxWorkers:        8,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.ParallelThreshold < 1 {
		return errors.New("parallel threshold must be at least 1")
	}
	if c.MaxWorkers < 1 {
		return errors.New("max workers must be at least 1")
	}
	return nil
}

// Comparer drives pairwise similarity comparison over a fragment corpus.
// It holds no per-invocation state; one instance may serve concurrent
// calls.
type Comparer struct {
	config Config
	logger ports.Logger
}

// NewComparer creates a new comparer.
func NewComparer(config Config, logger ports.Logger) (*Comparer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Comparer{
		config: config,
		logger: logger,
	}, nil
}

// CompareAll scores every unordered fragment pair sequentially and returns
// the qualifying results sorted by score descending.
func (c *Comparer) CompareAll(ctx context.Context, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error) {
	opts = opts.Sanitized()
	kept, indexes := filterMinLines(fragments, opts.MinLines)

	c.logger.Debug("Starting pairwise comparison",
		"fragments", len(fragments),
		"after_min_lines", len(kept),
		"min_similarity", opts.MinSimilarity,
	)

	texts := runeTexts(kept, opts.UseRawText)

	tracker := newProgressTracker(len(kept), opts.Progress)
	results, err := c.compareStrip(ctx, kept, indexes, texts, opts, 0, len(kept), tracker)
	if err != nil {
		return nil, err
	}

	sortResults(results)

	c.logger.Debug("Finished pairwise comparison",
		"results", len(results),
	)
	return results, nil
}

// CompareOne scores one target fragment against every fragment in the
// sequence. The pair count is linear, so no pruning chain is applied
// before scoring.
func (c *Comparer) CompareOne(ctx context.Context, target domain.Fragment, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error) {
	return c.compareOne(ctx, target, -1, fragments, opts)
}

// CompareAgainst scores every target fragment against the corpus and
// merges the per-target results into one sorted list. Targets are never
// compared against each other.
func (c *Comparer) CompareAgainst(ctx context.Context, targets, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error) {
	var merged []domain.Result
	for t, target := range targets {
		results, err := c.compareOne(ctx, target, t, fragments, opts)
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}
	sortResults(merged)
	return merged, nil
}

// compareOne runs the linear one-vs-many loop. targetIndex lands in
// Result.IndexA: the target's position in the caller's target sequence,
// or -1 for a standalone target.
func (c *Comparer) compareOne(ctx context.Context, target domain.Fragment, targetIndex int, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error) {
	opts = opts.Sanitized()
	if opts.MinLines > 0 && target.LineCount() < opts.MinLines {
		return nil, nil
	}
	kept, indexes := filterMinLines(fragments, opts.MinLines)

	targetText := []rune(selectText(target, opts.UseRawText))
	var results []domain.Result

	for k, frag := range kept {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.ExcludeSelf && target.ID() == frag.ID() {
			continue
		}

		s := score.Runes(targetText, []rune(selectText(frag, opts.UseRawText)), opts.MinSimilarity)
		if s < opts.MinSimilarity {
			continue
		}

		raw := s
		if !opts.UseRawText {
			raw = score.ScoreWithin(target.Raw, frag.Raw, opts.MinSimilarity)
		}

		results = append(results, domain.Result{
			A:        target.ID(),
			B:        frag.ID(),
			IndexA:   targetIndex,
			IndexB:   indexes[k],
			Score:    s,
			RawScore: raw,
			LinesA:   target.LineCount(),
			LinesB:   frag.LineCount(),
		})
	}

	sortResults(results)
	return results, nil
}

// FindDuplicates reports every pair scoring at or above
// DuplicateThreshold, overriding any threshold in opts.
func (c *Comparer) FindDuplicates(ctx context.Context, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error) {
	opts.MinSimilarity = DuplicateThreshold
	return c.CompareAllParallel(ctx, fragments, opts)
}

// compareStrip runs the inner pairwise loop with the row index i
// restricted to [lo, hi) and the column index j ranging over (i, n). The
// sequential driver passes the whole range; each parallel worker passes
// its own strip.
func (c *Comparer) compareStrip(ctx context.Context, fragments []domain.Fragment, indexes []int, texts [][]rune, opts domain.Options, lo, hi int, tracker *progressTracker) ([]domain.Result, error) {
	var results []domain.Result

	for i := lo; i < hi; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for j := i + 1; j < len(fragments); j++ {
			tracker.step()

			a, b := fragments[i], fragments[j]
			if opts.ExcludeSelf && a.ID() == b.ID() {
				continue
			}

			ta, tb := texts[i], texts[j]
			if !prune.CanReach(ta, tb, opts.MinSimilarity) {
				continue
			}

			s := score.Runes(ta, tb, opts.MinSimilarity)
			if s < opts.MinSimilarity {
				continue
			}

			raw := s
			if !opts.UseRawText {
				raw = score.ScoreWithin(a.Raw, b.Raw, opts.MinSimilarity)
			}

			results = append(results, domain.Result{
				A:        a.ID(),
				B:        b.ID(),
				IndexA:   indexes[i],
				IndexB:   indexes[j],
				Score:    s,
				RawScore: raw,
				LinesA:   a.LineCount(),
				LinesB:   b.LineCount(),
			})
		}
	}

	return results, nil
}

// filterMinLines drops fragments spanning fewer than minLines lines,
// preserving order, and returns the survivors together with their
// positions in the original sequence. Pair count is quadratic in the
// survivor count, so this runs exactly once, before any pairwise work.
func filterMinLines(fragments []domain.Fragment, minLines int) ([]domain.Fragment, []int) {
	if minLines <= 0 {
		indexes := make([]int, len(fragments))
		for i := range indexes {
			indexes[i] = i
		}
		return fragments, indexes
	}

	kept := make([]domain.Fragment, 0, len(fragments))
	indexes := make([]int, 0, len(fragments))
	for i, f := range fragments {
		if f.LineCount() >= minLines {
			kept = append(kept, f)
			indexes = append(indexes, i)
		}
	}
	return kept, indexes
}

// runeTexts converts each fragment's compared text to runes exactly once.
func runeTexts(fragments []domain.Fragment, useRaw bool) [][]rune {
	texts := make([][]rune, len(fragments))
	for i, f := range fragments {
		texts[i] = []rune(selectText(f, useRaw))
	}
	return texts
}

func selectText(f domain.Fragment, useRaw bool) string {
	if useRaw {
		return f.Raw
	}
	return f.Normalized
}

// sortResults orders results by score descending with a deterministic
// tie-break on the original pair order, lower (i, j) first. Re-sorting a
// sorted list is a no-op.
func sortResults(results []domain.Result) {
	sort.Slice(results, func(x, y int) bool {
		a, b := results[x], results[y]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.IndexA != b.IndexA {
			return a.IndexA < b.IndexA
		}
		return a.IndexB < b.IndexB
	})
}

// progressTracker throttles progress callbacks to roughly 1% granularity
// of the total pair count.
type progressTracker struct {
	fn    domain.ProgressFunc
	total int
	every int
	done  int
}

func newProgressTracker(n int, fn domain.ProgressFunc) *progressTracker {
	if fn == nil {
		return nil
	}
	total := n * (n - 1) / 2
	every := (total + 99) / 100
	if every < 1 {
		every = 1
	}
	return &progressTracker{fn: fn, total: total, every: every}
}

func (p *progressTracker) step() {
	if p == nil {
		return
	}
	p.done++
	if p.done%p.every == 0 || p.done == p.total {
		p.fn(p.done, p.total)
	}
}
