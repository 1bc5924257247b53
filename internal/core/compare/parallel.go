package compare

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
)

// CompareAllParallel produces the same result set as CompareAll, computed
// by independent workers. The row index range is split into contiguous
// strips of the upper triangle; strips never overlap and workers share
// only the read-only fragment data, so the dispatch and the final join are
// the only synchronization points.
//
// Any single worker failure fails the whole call; no partial results are
// returned. Progress reporting is not aggregated across workers and is
// disabled on this path.
func (c *Comparer) CompareAllParallel(ctx context.Context, fragments []domain.Fragment, opts domain.Options) ([]domain.Result, error) {
	opts = opts.Sanitized()
	kept, indexes := filterMinLines(fragments, opts.MinLines)
	n := len(kept)

	// Below the threshold the strip bookkeeping costs more than it saves.
	if n < c.config.ParallelThreshold {
		c.logger.Debug("Corpus below parallel threshold, comparing sequentially",
			"fragments", n,
			"threshold", c.config.ParallelThreshold,
		)
		texts := runeTexts(kept, opts.UseRawText)
		results, err := c.compareStrip(ctx, kept, indexes, texts, opts, 0, n, newProgressTracker(n, opts.Progress))
		if err != nil {
			return nil, err
		}
		sortResults(results)
		return results, nil
	}

	workers := workerCount(c.config.MaxWorkers)
	chunk := (n + workers - 1) / workers

	c.logger.Debug("Dispatching parallel comparison",
		"fragments", n,
		"workers", workers,
		"chunk_size", chunk,
	)

	// Shared read-only across all workers.
	texts := runeTexts(kept, opts.UseRawText)

	stripResults := make([][]domain.Result, workers)
	stripErrs := make([]error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					stripErrs[w] = fmt.Errorf("comparison worker %d: panic: %v", w, r)
				}
			}()
			stripResults[w], stripErrs[w] = c.compareStrip(ctx, kept, indexes, texts, opts, lo, hi, nil)
		}(w, lo, hi)
	}
	wg.Wait()

	total := 0
	for w := 0; w < workers; w++ {
		if stripErrs[w] != nil {
			return nil, stripErrs[w]
		}
		total += len(stripResults[w])
	}

	// Stays nil when no strip produced results, matching CompareAll.
	var merged []domain.Result
	if total > 0 {
		merged = make([]domain.Result, 0, total)
		for _, strip := range stripResults {
			merged = append(merged, strip...)
		}
	}
	sortResults(merged)

	c.logger.Debug("Finished parallel comparison",
		"results", len(merged),
	)
	return merged, nil
}

// workerCount reserves one unit of parallelism for the coordinator and
// caps the rest to bound coordination overhead.
func workerCount(max int) int {
	w := runtime.NumCPU() - 1
	if w > max {
		w = max
	}
	if w < 1 {
		w = 1
	}
	return w
}
