package compare

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_code_similarity/internal/adapters/logger"
	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
)

// The parallel path must produce exactly the sequential path's output for
// any corpus size, including sizes straddling the fallback threshold and
// sizes that do not divide evenly across workers.
func TestParallelMatchesSequential(t *testing.T) {
	c := newTestComparer(t)

	for _, n := range []int{0, 1, 2, 37, 99, 100, 101, 150} {
		rng := rand.New(rand.NewSource(int64(n)))
		fragments := randomFragments(rng, n)

		opts := domain.Options{MinSimilarity: 40, ExcludeSelf: true}

		sequential, err := c.CompareAll(context.Background(), fragments, opts)
		require.NoError(t, err, "n=%d", n)

		parallel, err := c.CompareAllParallel(context.Background(), fragments, opts)
		require.NoError(t, err, "n=%d", n)

		assert.Equal(t, sequential, parallel, "n=%d", n)
	}
}

func TestParallelMatchesSequentialNoThreshold(t *testing.T) {
	c := newTestComparer(t)

	rng := rand.New(rand.NewSource(5))
	fragments := randomFragments(rng, 120)

	sequential, err := c.CompareAll(context.Background(), fragments, domain.Options{})
	require.NoError(t, err)

	parallel, err := c.CompareAllParallel(context.Background(), fragments, domain.Options{})
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestParallelAppliesMinLinesBeforeDecomposition(t *testing.T) {
	c := newTestComparer(t)

	rng := rand.New(rand.NewSource(11))
	fragments := randomFragments(rng, 130)
	// Shrink some fragments below the cutoff.
	for i := 0; i < len(fragments); i += 3 {
		fragments[i].EndLine = fragments[i].StartLine + 1
	}

	opts := domain.Options{MinLines: 5, MinSimilarity: 30}

	sequential, err := c.CompareAll(context.Background(), fragments, opts)
	require.NoError(t, err)

	parallel, err := c.CompareAllParallel(context.Background(), fragments, opts)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	for _, r := range parallel {
		assert.GreaterOrEqual(t, r.LinesA, 5)
		assert.GreaterOrEqual(t, r.LinesB, 5)
	}
}

func TestParallelCancelledContext(t *testing.T) {
	c := newTestComparer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rng := rand.New(rand.NewSource(3))
	fragments := randomFragments(rng, 150)

	_, err := c.CompareAllParallel(ctx, fragments, domain.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerCount(t *testing.T) {
	// Never below one worker, never above the cap.
	assert.GreaterOrEqual(t, workerCount(8), 1)
	assert.LessOrEqual(t, workerCount(8), 8)
	assert.Equal(t, 1, workerCount(1))
}

func TestParallelSmallCorpusKeepsProgress(t *testing.T) {
	c, err := NewComparer(Config{ParallelThreshold: 100, MaxWorkers: 8}, logger.NewNopLogger())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(21))
	fragments := randomFragments(rng, 20)

	var calls int
	_, err = c.CompareAllParallel(context.Background(), fragments, domain.Options{
		Progress: func(done, total int) { calls++ },
	})
	require.NoError(t, err)

	// Below the threshold the sequential driver runs, so the sink fires.
	assert.NotZero(t, calls)
}
