package compare

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_code_similarity/internal/adapters/logger"
	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
)

func newTestComparer(t *testing.T) *Comparer {
	t.Helper()
	c, err := NewComparer(DefaultConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

func frag(path string, start, end int, text string) domain.Fragment {
	return domain.Fragment{
		Path:       path,
		StartLine:  start,
		EndLine:    end,
		Raw:        text,
		Normalized: text,
	}
}

func TestNewComparerValidatesConfig(t *testing.T) {
	_, err := NewComparer(Config{ParallelThreshold: 0, MaxWorkers: 4}, logger.NewNopLogger())
	assert.Error(t, err)

	_, err = NewComparer(Config{ParallelThreshold: 100, MaxWorkers: 0}, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestCompareAllSimilarFunctions(t *testing.T) {
	c := newTestComparer(t)

	fragments := []domain.Fragment{
		frag("a.js", 1, 1, "function f(a,b){return a+b;}"),
		frag("b.js", 1, 1, "function g(x,y){return x+y;}"),
	}

	results, err := c.CompareAll(context.Background(), fragments, domain.Options{MinSimilarity: 80})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, domain.FragmentID{Path: "a.js", StartLine: 1}, r.A)
	assert.Equal(t, domain.FragmentID{Path: "b.js", StartLine: 1}, r.B)
	assert.GreaterOrEqual(t, r.Score, 80.0)
	assert.Equal(t, r.Score, r.RawScore)
	assert.Equal(t, 1, r.LinesA)
	assert.Equal(t, 1, r.LinesB)
}

func TestCompareAllIdenticalFragmentsScoreExactly100(t *testing.T) {
	c := newTestComparer(t)

	text := "func handle(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) }"
	fragments := []domain.Fragment{
		frag("one.go", 10, 12, text),
		frag("two.go", 40, 42, text),
	}

	results, err := c.CompareAll(context.Background(), fragments, domain.Options{MinSimilarity: 90})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 100.0, results[0].Score)
}

func TestCompareAllMinLinesFilter(t *testing.T) {
	c := newTestComparer(t)

	fragments := []domain.Fragment{
		frag("short.go", 1, 3, "func a() { return }"),
		frag("long1.go", 1, 10, "func b() { return }"),
		frag("long2.go", 20, 29, "func b() { return }"),
	}

	results, err := c.CompareAll(context.Background(), fragments, domain.Options{MinLines: 5})
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, "short.go", r.A.Path, "3-line fragment must never appear in results")
		assert.NotEqual(t, "short.go", r.B.Path, "3-line fragment must never appear in results")
	}
	// The two 10-line fragments still pair up, keeping their positions in
	// the caller's original sequence.
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].IndexA)
	assert.Equal(t, 2, results[0].IndexB)
}

func TestCompareAllExcludeSelf(t *testing.T) {
	c := newTestComparer(t)

	// Same identity recorded twice, plus a separate fragment.
	fragments := []domain.Fragment{
		frag("dup.go", 5, 6, "func x() int { return 1 }"),
		frag("dup.go", 5, 6, "func x() int { return 1 }"),
		frag("other.go", 5, 6, "func x() int { return 2 }"),
	}

	results, err := c.CompareAll(context.Background(), fragments, domain.Options{ExcludeSelf: true})
	require.NoError(t, err)

	for _, r := range results {
		assert.False(t, r.A == r.B, "self pair %v reported", r.A)
	}
	// (0,2) and (1,2) survive, (0,1) does not.
	assert.Len(t, results, 2)
}

func TestCompareAllSortsByScoreDescending(t *testing.T) {
	c := newTestComparer(t)

	fragments := []domain.Fragment{
		frag("a.go", 1, 1, "aaaaaaaaaa"),
		frag("b.go", 1, 1, "aaaaaaaaab"),
		frag("c.go", 1, 1, "aaaaaaaabb"),
		frag("d.go", 1, 1, "zzzzzzzzzz"),
	}

	results, err := c.CompareAll(context.Background(), fragments, domain.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i := 1; i < len(results); i++ {
		prev, curr := results[i-1], results[i]
		ordered := prev.Score > curr.Score ||
			(prev.Score == curr.Score &&
				(prev.IndexA < curr.IndexA ||
					(prev.IndexA == curr.IndexA && prev.IndexB < curr.IndexB)))
		assert.True(t, ordered, "results out of order at %d: %+v then %+v", i, prev, curr)
	}

	// Re-sorting an already-sorted list changes nothing.
	resorted := append([]domain.Result(nil), results...)
	sortResults(resorted)
	assert.Equal(t, results, resorted)
}

func TestCompareAllProgressThrottled(t *testing.T) {
	c := newTestComparer(t)

	fragments := make([]domain.Fragment, 30)
	for i := range fragments {
		fragments[i] = frag(fmt.Sprintf("f%d.go", i), 1, 1, fmt.Sprintf("func f%d() {}", i))
	}
	total := len(fragments) * (len(fragments) - 1) / 2

	var calls int
	var lastDone, lastTotal int
	_, err := c.CompareAll(context.Background(), fragments, domain.Options{
		Progress: func(done, totalPairs int) {
			calls++
			lastDone, lastTotal = done, totalPairs
		},
	})
	require.NoError(t, err)

	assert.NotZero(t, calls)
	assert.Equal(t, total, lastDone, "final callback reports all pairs done")
	assert.Equal(t, total, lastTotal)
	// ~1% granularity means at most ~101 callbacks regardless of pair count.
	assert.LessOrEqual(t, calls, 101)
}

func TestCompareAllRawScoreDiffersFromNormalized(t *testing.T) {
	c := newTestComparer(t)

	// Identical normalized text, different raw comment noise.
	a := domain.Fragment{Path: "a.go", StartLine: 1, EndLine: 3,
		Raw:        "func sum(a, b int) int { // adds\n\treturn a + b\n}",
		Normalized: "func sum(a, b int) int { return a + b }",
	}
	b := domain.Fragment{Path: "b.go", StartLine: 1, EndLine: 3,
		Raw:        "func sum(a, b int) int {\n\treturn a + b\n}",
		Normalized: "func sum(a, b int) int { return a + b }",
	}

	results, err := c.CompareAll(context.Background(), []domain.Fragment{a, b}, domain.Options{MinSimilarity: 50})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 100.0, results[0].Score)
	assert.Less(t, results[0].RawScore, 100.0)
	assert.GreaterOrEqual(t, results[0].RawScore, 50.0)
}

func TestCompareAllUsesRawTextWhenConfigured(t *testing.T) {
	c := newTestComparer(t)

	a := domain.Fragment{Path: "a.go", StartLine: 1, EndLine: 1, Raw: "same text", Normalized: "completely different"}
	b := domain.Fragment{Path: "b.go", StartLine: 1, EndLine: 1, Raw: "same text", Normalized: "unrelated thing"}

	results, err := c.CompareAll(context.Background(), []domain.Fragment{a, b}, domain.Options{UseRawText: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 100.0, results[0].Score)
	assert.Equal(t, 100.0, results[0].RawScore)
}

func TestCompareAllSanitizesOptions(t *testing.T) {
	c := newTestComparer(t)

	fragments := []domain.Fragment{
		frag("a.go", 1, 2, "func a() {}"),
		frag("b.go", 1, 2, "func b() {}"),
	}

	// Negative values clamp to "no filtering" rather than misbehaving.
	results, err := c.CompareAll(context.Background(), fragments, domain.Options{MinSimilarity: -20, MinLines: -3})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCompareAllCancelledContext(t *testing.T) {
	c := newTestComparer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fragments := []domain.Fragment{
		frag("a.go", 1, 1, "func a() {}"),
		frag("b.go", 1, 1, "func b() {}"),
	}

	_, err := c.CompareAll(ctx, fragments, domain.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareOne(t *testing.T) {
	c := newTestComparer(t)

	target := frag("target.go", 1, 4, "func sum(a, b int) int { return a + b }")
	fragments := []domain.Fragment{
		frag("near.go", 1, 4, "func sum(x, y int) int { return x + y }"),
		frag("far.go", 1, 4, "type Config struct { Name string }"),
		frag("target.go", 1, 4, "func sum(a, b int) int { return a + b }"),
	}

	results, err := c.CompareOne(context.Background(), target, fragments, domain.Options{
		MinSimilarity: 70,
		ExcludeSelf:   true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near.go", results[0].B.Path)
	assert.GreaterOrEqual(t, results[0].Score, 70.0)
}

func TestCompareOneMinLinesDropsTarget(t *testing.T) {
	c := newTestComparer(t)

	target := frag("target.go", 1, 2, "func tiny() {}")
	fragments := []domain.Fragment{frag("a.go", 1, 10, "func tiny() {}")}

	results, err := c.CompareOne(context.Background(), target, fragments, domain.Options{MinLines: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCompareAgainst(t *testing.T) {
	c := newTestComparer(t)

	targets := []domain.Fragment{
		frag("t.go", 1, 4, "func sum(a, b int) int { return a + b }"),
		frag("t.go", 10, 13, "func mul(a, b int) int { return a * b }"),
	}
	corpus := []domain.Fragment{
		frag("near.go", 1, 4, "func sum(x, y int) int { return x + y }"),
		frag("far.go", 1, 4, "type Config struct { Name string }"),
	}

	results, err := c.CompareAgainst(context.Background(), targets, corpus, domain.Options{MinSimilarity: 70})
	require.NoError(t, err)
	require.Len(t, results, 2, "each target pairs with near.go only")

	// Targets never pair with each other.
	for _, r := range results {
		assert.Equal(t, "t.go", r.A.Path)
		assert.Equal(t, "near.go", r.B.Path)
	}
	// Merged list stays sorted; the closer target wins the top slot.
	assert.Equal(t, 1, results[0].A.StartLine)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestFindDuplicates(t *testing.T) {
	c := newTestComparer(t)

	text := "func run(ctx context.Context) error { return nil }"
	fragments := []domain.Fragment{
		frag("a.go", 1, 3, text),
		frag("b.go", 7, 9, text),
		frag("c.go", 1, 3, "func stop(ctx context.Context) { cancel() }"),
	}

	// Even a permissive threshold in opts is overridden to 90.
	results, err := c.FindDuplicates(context.Background(), fragments, domain.Options{MinSimilarity: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].A.Path)
	assert.Equal(t, "b.go", results[0].B.Path)
	assert.Equal(t, 100.0, results[0].Score)
}

func randomFragments(rng *rand.Rand, n int) []domain.Fragment {
	const alphabet = "abcdef(){};+= "
	out := make([]domain.Fragment, n)
	for i := range out {
		length := 5 + rng.Intn(40)
		text := make([]byte, length)
		for j := range text {
			text[j] = alphabet[rng.Intn(len(alphabet))]
		}
		out[i] = frag(fmt.Sprintf("file%d.go", i), 1+rng.Intn(50), 1+rng.Intn(50)+50, string(text))
	}
	return out
}
