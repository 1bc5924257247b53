package domain

// FragmentID identifies a fragment by its source location. Two fragments
// are the same fragment iff their IDs are equal.
type FragmentID struct {
	Path      string
	StartLine int
}

// Fragment is one function-like unit of source code, produced by an
// extractor and consumed read-only by the comparison engine.
type Fragment struct {
	Path       string
	StartLine  int
	EndLine    int
	Raw        string
	Normalized string
}

// ID returns the fragment's identity value.
func (f Fragment) ID() FragmentID {
	return FragmentID{Path: f.Path, StartLine: f.StartLine}
}

// LineCount returns the number of source lines the fragment spans,
// inclusive of both endpoints.
func (f Fragment) LineCount() int {
	return f.EndLine - f.StartLine + 1
}

// ProgressFunc receives (pairs completed, total pairs) during a
// sequential comparison run.
type ProgressFunc func(done, total int)

// Options configures one engine invocation. The zero value compares
// normalized text with no filtering.
type Options struct {
	// MinSimilarity is the minimum score (0-100) a pair must reach to be
	// reported. 0 disables threshold filtering and pruning.
	MinSimilarity float64
	// MinLines drops fragments spanning fewer lines before any pairwise
	// work. 0 disables the filter.
	MinLines int
	// UseRawText compares raw fragment text instead of normalized text.
	UseRawText bool
	// ExcludeSelf skips pairs whose fragments share the same identity.
	ExcludeSelf bool
	// Progress, if set, is invoked synchronously on the calling goroutine
	// at roughly 1% granularity of the total pair count.
	Progress ProgressFunc
}

// Sanitized returns a copy with out-of-range fields clamped. The engine
// clamps rather than erroring so that malformed numeric options never
// propagate silently into the score math.
func (o Options) Sanitized() Options {
	if o.MinSimilarity < 0 {
		o.MinSimilarity = 0
	}
	if o.MinSimilarity > 100 {
		o.MinSimilarity = 100
	}
	if o.MinLines < 0 {
		o.MinLines = 0
	}
	return o
}

// Result reports one qualifying pair. Fragments are referenced by
// identity rather than copied. The pair is unordered semantically but is
// always constructed with the lower original-sequence index in A.
type Result struct {
	A FragmentID
	B FragmentID
	// IndexA and IndexB provide the deterministic tie-break for equal
	// scores. In pairwise comparison both index the one shared sequence
	// with IndexA < IndexB; in one-vs-many comparison IndexA indexes the
	// target sequence instead (-1 for a standalone target).
	IndexA int
	IndexB int
	// Score is the similarity of the compared text, 0-100, two decimals.
	Score float64
	// RawScore is the similarity of the un-normalized text. It equals
	// Score when the comparison already ran on raw text.
	RawScore float64
	LinesA   int
	LinesB   int
}
