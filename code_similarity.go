// Package codesimilarity finds near-duplicate source-code fragments by
// pairwise edit-distance comparison. Fragments are extracted from source
// trees (or supplied directly), every unordered pair is scored on a 0-100
// scale, and pairs at or above a configurable threshold are reported
// sorted by score.
//
// A multi-stage pruning chain rejects most pairs before any O(n*m)
// distance work, and large corpora are decomposed into independent
// row strips compared in parallel.
package codesimilarity

import (
	"context"
	"errors"

	"github.com/baditaflorin/l"

	"github.com/baditaflorin/go_code_similarity/internal/adapters/extractor"
	"github.com/baditaflorin/go_code_similarity/internal/adapters/logger"
	"github.com/baditaflorin/go_code_similarity/internal/adapters/normalizer"
	"github.com/baditaflorin/go_code_similarity/internal/core/compare"
	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// Re-exported engine types.
type (
	Fragment   = domain.Fragment
	FragmentID = domain.FragmentID
	Result     = domain.Result
	Progress   = domain.ProgressFunc
)

// DuplicateThreshold is the score at which FindDuplicates reports a pair.
const DuplicateThreshold = compare.DuplicateThreshold

type engineConfig struct {
	minSimilarity     float64
	minLines          int
	useRawText        bool
	includeSelf       bool
	progress          domain.ProgressFunc
	logger            ports.Logger
	normalizer        ports.Normalizer
	parallelThreshold int
	maxWorkers        int
	cacheSize         int
}

// Option defines a functional option for configuring the engine.
type Option func(*engineConfig)

// WithMinSimilarity sets the minimum score (0-100) a pair must reach to
// be reported.
func WithMinSimilarity(min float64) Option {
	return func(cfg *engineConfig) {
		cfg.minSimilarity = min
	}
}

// WithMinLines drops fragments spanning fewer lines before comparison.
func WithMinLines(lines int) Option {
	return func(cfg *engineConfig) {
		cfg.minLines = lines
	}
}

// WithRawText compares raw fragment text instead of normalized text.
func WithRawText() Option {
	return func(cfg *engineConfig) {
		cfg.useRawText = true
	}
}

// WithSelfPairs keeps pairs whose fragments share an identity. By default
// a fragment is never compared against its own source location.
func WithSelfPairs() Option {
	return func(cfg *engineConfig) {
		cfg.includeSelf = true
	}
}

// WithProgress sets a progress sink for sequential comparison runs.
func WithProgress(fn Progress) Option {
	return func(cfg *engineConfig) {
		cfg.progress = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg l.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger.FromExisting(lg)
	}
}

// WithNormalizer sets a custom source normalizer.
func WithNormalizer(n ports.Normalizer) Option {
	return func(cfg *engineConfig) {
		cfg.normalizer = n
	}
}

// WithParallelThreshold sets the corpus size at which the parallel path
// decomposes instead of running sequentially.
func WithParallelThreshold(n int) Option {
	return func(cfg *engineConfig) {
		cfg.parallelThreshold = n
	}
}

// WithMaxWorkers caps the number of comparison workers.
func WithMaxWorkers(n int) Option {
	return func(cfg *engineConfig) {
		cfg.maxWorkers = n
	}
}

// WithCacheSize bounds the extractor's per-file fragment cache.
func WithCacheSize(n int) Option {
	return func(cfg *engineConfig) {
		cfg.cacheSize = n
	}
}

// Engine ties extraction and pairwise comparison together behind one
// configured instance. An Engine is safe for concurrent use.
type Engine struct {
	comparer  ports.Comparer
	extractor ports.Extractor
	logger    ports.Logger
	opts      domain.Options
}

// New creates a new engine with the provided functional options. If no
// logger is provided, a default logger is created.
func New(opts ...Option) (*Engine, error) {
	defaultCompare := compare.DefaultConfig()

	cfg := &engineConfig{
		parallelThreshold: defaultCompare.ParallelThreshold,
		maxWorkers:        defaultCompare.MaxWorkers,
		cacheSize:         extractor.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.minSimilarity < 0 || cfg.minSimilarity > 100 {
		return nil, errors.New("minimum similarity must be between 0 and 100")
	}
	if cfg.minLines < 0 {
		return nil, errors.New("minimum line count must not be negative")
	}

	if cfg.logger == nil {
		lg, err := logger.NewStdLogger()
		if err != nil {
			return nil, err
		}
		cfg.logger = lg
	}
	if cfg.normalizer == nil {
		cfg.normalizer = normalizer.NewSourceNormalizer()
	}

	comparer, err := compare.NewComparer(compare.Config{
		ParallelThreshold: cfg.parallelThreshold,
		MaxWorkers:        cfg.maxWorkers,
	}, cfg.logger)
	if err != nil {
		return nil, err
	}

	ext, err := extractor.New(cfg.normalizer, cfg.logger, cfg.cacheSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		comparer:  comparer,
		extractor: ext,
		logger:    cfg.logger,
		opts: domain.Options{
			MinSimilarity: cfg.minSimilarity,
			MinLines:      cfg.minLines,
			UseRawText:    cfg.useRawText,
			ExcludeSelf:   !cfg.includeSelf,
			Progress:      cfg.progress,
		},
	}, nil
}

// CompareAll scores every unordered fragment pair sequentially.
func (e *Engine) CompareAll(ctx context.Context, fragments []Fragment) ([]Result, error) {
	return e.comparer.CompareAll(ctx, fragments, e.opts)
}

// CompareAllParallel scores every unordered fragment pair across worker
// strips, producing the same results as CompareAll.
func (e *Engine) CompareAllParallel(ctx context.Context, fragments []Fragment) ([]Result, error) {
	return e.comparer.CompareAllParallel(ctx, fragments, e.opts)
}

// CompareOne scores one target fragment against every fragment in the
// sequence.
func (e *Engine) CompareOne(ctx context.Context, target Fragment, fragments []Fragment) ([]Result, error) {
	return e.comparer.CompareOne(ctx, target, fragments, e.opts)
}

// CompareAgainst scores every target fragment against the corpus and
// merges the results into one sorted list. Targets are never compared
// against each other.
func (e *Engine) CompareAgainst(ctx context.Context, targets, fragments []Fragment) ([]Result, error) {
	return e.comparer.CompareAgainst(ctx, targets, fragments, e.opts)
}

// FindDuplicates reports every pair scoring at or above
// DuplicateThreshold, regardless of the configured threshold.
func (e *Engine) FindDuplicates(ctx context.Context, fragments []Fragment) ([]Result, error) {
	return e.comparer.FindDuplicates(ctx, fragments, e.opts)
}

// ExtractFile parses one source file into fragments.
func (e *Engine) ExtractFile(ctx context.Context, path string) ([]Fragment, error) {
	return e.extractor.ExtractFile(ctx, path)
}

// ExtractTree walks a directory tree and extracts fragments from every
// supported source file.
func (e *Engine) ExtractTree(ctx context.Context, root string) ([]Fragment, error) {
	return e.extractor.ExtractTree(ctx, root)
}

// CompareTree extracts a directory tree and compares the resulting
// corpus in parallel.
func (e *Engine) CompareTree(ctx context.Context, root string) ([]Result, error) {
	fragments, err := e.ExtractTree(ctx, root)
	if err != nil {
		return nil, err
	}
	return e.CompareAllParallel(ctx, fragments)
}
