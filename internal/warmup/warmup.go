// Package warmup pre-exercises the comparison engine so that the buffer
// pools and scheduler are warm before the first real request lands.
package warmup

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// Config defines configuration for warming up the system.
type Config struct {
	// Number of concurrent warmup routines to run
	Concurrency int
	// Number of synthetic fragments per warmup corpus
	CorpusSize int
	// Approximate fragment text size in bytes
	FragmentTextSize int
	// Warmup duration cap (0 means no time limit)
	Duration time.Duration
	// Whether to perform GC after warmup
	ForceGC bool
}

// DefaultConfig returns the default warmup configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:      runtime.NumCPU(),
		CorpusSize:       40,
		FragmentTextSize: 400,
		Duration:         5 * time.Second,
		ForceGC:          true,
	}
}

// Comparer is the slice of the engine the warmup exercises. Both the
// configured facade and the core comparer fit through it.
type Comparer interface {
	CompareAll(ctx context.Context, fragments []domain.Fragment) ([]domain.Result, error)
}

// Manager handles system warmup operations.
type Manager struct {
	logger      ports.Logger
	comparers   []Comparer
	normalizers []ports.Normalizer
	config      Config
}

// NewManager creates a new warmup manager.
func NewManager(logger ports.Logger, config Config) *Manager {
	return &Manager{
		logger: logger,
		config: config,
	}
}

// RegisterComparer adds a comparer to be warmed up.
func (wm *Manager) RegisterComparer(c Comparer) {
	wm.comparers = append(wm.comparers, c)
}

// RegisterNormalizer adds a normalizer to be warmed up.
func (wm *Manager) RegisterNormalizer(n ports.Normalizer) {
	wm.normalizers = append(wm.normalizers, n)
}

// WarmUp runs the warmup process for all registered components.
func (wm *Manager) WarmUp(ctx context.Context) {
	startTime := time.Now()
	wm.logger.Info("Starting system warmup",
		"components", len(wm.comparers)+len(wm.normalizers),
		"concurrency", wm.config.Concurrency,
		"corpus_size", wm.config.CorpusSize,
	)

	warmupCtx := ctx
	if wm.config.Duration > 0 {
		var cancel context.CancelFunc
		warmupCtx, cancel = context.WithTimeout(ctx, wm.config.Duration)
		defer cancel()
	}

	wm.warmUpNormalizers(warmupCtx)
	wm.warmUpComparers(warmupCtx)

	if wm.config.ForceGC {
		wm.logger.Debug("Forcing garbage collection after warmup")
		runtime.GC()
	}

	wm.logger.Info("System warmup completed",
		"duration", time.Since(startTime),
	)
}

func (wm *Manager) warmUpNormalizers(ctx context.Context) {
	if len(wm.normalizers) == 0 {
		return
	}
	wm.logger.Debug("Warming up normalizers", "count", len(wm.normalizers))

	sample := sampleSource(0, wm.config.FragmentTextSize)

	var wg sync.WaitGroup
	for i := 0; i < wm.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if ctx.Err() != nil {
					return
				}
				for _, n := range wm.normalizers {
					_ = n.Normalize(sample)
				}
			}
		}()
	}
	wg.Wait()
}

func (wm *Manager) warmUpComparers(ctx context.Context) {
	if len(wm.comparers) == 0 {
		return
	}
	wm.logger.Debug("Warming up comparers", "count", len(wm.comparers))

	corpus := sampleCorpus(wm.config.CorpusSize, wm.config.FragmentTextSize)

	var wg sync.WaitGroup
	for i := 0; i < wm.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			for _, c := range wm.comparers {
				_, _ = c.CompareAll(ctx, corpus)
			}
		}()
	}
	wg.Wait()
}

// sampleCorpus builds synthetic fragments similar enough to each other
// that the warmup exercises the full pipeline: pruning, thresholded
// distance, and scoring.
func sampleCorpus(n, textSize int) []domain.Fragment {
	corpus := make([]domain.Fragment, n)
	for i := range corpus {
		text := sampleSource(i, textSize)
		corpus[i] = domain.Fragment{
			Path:       fmt.Sprintf("warmup/%d.go", i),
			StartLine:  1,
			EndLine:    10,
			Raw:        text,
			Normalized: text,
		}
	}
	return corpus
}

func sampleSource(seed, size int) string {
	rng := rand.New(rand.NewSource(int64(seed)))
	const tokens = "func return if else for range int string err nil { } ( ) := == != "
	out := make([]byte, 0, size)
	for len(out) < size {
		out = append(out, tokens[rng.Intn(len(tokens))])
	}
	return string(out)
}
