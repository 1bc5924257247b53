// Package extractor parses source files into the ordered fragment
// sequence the comparison engine consumes. Parsing runs through
// tree-sitter so that fragment boundaries are real function declarations,
// not heuristics.
package extractor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// DefaultCacheSize is the number of parsed files kept for reuse across
// invocations in long-running hosts.
const DefaultCacheSize = 256

// language bundles a grammar with the query selecting its function-like
// units.
type language struct {
	lang  *sitter.Language
	query string
}

var languages = map[string]language{
	".go": {
		lang: golang.GetLanguage(),
		query: `
			(function_declaration) @func
			(method_declaration) @func
		`,
	},
	".js": {
		lang: javascript.GetLanguage(),
		query: `
			(function_declaration) @func
			(method_definition) @func
		`,
	},
}

// cacheEntry pins the fragments of one parsed file to its mtime and size;
// a changed file misses and is reparsed.
type cacheEntry struct {
	modTime   time.Time
	size      int64
	fragments []domain.Fragment
}

// TreeSitterExtractor extracts function fragments from Go and JavaScript
// sources.
type TreeSitterExtractor struct {
	normalizer ports.Normalizer
	logger     ports.Logger
	cache      *lru.Cache[string, cacheEntry]
}

// New creates an extractor. cacheSize bounds the per-file fragment cache;
// values below 1 fall back to DefaultCacheSize.
func New(normalizer ports.Normalizer, logger ports.Logger, cacheSize int) (*TreeSitterExtractor, error) {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &TreeSitterExtractor{
		normalizer: normalizer,
		logger:     logger,
		cache:      cache,
	}, nil
}

// Supported reports whether path has a supported source extension.
func Supported(path string) bool {
	_, ok := languages[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExtractFile parses a single source file into fragments, in source
// order. Results are served from the cache while the file is unchanged.
func (e *TreeSitterExtractor) ExtractFile(ctx context.Context, path string) ([]domain.Fragment, error) {
	def, ok := languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported source file %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if entry, ok := e.cache.Get(path); ok {
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			e.logger.Debug("Fragment cache hit", "path", path)
			return entry.fragments, nil
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fragments, err := e.parse(ctx, def, path, source)
	if err != nil {
		return nil, err
	}

	e.cache.Add(path, cacheEntry{
		modTime:   info.ModTime(),
		size:      info.Size(),
		fragments: fragments,
	})
	return fragments, nil
}

// ExtractTree walks root and extracts fragments from every supported
// source file. WalkDir yields lexical order, so the fragment sequence is
// deterministic for a given tree.
func (e *TreeSitterExtractor) ExtractTree(ctx context.Context, root string) ([]domain.Fragment, error) {
	var fragments []domain.Fragment

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fileFragments, err := e.ExtractFile(ctx, path)
		if err != nil {
			return err
		}
		fragments = append(fragments, fileFragments...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Extracted fragment tree",
		"root", root,
		"fragments", len(fragments),
	)
	return fragments, nil
}

func (e *TreeSitterExtractor) parse(ctx context.Context, def language, path string, source []byte) ([]domain.Fragment, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(def.lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	query, err := sitter.NewQuery([]byte(def.query), def.lang)
	if err != nil {
		return nil, fmt.Errorf("fragment query: %w", err)
	}

	qc := sitter.NewQueryCursor()
	qc.Exec(query, tree.RootNode())

	var fragments []domain.Fragment
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			node := c.Node
			raw := node.Content(source)
			fragments = append(fragments, domain.Fragment{
				Path:       path,
				StartLine:  int(node.StartPoint().Row) + 1,
				EndLine:    int(node.EndPoint().Row) + 1,
				Raw:        raw,
				Normalized: e.normalizer.Normalize(raw),
			})
		}
	}

	e.logger.Debug("Extracted fragments",
		"path", path,
		"fragments", len(fragments),
	)
	return fragments, nil
}

// skipDir filters trees that are never worth scanning.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "vendor", "node_modules", "testdata":
		return true
	}
	return false
}
