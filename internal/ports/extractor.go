package ports

import (
	"context"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
)

// Extractor defines the interface for turning source files into an ordered
// sequence of comparable fragments. The engine itself never touches the
// filesystem; extraction is the only component that does.
type Extractor interface {
	// ExtractFile parses a single source file into fragments.
	ExtractFile(ctx context.Context, path string) ([]domain.Fragment, error)

	// ExtractTree walks root recursively and extracts fragments from every
	// supported source file, in deterministic path order.
	ExtractTree(ctx context.Context, root string) ([]domain.Fragment, error)
}
