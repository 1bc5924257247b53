package ports

import (
	"io"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
)

// Reporter defines the interface for rendering comparison results.
type Reporter interface {
	Report(w io.Writer, results []domain.Result) error
}
