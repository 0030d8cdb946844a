//go:build !llama

package llama

import (
	"context"
	"fmt"

	"narengine/internal/backend"
)

// Built is false when the 'llama' build tag is not set; default builds stay
// CGO-free and use the bytelm backend.
const Built = false

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "llama.cpp" }

// Load fails fast: the runtime is not compiled in.
func (*Backend) Load(context.Context, string, backend.LoadOptions) (backend.Model, error) {
	return nil, fmt.Errorf("llama support not built (missing 'llama' build tag): %w", backend.ErrUnavailable)
}
