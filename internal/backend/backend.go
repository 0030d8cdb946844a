// Package backend defines the contract between the engine and a model
// runtime. The engine owns scheduling, sampling and stop handling; a backend
// only tokenizes text and turns a token sequence into next-token logits.
package backend

import (
	"context"
	"errors"

	"narengine/internal/sampling"
)

// LoadOptions carries the engine configuration relevant to model loading.
type LoadOptions struct {
	ContextLength int
	Threads       int
	GPU           bool
	MMap          bool
}

// Backend loads model weights from a file.
type Backend interface {
	// Name identifies the runtime in logs and status output.
	Name() string
	Load(ctx context.Context, path string, opts LoadOptions) (Model, error)
}

// Model is a loaded model. Implementations must be safe for concurrent use;
// the engine calls Step from several workers at once.
type Model interface {
	// Name is the model's display name.
	Name() string
	Tokenize(text string) ([]int, error)
	// TokenText renders a single token. Multi-byte runes may span tokens, so
	// the returned string is not necessarily valid UTF-8 on its own.
	TokenText(id int) string
	// EOS is the end-of-sequence token id.
	EOS() int
	VocabSize() int
	// Step returns logits for the token following tokens.
	Step(ctx context.Context, tokens []int) ([]float32, error)
	// MemoryFootprint is the resident size of the weights in bytes.
	MemoryFootprint() uint64
	Close() error
}

// Predictor is implemented by models whose runtime samples internally. The
// engine hands the whole prompt over and receives decoded pieces; returning
// false from onToken stops the prediction.
type Predictor interface {
	Predict(ctx context.Context, prompt string, maxTokens int, p sampling.Params, onToken func(piece string) bool) error
}

// ErrUnavailable reports that a runtime was not compiled into this binary.
var ErrUnavailable = errors.New("backend: runtime not available in this build")

// ErrOutOfMemory is returned (possibly wrapped) by Load when the runtime
// cannot allocate the model.
var ErrOutOfMemory = errors.New("backend: out of memory")
