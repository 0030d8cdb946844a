// Package bytelm is a small pure-Go language model over a byte vocabulary.
// Its weights are derived from a fingerprint of the model file, so any file
// loads to a stable, reproducible model. It backs the engine when the
// llama.cpp runtime is not compiled in, and in tests.
package bytelm

import (
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"narengine/internal/backend"
)

const (
	// Vocab is 256 byte tokens plus EOS.
	Vocab = 257
	// EOS doubles as the beginning-of-sequence token.
	EOS    = 256
	Hidden = 32

	fingerprintBytes = 64 * 1024
)

// Backend loads bytelm models.
type Backend struct{}

// New returns the bytelm backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "bytelm" }

// Load fingerprints the file at path and builds the model from it.
func (*Backend) Load(ctx context.Context, path string, opts backend.LoadOptions) (backend.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	h := xxhash.New()
	if _, err := io.CopyN(h, f, fingerprintBytes); err != nil && err != io.EOF {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := int64(h.Sum64() ^ uint64(fi.Size()))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewModel(name, seed), nil
}

// Model is an embedding/projection pair with a printable-text bias. Logits
// depend on the last two tokens.
type Model struct {
	name string
	emb  []float32 // [Vocab x Hidden]
	w    []float32 // [Hidden x Vocab]
	bias []float32 // [Vocab]
}

// NewModel builds a model with weights drawn from seed.
func NewModel(name string, seed int64) *Model {
	m := &Model{
		name: name,
		emb:  make([]float32, Vocab*Hidden),
		w:    make([]float32, Hidden*Vocab),
		bias: make([]float32, Vocab),
	}
	r := rand.New(rand.NewSource(seed))
	for i := range m.emb {
		m.emb[i] = float32(r.NormFloat64())
	}
	for i := range m.w {
		m.w[i] = float32(r.NormFloat64()) * 0.5
	}
	for i := range m.bias {
		m.bias[i] = byteBias(i)
	}
	return m
}

func byteBias(tok int) float32 {
	switch {
	case tok == EOS:
		return -2
	case tok == ' ':
		return 4
	case tok >= 'a' && tok <= 'z':
		return 3
	case tok >= 'A' && tok <= 'Z', tok == '.', tok == ',':
		return 1
	case tok >= 0x21 && tok < 0x7f:
		return 0
	default:
		return -30
	}
}

func (m *Model) Name() string { return m.name }

// Tokenize maps each byte of text to its own token.
func (m *Model) Tokenize(text string) ([]int, error) {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out, nil
}

func (m *Model) TokenText(id int) string {
	if id < 0 || id >= EOS {
		return ""
	}
	return string([]byte{byte(id)})
}

func (m *Model) EOS() int { return EOS }

func (m *Model) VocabSize() int { return Vocab }

// Step computes logits for the next token. An empty sequence is treated as a
// lone BOS token.
func (m *Model) Step(ctx context.Context, tokens []int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	last, prev := EOS, EOS
	if n := len(tokens); n > 0 {
		last = wrap(tokens[n-1])
		if n > 1 {
			prev = wrap(tokens[n-2])
		}
	}
	var h [Hidden]float32
	le := m.emb[last*Hidden : (last+1)*Hidden]
	pe := m.emb[prev*Hidden : (prev+1)*Hidden]
	for i := range h {
		h[i] = le[i] + 0.5*pe[i]
	}
	logits := make([]float32, Vocab)
	for i := 0; i < Hidden; i++ {
		row := m.w[i*Vocab : (i+1)*Vocab]
		hi := h[i]
		for j := range logits {
			logits[j] += hi * row[j]
		}
	}
	for j := range logits {
		logits[j] += m.bias[j]
	}
	return logits, nil
}

func wrap(tok int) int {
	tok %= Vocab
	if tok < 0 {
		tok += Vocab
	}
	return tok
}

// MemoryFootprint is the size of the float32 weights.
func (m *Model) MemoryFootprint() uint64 {
	return uint64(len(m.emb)+len(m.w)+len(m.bias)) * 4
}

func (m *Model) Close() error { return nil }
