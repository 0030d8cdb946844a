package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"narengine/internal/backend"
	"narengine/pkg/types"
)

// createModelFile creates a file of sizeMB megabytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return p
}

const fakeEOS = 256

// fakeBackend hands out a single scripted model.
type fakeBackend struct {
	model   *fakeModel
	loadErr error
	loads   atomic.Int32
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Load(ctx context.Context, path string, opts backend.LoadOptions) (backend.Model, error) {
	b.loads.Add(1)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.model, nil
}

// fakeModel tokenizes bytes and emits script pieces in order, one token per
// piece, then EOS (or cycles when loop is set). The next piece is picked by
// counting script tokens already in the sequence, so prompts never affect
// the output.
type fakeModel struct {
	script    []string
	loop      bool
	delay     time.Duration
	gate      chan struct{}
	stepErr   error
	panicMsg  string
	footprint uint64

	steps  atomic.Int32
	closed atomic.Bool
}

func (f *fakeModel) Name() string { return "fake-model" }

func (f *fakeModel) Tokenize(text string) ([]int, error) {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out, nil
}

func (f *fakeModel) TokenText(id int) string {
	switch {
	case id < fakeEOS:
		return string([]byte{byte(id)})
	case id == fakeEOS:
		return ""
	default:
		return f.script[id-fakeEOS-1]
	}
}

func (f *fakeModel) EOS() int { return fakeEOS }

func (f *fakeModel) VocabSize() int { return fakeEOS + 1 + len(f.script) }

func (f *fakeModel) Step(ctx context.Context, tokens []int) ([]float32, error) {
	f.steps.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.stepErr != nil {
		return nil, f.stepErr
	}
	gen := 0
	for _, t := range tokens {
		if t > fakeEOS {
			gen++
		}
	}
	next := fakeEOS
	if n := len(f.script); n > 0 {
		if gen < n {
			next = fakeEOS + 1 + gen
		} else if f.loop {
			next = fakeEOS + 1 + gen%n
		}
	}
	logits := make([]float32, f.VocabSize())
	logits[next] = 30
	return logits, nil
}

func (f *fakeModel) MemoryFootprint() uint64 {
	if f.footprint == 0 {
		return 1024
	}
	return f.footprint
}

func (f *fakeModel) Close() error {
	f.closed.Store(true)
	return nil
}

// newTestEngine initializes an engine over fm and shuts it down on cleanup.
func newTestEngine(t *testing.T, fm *fakeModel, mutate func(*types.Config)) (*Engine, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	e := New(WithBackend(&fakeBackend{model: fm}), WithEventPublisher(pub), WithLogger(zerolog.Nop()))
	cfg := types.DefaultConfig()
	cfg.ModelPath = createModelFile(t, t.TempDir(), "fake.bin", 1)
	cfg.NumThreads = 4
	if mutate != nil {
		mutate(&cfg)
	}
	if err := e.Initialize(testCtx(t), cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return e, pub
}

func params(prompt string) types.GenerateParams {
	p := types.DefaultGenerateParams()
	p.Prompt = prompt
	return p
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
