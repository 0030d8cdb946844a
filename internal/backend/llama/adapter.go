//go:build llama

package llama

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"narengine/internal/backend"
	"narengine/internal/sampling"
)

// Built indicates this binary was compiled with real llama support.
const Built = true

// gpuLayers offloads every layer when GPU acceleration is requested.
const gpuLayers = 999

// Backend loads GGUF models in-process through go-llama.cpp.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "llama.cpp" }

func (*Backend) Load(ctx context.Context, path string, opts backend.LoadOptions) (backend.Model, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{
		llama.SetContext(opts.ContextLength),
		llama.SetMMap(opts.MMap),
	}
	if opts.GPU {
		mo = append(mo, llama.SetGPULayers(gpuLayers))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	return &model{
		llm:     m,
		name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		threads: opts.Threads,
		size:    uint64(fi.Size()),
	}, nil
}

// model owns one llama context. llama.cpp contexts are not reentrant, so
// predictions are serialized.
type model struct {
	mu      sync.Mutex
	llm     *llama.LLama
	name    string
	threads int
	size    uint64
}

func (m *model) Name() string { return m.name }

func (m *model) Tokenize(text string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.llm == nil {
		return nil, errors.New("llama model not initialized")
	}
	_, toks, err := m.llm.TokenizeString(text)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(toks))
	for i, t := range toks {
		out[i] = int(t)
	}
	return out, nil
}

// TokenText is not exposed by the binding; generation goes through Predict.
func (m *model) TokenText(int) string { return "" }

func (m *model) EOS() int { return -1 }

func (m *model) VocabSize() int { return 0 }

func (m *model) Step(context.Context, []int) ([]float32, error) {
	return nil, errors.New("llama: per-step logits not exposed; use Predict")
}

// MemoryFootprint estimates resident size from the weights file.
func (m *model) MemoryFootprint() uint64 { return m.size }

func (m *model) Predict(ctx context.Context, prompt string, maxTokens int, p sampling.Params, onToken func(string) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.llm == nil {
		return errors.New("llama model not initialized")
	}
	m.llm.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return onToken(tok)
	})
	_, err := m.llm.Predict(prompt, predictOptions(p, maxTokens, m.threads)...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (m *model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.llm != nil {
		m.llm.Free()
		m.llm = nil
	}
	return nil
}

// predictOptions converts sampling parameters into go-llama.cpp options.
func predictOptions(p sampling.Params, maxTokens, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, maxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTemperature(p.Temperature),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetPenalty(zf(p.RepetitionPenalty, llama.DefaultOptions.Penalty)),
		llama.SetRepeat(zn(p.RepeatLastN, llama.DefaultOptions.Repeat)),
		llama.SetTypicalP(zf(p.TypicalP, 1)),
	}
	if p.Mirostat > 0 {
		po = append(po,
			llama.SetMirostat(p.Mirostat),
			llama.SetMirostatTAU(p.MirostatTau),
			llama.SetMirostatETA(p.MirostatEta),
		)
	}
	// -1 lets llama.cpp pick its own seed.
	seed, _ := p.EffectiveSeed(func() int64 { return -1 })
	return append(po, llama.SetSeed(int(seed)))
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
