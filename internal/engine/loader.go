package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"narengine/internal/backend"
	"narengine/internal/common/fsutil"
	"narengine/internal/sampling"
	"narengine/pkg/types"
)

// MinModelFileSize is the smallest file accepted as model weights.
const MinModelFileSize = 1 << 20

const defaultValidationTTL = 30 * time.Second

var ggufMagic = []byte("GGUF")

// fileKey identifies one version of a file on disk.
type fileKey struct {
	path  string
	size  int64
	mtime int64
}

// fileValidator memoizes model file checks for a short TTL. A changed file
// gets a new key and is checked again.
type fileValidator struct {
	cache *ttlcache.Cache[fileKey, string]
}

func newFileValidator(ttl time.Duration) *fileValidator {
	return &fileValidator{
		cache: ttlcache.New[fileKey, string](
			ttlcache.WithTTL[fileKey, string](ttl),
			ttlcache.WithCapacity[fileKey, string](256),
		),
	}
}

var validator = newFileValidator(defaultValidationTTL)

// ValidateModelFile checks that path names a readable model file: it exists,
// is a regular file of at least MinModelFileSize bytes, and .gguf files carry
// the GGUF magic. The returned error is an *Error with code ModelNotFound or
// ModelLoadFailed.
func ValidateModelFile(path string) error {
	return validator.validate(path)
}

func (v *fileValidator) validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return errInvalidParams("model path is empty")
	}
	if len(path) > types.MaxModelPathLen {
		return errInvalidParams("model path exceeds %d bytes", types.MaxModelPathLen)
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return newError(types.ErrModelNotFound, err, "model file %s", path)
	}
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(types.ErrModelNotFound, nil, "model file not found: %s", path)
		}
		return newError(types.ErrModelLoadFailed, err, "stat model file")
	}
	key := fileKey{path: p, size: fi.Size(), mtime: fi.ModTime().UnixNano()}
	if it := v.cache.Get(key); it != nil {
		if msg := it.Value(); msg != "" {
			return newError(types.ErrModelLoadFailed, nil, "%s", msg)
		}
		return nil
	}
	msg := checkModelFile(p, fi)
	v.cache.Set(key, msg, ttlcache.DefaultTTL)
	if msg != "" {
		return newError(types.ErrModelLoadFailed, nil, "%s", msg)
	}
	return nil
}

// checkModelFile returns a failure message, or "" if the file is usable.
func checkModelFile(path string, fi os.FileInfo) string {
	if !fi.Mode().IsRegular() {
		return fmt.Sprintf("model path is not a regular file: %s", path)
	}
	if fi.Size() < MinModelFileSize {
		return fmt.Sprintf("model file too small (%d bytes)", fi.Size())
	}
	if !strings.EqualFold(filepath.Ext(path), ".gguf") {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("open model file: %v", err)
	}
	defer f.Close()
	head := make([]byte, len(ggufMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return fmt.Sprintf("read model header: %v", err)
	}
	if !bytes.Equal(head, ggufMagic) {
		return "model file is not in GGUF format"
	}
	return ""
}

// loadModel validates the file, loads it through the backend, enforces the
// memory limits and runs a short warm-up generation.
func (e *Engine) loadModel(ctx context.Context, cfg resolvedConfig) (backend.Model, error) {
	if e.backend == nil {
		return nil, newError(types.ErrModelLoadFailed, nil, "no model backend configured")
	}
	if err := ValidateModelFile(cfg.ModelPath); err != nil {
		return nil, err
	}
	path, _ := fsutil.ExpandHome(cfg.ModelPath)
	start := time.Now()
	m, err := e.backend.Load(ctx, path, backend.LoadOptions{
		ContextLength: int(cfg.ContextLength),
		Threads:       cfg.threads,
		GPU:           cfg.UseGPUAcceleration,
		MMap:          cfg.EnableMemoryMapping,
	})
	if err != nil {
		if errors.Is(err, backend.ErrOutOfMemory) {
			return nil, newError(types.ErrOutOfMemory, err, "load model")
		}
		return nil, newError(types.ErrModelLoadFailed, err, "load model with %s", e.backend.Name())
	}
	if err := checkMemory(m.MemoryFootprint(), cfg.MemoryLimitBytes); err != nil {
		_ = m.Close()
		return nil, err
	}
	e.log.Info().Str("backend", e.backend.Name()).Str("model", m.Name()).
		Uint64("bytes", m.MemoryFootprint()).Dur("dur", time.Since(start)).Msg("model loaded")

	if err := e.warmUp(ctx, m, cfg); err != nil {
		_ = m.Close()
		return nil, newError(types.ErrModelLoadFailed, err, "warm-up generation")
	}
	return m, nil
}

// checkMemory rejects a model larger than the configured limit or the memory
// currently available to the process.
func checkMemory(footprint, limit uint64) error {
	if limit > 0 && footprint > limit {
		return newError(types.ErrOutOfMemory, nil, "model needs %d bytes, limit is %d", footprint, limit)
	}
	if avail, ok := availableMemory(); ok && footprint > avail {
		return newError(types.ErrOutOfMemory, nil, "model needs %d bytes, %d available", footprint, avail)
	}
	return nil
}

const (
	warmUpPrompt = "Hello"
	warmUpTokens = 4
)

// warmUp runs a short greedy generation to prove the model produces output.
func (e *Engine) warmUp(ctx context.Context, m backend.Model, cfg resolvedConfig) error {
	toks, err := m.Tokenize(warmUpPrompt)
	if err != nil {
		return err
	}
	if p, ok := m.(backend.Predictor); ok {
		return p.Predict(ctx, warmUpPrompt, warmUpTokens, sampling.Params{TopK: 1}, func(string) bool { return true })
	}
	s := sampling.New(sampling.Params{Temperature: 0})
	for i := 0; i < warmUpTokens && len(toks) < int(cfg.ContextLength); i++ {
		logits, err := m.Step(ctx, toks)
		if err != nil {
			return err
		}
		id := s.Sample(logits, toks)
		if id == m.EOS() {
			break
		}
		toks = append(toks, id)
	}
	return nil
}
