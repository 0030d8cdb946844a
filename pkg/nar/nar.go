// Package nar is the stable call boundary of the text-generation engine. It
// mirrors the host ABI one-for-one: every operation returns a
// types.ResultCode, results are caller-owned and released with
// FreeGeneratedText, and one engine serves the whole process.
//
// InitEngine and ShutdownEngine must not be called concurrently with each
// other. Everything else is safe for concurrent use.
package nar

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"narengine/internal/backend"
	"narengine/internal/backend/bytelm"
	"narengine/internal/backend/llama"
	"narengine/internal/engine"
	"narengine/pkg/types"
)

var eng = engine.New(engine.WithBackend(defaultBackend()))

// defaultBackend prefers llama.cpp when it is compiled in.
func defaultBackend() backend.Backend {
	if llama.Built {
		return llama.New()
	}
	return bytelm.New()
}

// StreamingCallback receives the accumulated text, the token count so far
// and whether this is the final call. userData is passed through unchanged.
type StreamingCallback func(partialText string, tokenCount uint32, isComplete bool, userData any)

// guard converts a panic into ErrUnknown so nothing unwinds past the
// boundary.
func guard(code *types.ResultCode) {
	if r := recover(); r != nil {
		*code = types.ErrUnknown
	}
}

// InitEngine validates cfg and loads the model. It fails with
// ErrEngineAlreadyInitialized unless the engine is uninitialized.
func InitEngine(cfg types.Config) (code types.ResultCode) {
	defer guard(&code)
	return engine.CodeOf(eng.Initialize(context.Background(), cfg))
}

// Generate runs one request to completion. On ErrTimeout and ErrCancelled the
// partial result is returned as well.
func Generate(p types.GenerateParams) (res *types.GeneratedText, code types.ResultCode) {
	defer guard(&code)
	res, err := eng.Generate(context.Background(), p)
	return res, engine.CodeOf(err)
}

// GenerateStreaming runs one request and invokes cb synchronously as the
// output grows. The final invocation has isComplete set and happens exactly
// once for every request that passed validation. A nil cb is rejected.
func GenerateStreaming(p types.GenerateParams, cb StreamingCallback, userData any) (res *types.GeneratedText, code types.ResultCode) {
	defer guard(&code)
	if cb == nil {
		return nil, types.ErrInvalidParams
	}
	res, err := eng.GenerateStreaming(context.Background(), p, func(ev types.StreamEvent) {
		cb(ev.PartialText, ev.TokenCount, ev.IsComplete, userData)
	})
	return res, engine.CodeOf(err)
}

// FreeGeneratedText releases *res and sets it to nil. Freeing an already
// released (nil) result is a no-op.
func FreeGeneratedText(res **types.GeneratedText) types.ResultCode {
	if res == nil {
		return types.ErrInvalidParams
	}
	if *res != nil {
		(*res).Free()
		*res = nil
	}
	return types.Success
}

// GetStatus returns a snapshot of the engine. Before InitEngine the snapshot
// reports Uninitialized and the code is ErrEngineNotInitialized.
func GetStatus() (types.StatusReport, types.ResultCode) {
	st := eng.Status()
	if st.Status == types.StatusUninitialized {
		return st, types.ErrEngineNotInitialized
	}
	return st, types.Success
}

// ShutdownEngine drains and releases the engine. It is idempotent.
func ShutdownEngine() (code types.ResultCode) {
	defer guard(&code)
	return engine.CodeOf(eng.Shutdown(context.Background()))
}

// GetVersion returns the library version.
func GetVersion() (major, minor, patch int) { return engine.Version() }

// VersionString returns the version as "major.minor.patch".
func VersionString() string { return engine.VersionString() }

// DescribeError returns the static description of code.
func DescribeError(code types.ResultCode) string { return engine.DescribeError(code) }

// CancelGeneration asks the running generations to stop at their next token.
func CancelGeneration() types.ResultCode { return engine.CodeOf(eng.Cancel()) }

// CheckGPUSupport reports whether this build can use GPU acceleration.
func CheckGPUSupport() bool { return engine.GPUSupported() }

// ValidateModelFile checks path without loading it. On failure the message
// says why.
func ValidateModelFile(path string) (bool, string) {
	if err := engine.ValidateModelFile(path); err != nil {
		return false, engine.Message(err)
	}
	return true, ""
}

// DefaultConfig returns a configuration populated with safe defaults.
func DefaultConfig() types.Config { return types.DefaultConfig() }

// DefaultGenerateParams returns request parameters populated with safe
// defaults.
func DefaultGenerateParams() types.GenerateParams { return types.DefaultGenerateParams() }

// Metrics exposes the engine's Prometheus collectors.
func Metrics() prometheus.Gatherer { return eng.Gatherer() }

// Engine returns the process-wide engine for in-process diagnostics.
func Engine() *engine.Engine { return eng }
