// Package engine hosts a single loaded language model and serves generation
// requests against it. It is structured into small files by concern:
//
//   - engine.go: Engine type, options and constructor.
//   - config.go: configuration validation and defaults.
//   - lifecycle.go: Initialize, Shutdown and Cancel.
//   - loader.go: model file validation, loading, memory checks, warm-up.
//   - admission.go: FIFO admission and the worker pool.
//   - request.go: request validation and sampling defaults.
//   - infer.go: Generate/GenerateStreaming and the token loop.
//   - stop.go: per-token stop rules.
//   - stream.go: streaming delivery and the channel-based Stream.
//   - cancel.go: engine-wide cancellation epoch.
//   - status_report.go: status snapshot and counters.
//   - errors.go: Error and result-code mapping.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//
// Backends:
//
//   - bytelm (pure Go) is always available.
//   - llama.cpp is compiled in with `-tags=llama`; see internal/backend/llama.
//
// State machine: Uninitialized -> Initializing -> Ready <-> Generating ->
// ShuttingDown -> Uninitialized. A failed Initialize leaves the engine in
// Error until Shutdown.
package engine
