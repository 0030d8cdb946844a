package engine

import (
	"runtime"
	"time"

	"narengine/pkg/types"
)

var statusMessages = map[types.EngineStatus]string{
	types.StatusUninitialized: "Engine not initialized",
	types.StatusInitializing:  "Loading model",
	types.StatusReady:         "Engine ready",
	types.StatusGenerating:    "Generating text",
	types.StatusError:         "Engine error",
	types.StatusShuttingDown:  "Shutting down",
}

// Status returns a point-in-time copy of the engine state. It never waits on
// running generations.
func (e *Engine) Status() types.StatusReport {
	e.mu.RLock()
	state := e.state
	rep := types.StatusReport{
		ModelMemoryUsageBytes: e.modelMem,
		GPUAccelerationActive: e.gpuActive,
		ContextLength:         e.cfg.ContextLength,
	}
	if e.model != nil {
		rep.ModelName = e.model.Name()
	}
	if state == types.StatusError {
		rep.ErrorMessage = e.err
	}
	if !e.readyAt.IsZero() {
		rep.UptimeSeconds = int64(time.Since(e.readyAt).Seconds())
	}
	e.mu.RUnlock()

	e.statsMu.Lock()
	st := e.stats
	e.statsMu.Unlock()

	if state == types.StatusReady && st.active > 0 {
		state = types.StatusGenerating
	}
	rep.Status = state
	rep.StatusMessage = statusMessages[state]
	rep.ActiveGenerations = uint32(st.active)
	rep.QueuedGenerations = uint32(st.queued)
	rep.TotalGenerationsCompleted = st.completed
	rep.TotalTokensGenerated = st.tokens
	if st.completed > 0 {
		rep.AverageGenerationTimeSeconds = float32(st.totalTime.Seconds() / float64(st.completed))
	}
	if !st.lastGen.IsZero() {
		rep.LastGenerationTimestamp = st.lastGen.Unix()
	}
	if rep.ModelMemoryUsageBytes > 0 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		rep.TotalMemoryUsageBytes = rep.ModelMemoryUsageBytes + ms.HeapInuse
	}
	return rep
}

func (e *Engine) queueDelta(d int) {
	e.statsMu.Lock()
	e.stats.queued += d
	n := e.stats.queued
	e.statsMu.Unlock()
	e.metrics.queued.Set(float64(n))
}

func (e *Engine) activeDelta(d int) {
	e.statsMu.Lock()
	e.stats.active += d
	n := e.stats.active
	e.statsMu.Unlock()
	e.metrics.active.Set(float64(n))
}

// record folds a finished request into the counters. Only successful
// generations count as completed and feed the average time; tokens from
// cancelled or timed-out runs are still counted.
func (e *Engine) record(code types.ResultCode, res *types.GeneratedText, d time.Duration) {
	tokens := tokenCount(res)
	e.statsMu.Lock()
	e.stats.tokens += uint64(tokens)
	if code == types.Success {
		e.stats.completed++
		e.stats.totalTime += d
	}
	if res != nil {
		e.stats.lastGen = time.Now()
	}
	e.statsMu.Unlock()
	e.metrics.observe(code, tokens, d)
}

func (e *Engine) resetStats() {
	e.statsMu.Lock()
	e.stats = stats{}
	e.statsMu.Unlock()
	e.metrics.active.Set(0)
	e.metrics.queued.Set(0)
}
