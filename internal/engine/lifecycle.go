package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"narengine/pkg/types"
)

// Initialize validates cfg, loads the model and starts the scheduler. It is
// only allowed from Uninitialized; on failure the engine moves to Error and
// must be shut down before the next attempt.
func (e *Engine) Initialize(ctx context.Context, cfg types.Config) error {
	e.mu.Lock()
	if e.state != types.StatusUninitialized {
		e.mu.Unlock()
		return errAlreadyInitialized()
	}
	e.state = types.StatusInitializing
	e.err = ""
	e.mu.Unlock()

	rc, err := validateConfig(cfg)
	if err != nil {
		return e.initFailed(err)
	}
	if !e.userLog {
		l, closer, err := newLogger(rc.Config)
		if err != nil {
			return e.initFailed(newError(types.ErrInvalidParams, err, "open log file"))
		}
		e.mu.Lock()
		e.log, e.logCloser = l, closer
		e.mu.Unlock()
	}
	e.log.Info().Str("config", rc.String()).Msg("initializing engine")
	e.publish(Event{Name: EventInitStart, Fields: map[string]any{"model_path": rc.ModelPath}})

	model, err := e.loadModel(ctx, rc)
	if err != nil {
		return e.initFailed(err)
	}

	e.cancel.request()
	e.resetStats()
	sched := newScheduler(rc.capacity(), rc.workers(), rc.EnableThreadPool, e.cancel.current, e.queueDelta, e.activeDelta)

	e.mu.Lock()
	e.cfg = rc
	e.model = model
	e.modelMem = model.MemoryFootprint()
	e.gpuActive = rc.UseGPUAcceleration && gpuCompiled
	e.sched = sched
	e.readyAt = time.Now()
	e.state = types.StatusReady
	e.mu.Unlock()

	e.metrics.modelMemory.Set(float64(model.MemoryFootprint()))
	e.log.Info().Str("model", model.Name()).Int("capacity", rc.capacity()).Msg("engine ready")
	e.publish(Event{Name: EventInitReady, Model: model.Name()})
	return nil
}

func (e *Engine) initFailed(err error) error {
	e.fail(err.Error())
	e.log.Error().Err(err).Str("code", CodeOf(err).String()).Msg("initialization failed")
	e.publish(Event{Name: EventInitFailed, Fields: map[string]any{"error": err.Error()}})
	return err
}

// Shutdown cancels queued and running generations, waits for the workers to
// drain, releases the model and returns the engine to Uninitialized. A call
// while Uninitialized or already shutting down is a no-op.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.state == types.StatusUninitialized || e.state == types.StatusShuttingDown {
		e.mu.Unlock()
		return nil
	}
	e.state = types.StatusShuttingDown
	sched, model := e.sched, e.model
	e.mu.Unlock()

	e.log.Info().Msg("shutting down")
	e.publish(Event{Name: EventShutdownStart})

	var errs []error
	if sched != nil {
		done := make(chan struct{})
		go func() { sched.shutdown(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, errTimeout(ctx.Err()))
			<-done
		}
	}
	if model != nil {
		if err := model.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	e.mu.Lock()
	e.state = types.StatusUninitialized
	e.err = ""
	e.model = nil
	e.modelMem = 0
	e.gpuActive = false
	e.sched = nil
	e.readyAt = time.Time{}
	e.cfg = resolvedConfig{}
	log, closer := e.log, e.logCloser
	if closer != nil {
		e.log, e.logCloser = zerolog.Nop(), nil
	}
	e.mu.Unlock()
	e.metrics.modelMemory.Set(0)

	log.Info().Msg("engine stopped")
	e.publish(Event{Name: EventShutdownDone})
	if closer != nil {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cancel asks every running generation to stop at its next token boundary.
// Queued and future requests are unaffected.
func (e *Engine) Cancel() error {
	e.mu.RLock()
	state, log := e.state, e.log
	e.mu.RUnlock()
	if state == types.StatusUninitialized {
		return errNotInitialized()
	}
	epoch := e.cancel.request()
	e.metrics.cancels.Inc()
	log.Debug().Uint64("epoch", epoch).Msg("cancel requested")
	e.publish(Event{Name: EventCancelRequested, Fields: map[string]any{"epoch": epoch}})
	return nil
}
