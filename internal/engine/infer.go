package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"narengine/internal/backend"
	"narengine/internal/sampling"
	"narengine/pkg/types"
)

// Generate runs one generation to completion. On Timeout or Cancelled the
// partial result is returned together with the error.
func (e *Engine) Generate(ctx context.Context, p types.GenerateParams) (*types.GeneratedText, error) {
	return e.generate(ctx, p, nil)
}

// GenerateStreaming runs one generation and calls sink with the accumulated
// text as it grows. The final call has IsComplete set and is made exactly
// once for every request that passed validation.
func (e *Engine) GenerateStreaming(ctx context.Context, p types.GenerateParams, sink Sink) (*types.GeneratedText, error) {
	return e.generate(ctx, p, sink)
}

// session is what a generation needs from the current lifecycle state.
type session struct {
	cfg   resolvedConfig
	model backend.Model
	sched *scheduler
	log   zerolog.Logger
}

func (e *Engine) session() (session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch e.state {
	case types.StatusReady, types.StatusGenerating:
		return session{cfg: e.cfg, model: e.model, sched: e.sched, log: e.log}, nil
	case types.StatusShuttingDown:
		return session{}, errCancelled(errSchedulerClosed)
	case types.StatusError:
		return session{}, newError(types.ErrGenerationFailed, nil, "engine is in error state: %s", e.err)
	default:
		return session{}, errNotInitialized()
	}
}

func (e *Engine) generate(ctx context.Context, p types.GenerateParams, sink Sink) (*types.GeneratedText, error) {
	ss, err := e.session()
	if err != nil {
		return nil, err
	}
	cfg, m := ss.cfg, ss.model
	req, err := prepare(p, cfg, m)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()
	id := uuid.NewString()
	log := ss.log.With().Str("request_id", id).Logger()
	em := newEmitter(sink, req.stops, nil)
	if sink != nil && req.filter.Enabled() {
		em.filter = e.filter.NewStream(req.filter)
	}

	start := time.Now()
	var res *types.GeneratedText
	var genErr error
	err = ss.sched.submit(ctx, func(ctx context.Context, epoch uint64) {
		defer func() { em.complete(res.Text(), tokenCount(res)) }()
		e.publish(Event{Name: EventGenerationStart, Model: m.Name(), RequestID: id})
		res, genErr = e.run(ctx, req, cfg, m, epoch, em, log)
	})
	if err != nil {
		if genErr == nil {
			genErr = err
		}
		if CodeOf(err) == types.ErrUnknown {
			genErr = newError(types.ErrGenerationFailed, err, "generation aborted")
		}
	}
	em.complete(res.Text(), tokenCount(res))

	dur := time.Since(start)
	code := CodeOf(genErr)
	e.record(code, res, dur)
	e.publish(Event{Name: EventGenerationDone, Model: m.Name(), RequestID: id, Fields: map[string]any{
		"code": code.String(), "tokens": tokenCount(res), "dur": dur,
	}})
	ev := log.Debug()
	if genErr != nil && code != types.ErrCancelled && code != types.ErrTimeout {
		ev = log.Warn().Err(genErr)
	}
	ev.Str("code", code.String()).Uint32("tokens", tokenCount(res)).Dur("dur", dur).Msg("generation finished")
	return res, genErr
}

func tokenCount(g *types.GeneratedText) uint32 {
	if g == nil {
		return 0
	}
	return g.TokenCount
}

// generation accumulates one request's output and applies the stop rules.
type generation struct {
	ev      *stopEvaluator
	em      *emitter
	text    []byte
	tokens  int
	used    int
	stopped bool
	stop    stopDecision
}

// push appends a decoded piece and reports whether generation must end.
func (g *generation) push(ctx context.Context, piece string, eos bool) bool {
	prev := len(g.text)
	if !eos {
		g.text = append(g.text, piece...)
		g.tokens++
	}
	g.used++
	if d, ok := g.ev.check(ctx, string(g.text), prev, g.tokens, g.used, eos); ok {
		g.halt(d)
		return true
	}
	g.em.token(string(g.text), g.tokens)
	return false
}

func (g *generation) halt(d stopDecision) {
	g.stopped = true
	g.stop = d
	if d.cut >= 0 && d.cut < len(g.text) {
		g.text = g.text[:d.cut]
	}
}

// run executes the token loop on a worker.
func (e *Engine) run(ctx context.Context, req *request, cfg resolvedConfig, m backend.Model, epoch uint64, em *emitter, log zerolog.Logger) (*types.GeneratedText, error) {
	start := time.Now()
	g := &generation{
		ev: &stopEvaluator{
			stops:     req.stops,
			maxTokens: req.maxTokens,
			window:    int(cfg.ContextLength),
			maxBytes:  types.MaxResponseLen - 1,
			cancel:    &e.cancel,
			epoch:     epoch,
		},
		em:   em,
		used: len(req.tokens),
	}
	if dl, ok := ctx.Deadline(); ok {
		g.ev.deadline = dl
	}

	var err error
	if pr, ok := m.(backend.Predictor); ok {
		err = e.predict(ctx, pr, req, g)
	} else {
		err = e.step(ctx, m, req, g)
	}
	if err != nil {
		if errors.Is(err, backend.ErrOutOfMemory) {
			e.fail(err.Error())
			return nil, newError(types.ErrOutOfMemory, err, "generation")
		}
		return nil, newError(types.ErrGenerationFailed, err, "generation")
	}

	res := e.finish(g, req, cfg)
	res.PromptTokenCount = uint32(len(req.tokens))
	res.GenerationTime = time.Since(start)
	log.Debug().Str("stop", res.StopReason.String()).Int("prompt_tokens", len(req.tokens)).Msg("token loop done")
	return res, g.stop.err(ctx.Err())
}

// step drives backends that expose logits: sample, then evaluate the stop
// rules, once per token.
func (e *Engine) step(ctx context.Context, m backend.Model, req *request, g *generation) error {
	s := sampling.New(req.sampling)
	history := make([]int, len(req.tokens), len(req.tokens)+req.maxTokens)
	copy(history, req.tokens)
	eos := m.EOS()
	for !g.stopped {
		if d, ok := g.ev.interrupted(ctx); ok {
			g.halt(d)
			break
		}
		logits, err := m.Step(ctx, history)
		if err != nil {
			if d, ok := g.ev.interrupted(ctx); ok {
				g.halt(d)
				break
			}
			return err
		}
		id := s.Sample(logits, history)
		history = append(history, id)
		g.push(ctx, m.TokenText(id), id == eos)
	}
	return nil
}

// predict drives backends that sample internally. The stop rules still run
// on every decoded piece.
func (e *Engine) predict(ctx context.Context, pr backend.Predictor, req *request, g *generation) error {
	err := pr.Predict(ctx, req.prompt, req.maxTokens, req.sampling, func(piece string) bool {
		return !g.push(ctx, piece, false)
	})
	if g.stopped {
		return nil
	}
	if d, ok := g.ev.interrupted(ctx); ok {
		g.halt(d)
		return nil
	}
	if err != nil {
		return err
	}
	g.halt(stopDecision{reason: types.StopEndOfSequence, cut: -1})
	return nil
}

// finish builds the caller-owned result: trims a dangling partial rune,
// repairs invalid UTF-8 when validation is on and applies the content
// filter. Filtering never changes the stop reason.
func (e *Engine) finish(g *generation, req *request, cfg resolvedConfig) *types.GeneratedText {
	text := string(g.text)
	text = text[:completeRunes(text)]
	if cfg.ValidateUTF8 {
		text = strings.ToValidUTF8(text, "�")
	}
	filtered := false
	if req.filter.Enabled() {
		text, filtered = e.filter.Apply(text, req.filter)
	}
	res := types.NewGeneratedText(text)
	res.TokenCount = uint32(g.tokens)
	res.StopReason = g.stop.reason
	res.ContentFiltered = filtered
	if g.stop.reason == types.StopSequence {
		res.StopSequenceMatched = g.stop.matched
	}
	return res
}
