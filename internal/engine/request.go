package engine

import (
	"time"
	"unicode/utf8"

	"narengine/internal/backend"
	"narengine/internal/safety"
	"narengine/internal/sampling"
	"narengine/pkg/types"
)

// request is a validated generation request ready for admission.
type request struct {
	prompt    string
	tokens    []int
	maxTokens int
	stops     []string
	sampling  sampling.Params
	filter    safety.Options
	timeout   time.Duration
}

// prepare validates p against the engine config and tokenizes the prompt.
// Every rejection happens here, before admission, so a bad request leaves
// the counters untouched.
func prepare(p types.GenerateParams, cfg resolvedConfig, m backend.Model) (*request, error) {
	if p.Prompt == "" {
		return nil, errInvalidParams("prompt is empty")
	}
	if len(p.Prompt) > types.MaxPromptLen {
		return nil, errInvalidParams("prompt is %d bytes, limit is %d", len(p.Prompt), types.MaxPromptLen)
	}
	if len(p.Context) > types.MaxContextLen {
		return nil, newError(types.ErrContextTooLong, nil, "context is %d bytes, limit is %d", len(p.Context), types.MaxContextLen)
	}
	if p.StopSequenceCount > types.MaxStopSequences {
		return nil, errInvalidParams("stop_sequence_count %d exceeds %d", p.StopSequenceCount, types.MaxStopSequences)
	}
	if int(p.StopSequenceCount) > len(p.StopSequences) {
		return nil, errInvalidParams("stop_sequence_count %d but %d sequences given", p.StopSequenceCount, len(p.StopSequences))
	}
	stops := p.StopSequences[:p.StopSequenceCount]
	if cfg.ValidateUTF8 {
		if !utf8.ValidString(p.Prompt) || !utf8.ValidString(p.Context) {
			return nil, &Error{Code: types.ErrInvalidUTF8, Msg: "prompt or context is not valid UTF-8"}
		}
		for _, s := range stops {
			if !utf8.ValidString(s) {
				return nil, &Error{Code: types.ErrInvalidUTF8, Msg: "stop sequence is not valid UTF-8"}
			}
		}
	}

	sp := samplingParams(p, cfg)
	if err := sp.Validate(); err != nil {
		return nil, &Error{Code: types.ErrInvalidParams, Err: err}
	}

	prompt := p.Prompt
	if p.Context != "" {
		prompt = p.Context + "\n" + p.Prompt
	}
	toks, err := m.Tokenize(prompt)
	if err != nil {
		return nil, newError(types.ErrGenerationFailed, err, "tokenize prompt")
	}
	if len(toks) >= int(cfg.ContextLength) {
		return nil, newError(types.ErrContextTooLong, nil, "prompt is %d tokens, context window is %d", len(toks), cfg.ContextLength)
	}

	maxTokens := p.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.DefaultMaxTokens
	}
	timeout := cfg.timeout
	if p.TimeoutSeconds > 0 {
		timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	return &request{
		prompt:    prompt,
		tokens:    toks,
		maxTokens: int(maxTokens),
		stops:     sortStops(stops),
		sampling:  sp,
		filter: safety.Options{
			Unsafe:    cfg.EnableContentFiltering || p.ApplyContentFilter,
			Profanity: p.EnableProfanityFilter,
		},
		timeout: timeout,
	}, nil
}

// samplingParams resolves request overrides against the engine defaults.
// Zero fields select the default.
func samplingParams(p types.GenerateParams, cfg resolvedConfig) sampling.Params {
	sp := sampling.Params{
		Temperature:       p.Temperature,
		TopK:              int(p.TopK),
		TopP:              p.TopP,
		MinP:              p.MinP,
		TypicalP:          p.TypicalP,
		RepetitionPenalty: p.RepetitionPenalty,
		Mirostat:          int(p.MirostatMode),
		MirostatTau:       p.MirostatTau,
		MirostatEta:       p.MirostatEta,
		Seed:              p.Seed,
		Deterministic:     p.Deterministic,
	}
	if sp.Temperature == 0 {
		sp.Temperature = cfg.DefaultTemperature
	}
	if sp.TopK == 0 {
		sp.TopK = int(cfg.DefaultTopK)
	}
	if sp.TopP == 0 {
		sp.TopP = cfg.DefaultTopP
	}
	return sp
}
