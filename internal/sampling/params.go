// Package sampling turns generation parameters into a token-selection policy.
//
// The pipeline applied to each logits vector is fixed:
//
//  1. repetition penalty on the raw logits
//  2. temperature scaling (temperature 0 selects the argmax)
//  3. min-p, then typical-p filtering
//  4. top-k truncation
//  5. nucleus (top-p) truncation
//  6. mirostat truncation when enabled; modes 1 and 2 replace steps 4 and 5
//  7. a draw from the remaining distribution
//
// A Sampler owns its random source, so a fixed seed yields the same token
// sequence for the same logits.
package sampling

import (
	"fmt"
	"math"
)

// Defaults for fields left at zero.
const (
	DefaultRepeatLastN = 64
	DefaultMirostatTau = 5.0
	DefaultMirostatEta = 0.1
	// DeterministicSeed is used when determinism is requested without a seed.
	DeterministicSeed = 42
)

// Params are the fully resolved sampling settings for one request.
type Params struct {
	Temperature       float32
	TopK              int
	TopP              float32
	MinP              float32
	TypicalP          float32
	RepetitionPenalty float32
	RepeatLastN       int
	Mirostat          int
	MirostatTau       float32
	MirostatEta       float32
	Seed              uint32
	Deterministic     bool
}

// RangeError reports a parameter outside its documented range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s=%g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

func checkRange(field string, v float32, lo, hi float64) error {
	f := float64(v)
	if math.IsNaN(f) || f < lo || f > hi {
		return &RangeError{Field: field, Value: f, Min: lo, Max: hi}
	}
	return nil
}

// Validate rejects out-of-range values. It runs before any token is produced.
func (p Params) Validate() error {
	if err := checkRange("temperature", p.Temperature, 0, 2); err != nil {
		return err
	}
	if err := checkRange("top_p", p.TopP, 0, 1); err != nil {
		return err
	}
	if err := checkRange("min_p", p.MinP, 0, 1); err != nil {
		return err
	}
	if err := checkRange("typical_p", p.TypicalP, 0, 1); err != nil {
		return err
	}
	if err := checkRange("repetition_penalty", p.RepetitionPenalty, 0, math.MaxFloat32); err != nil {
		return err
	}
	if p.TopK < 0 {
		return &RangeError{Field: "top_k", Value: float64(p.TopK), Min: 0, Max: math.MaxInt32}
	}
	if p.Mirostat < 0 || p.Mirostat > 2 {
		return &RangeError{Field: "mirostat_mode", Value: float64(p.Mirostat), Min: 0, Max: 2}
	}
	if err := checkRange("mirostat_tau", p.MirostatTau, 0, math.MaxFloat32); err != nil {
		return err
	}
	if err := checkRange("mirostat_eta", p.MirostatEta, 0, math.MaxFloat32); err != nil {
		return err
	}
	return nil
}

// Normalize fills neutral values for fields left at zero.
func (p Params) Normalize() Params {
	if p.RepetitionPenalty == 0 {
		p.RepetitionPenalty = 1
	}
	if p.RepeatLastN <= 0 {
		p.RepeatLastN = DefaultRepeatLastN
	}
	if p.TopP == 0 {
		p.TopP = 1
	}
	if p.TypicalP == 0 {
		p.TypicalP = 1
	}
	if p.MirostatTau == 0 {
		p.MirostatTau = DefaultMirostatTau
	}
	if p.MirostatEta == 0 {
		p.MirostatEta = DefaultMirostatEta
	}
	return p
}

// EffectiveSeed returns the seed the sampler will use and whether it is
// reproducible. Seed 0 without determinism yields a fresh random seed.
func (p Params) EffectiveSeed(random func() int64) (int64, bool) {
	switch {
	case p.Seed != 0:
		return int64(p.Seed), true
	case p.Deterministic:
		return DeterministicSeed, true
	default:
		return random(), false
	}
}
