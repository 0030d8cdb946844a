package sampling

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

type candidate struct {
	id    int
	logit float32
	p     float64
}

// Sampler draws token ids from logits according to Params.
type Sampler struct {
	p    Params
	rng  *rand.Rand
	seed int64
	// mirostat running surprise target
	mu    float64
	cands []candidate
	seen  map[int]struct{}
}

// New returns a sampler for already validated params.
func New(p Params) *Sampler {
	p = p.Normalize()
	seed, _ := p.EffectiveSeed(func() int64 { return time.Now().UnixNano() })
	return &Sampler{
		p:    p,
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
		mu:   2 * float64(p.MirostatTau),
		seen: make(map[int]struct{}),
	}
}

// Seed returns the seed driving the random source.
func (s *Sampler) Seed() int64 { return s.seed }

// Params returns the normalized parameters in use.
func (s *Sampler) Params() Params { return s.p }

// Sample selects the next token. logits is not modified; history holds the
// tokens seen so far (prompt and generated) for the repetition penalty.
func (s *Sampler) Sample(logits []float32, history []int) int {
	if len(logits) == 0 {
		return 0
	}
	cands := s.load(logits)
	s.penalize(cands, history)

	if s.p.Temperature <= 0 {
		return argmax(cands)
	}
	inv := 1 / s.p.Temperature
	for i := range cands {
		cands[i].logit *= inv
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].logit > cands[j].logit })
	softmax(cands)

	cands = minP(cands, s.p.MinP)
	cands = typical(cands, s.p.TypicalP)

	switch s.p.Mirostat {
	case 1:
		cands = s.mirostatV1(cands, len(logits))
	case 2:
		cands = s.mirostatV2(cands)
	default:
		cands = topK(cands, s.p.TopK)
		cands = topP(cands, s.p.TopP)
	}

	idx := s.draw(cands)
	if s.p.Mirostat != 0 {
		s.updateMu(cands[idx].p)
	}
	return cands[idx].id
}

func (s *Sampler) load(logits []float32) []candidate {
	if cap(s.cands) < len(logits) {
		s.cands = make([]candidate, len(logits))
	}
	cands := s.cands[:len(logits)]
	for i, l := range logits {
		cands[i] = candidate{id: i, logit: l}
	}
	return cands
}

// penalize applies the repetition penalty to tokens in the recent window.
func (s *Sampler) penalize(cands []candidate, history []int) {
	if s.p.RepetitionPenalty == 1 || len(history) == 0 {
		return
	}
	start := max(len(history)-s.p.RepeatLastN, 0)
	clear(s.seen)
	for _, id := range history[start:] {
		if id < 0 || id >= len(cands) {
			continue
		}
		if _, dup := s.seen[id]; dup {
			continue
		}
		s.seen[id] = struct{}{}
		if cands[id].logit > 0 {
			cands[id].logit /= s.p.RepetitionPenalty
		} else {
			cands[id].logit *= s.p.RepetitionPenalty
		}
	}
}

func (s *Sampler) draw(cands []candidate) int {
	var sum float64
	for _, c := range cands {
		sum += c.p
	}
	if sum <= 0 {
		return 0
	}
	r := s.rng.Float64() * sum
	var acc float64
	for i, c := range cands {
		acc += c.p
		if r < acc {
			return i
		}
	}
	return len(cands) - 1
}

func argmax(cands []candidate) int {
	best := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].logit > cands[best].logit {
			best = i
		}
	}
	return cands[best].id
}

// softmax fills p for candidates sorted by descending logit.
func softmax(cands []candidate) {
	maxv := float64(cands[0].logit)
	var sum float64
	for i := range cands {
		e := math.Exp(float64(cands[i].logit) - maxv)
		cands[i].p = e
		sum += e
	}
	for i := range cands {
		cands[i].p /= sum
	}
}

func renormalize(cands []candidate) {
	var sum float64
	for _, c := range cands {
		sum += c.p
	}
	if sum <= 0 {
		return
	}
	for i := range cands {
		cands[i].p /= sum
	}
}

// minP drops candidates whose probability is below minP times the best one.
func minP(cands []candidate, minP float32) []candidate {
	if minP <= 0 || len(cands) <= 1 {
		return cands
	}
	threshold := cands[0].p * float64(minP)
	n := 1
	for n < len(cands) && cands[n].p >= threshold {
		n++
	}
	cands = cands[:n]
	renormalize(cands)
	return cands
}

// typical keeps the smallest set of tokens whose surprise is closest to the
// distribution entropy and whose mass reaches typicalP.
func typical(cands []candidate, typicalP float32) []candidate {
	if typicalP >= 1 || len(cands) <= 1 {
		return cands
	}
	var entropy float64
	for _, c := range cands {
		if c.p > 0 {
			entropy -= c.p * math.Log(c.p)
		}
	}
	shifted := make([]candidate, len(cands))
	copy(shifted, cands)
	score := func(c candidate) float64 {
		if c.p <= 0 {
			return math.Inf(1)
		}
		return math.Abs(-math.Log(c.p) - entropy)
	}
	sort.SliceStable(shifted, func(i, j int) bool { return score(shifted[i]) < score(shifted[j]) })
	var acc float64
	n := len(shifted)
	for i, c := range shifted {
		acc += c.p
		if acc >= float64(typicalP) {
			n = i + 1
			break
		}
	}
	kept := shifted[:n]
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].p > kept[j].p })
	copy(cands, kept)
	cands = cands[:n]
	renormalize(cands)
	return cands
}

func topK(cands []candidate, k int) []candidate {
	if k <= 0 || k >= len(cands) {
		return cands
	}
	cands = cands[:k]
	renormalize(cands)
	return cands
}

func topP(cands []candidate, p float32) []candidate {
	if p >= 1 || len(cands) <= 1 {
		return cands
	}
	var acc float64
	for i, c := range cands {
		acc += c.p
		if acc >= float64(p) {
			cands = cands[:i+1]
			break
		}
	}
	renormalize(cands)
	return cands
}
