package sampling

import "math"

// mirostatM is the number of top candidates used to estimate the Zipf
// exponent in mirostat v1.
const mirostatM = 100

// mirostatV1 estimates the Zipf exponent of the distribution and converts the
// current surprise target into a top-k cutoff.
func (s *Sampler) mirostatV1(cands []candidate, vocab int) []candidate {
	m := min(mirostatM, len(cands))
	var num, den float64
	for i := 0; i < m-1; i++ {
		if cands[i+1].p <= 0 {
			break
		}
		t := math.Log(float64(i+2) / float64(i+1))
		b := math.Log(cands[i].p / cands[i+1].p)
		num += t * b
		den += t * t
	}
	sHat := 1.0
	if den > 0 {
		sHat = num / den
	}
	eps := sHat - 1
	k := float64(len(cands))
	if eps > 0 {
		k = math.Pow(eps*math.Pow(2, s.mu)/(1-math.Pow(float64(vocab), -eps)), 1/sHat)
	}
	kk := int(math.Round(k))
	kk = max(kk, 1)
	return topK(cands, kk)
}

// mirostatV2 drops candidates whose surprise exceeds the running target.
func (s *Sampler) mirostatV2(cands []candidate) []candidate {
	n := 0
	for n < len(cands) && -math.Log2(cands[n].p) <= s.mu {
		n++
	}
	n = max(n, 1)
	cands = cands[:n]
	renormalize(cands)
	return cands
}

// updateMu moves the surprise target toward tau after a draw.
func (s *Sampler) updateMu(p float64) {
	if p <= 0 {
		return
	}
	observed := -math.Log2(p)
	s.mu -= float64(s.p.MirostatEta) * (observed - float64(s.p.MirostatTau))
}
