package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"narengine/pkg/types"
)

// stopDecision is the single reason a generation ended.
type stopDecision struct {
	reason types.StopReason
	// matched is the stop sequence, set only for StopSequence.
	matched string
	// cut is the text length to keep, or -1 to keep everything.
	cut int
}

func (d stopDecision) err(cause error) error {
	switch d.reason {
	case types.StopCancelled:
		return errCancelled(cause)
	case types.StopTimeout:
		return errTimeout(cause)
	}
	return nil
}

// stopEvaluator decides after every token whether generation ends. Checks
// run in priority order: cancellation, timeout, length limits, stop
// sequences, end of sequence.
type stopEvaluator struct {
	stops     []string
	maxTokens int
	window    int
	maxBytes  int
	deadline  time.Time
	cancel    *canceller
	epoch     uint64
}

// sortStops returns the non-empty stop sequences, longest first. Ties keep
// caller order.
func sortStops(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// interrupted checks the cancellation and timeout conditions only.
func (ev *stopEvaluator) interrupted(ctx context.Context) (stopDecision, bool) {
	if ev.cancel.cancelledSince(ev.epoch) || errors.Is(ctx.Err(), context.Canceled) {
		return stopDecision{reason: types.StopCancelled, cut: -1}, true
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (!ev.deadline.IsZero() && !time.Now().Before(ev.deadline)) {
		return stopDecision{reason: types.StopTimeout, cut: -1}, true
	}
	return stopDecision{}, false
}

// check evaluates every stop condition after a token. text is the
// accumulated output, prevLen its length before the token, generated the
// output token count and used the number of tokens in the context window.
func (ev *stopEvaluator) check(ctx context.Context, text string, prevLen, generated, used int, eos bool) (stopDecision, bool) {
	if d, ok := ev.interrupted(ctx); ok {
		return d, true
	}
	if generated >= ev.maxTokens || used >= ev.window {
		return stopDecision{reason: types.StopMaxTokens, cut: -1}, true
	}
	if len(text) >= ev.maxBytes {
		return stopDecision{reason: types.StopMaxTokens, cut: ev.maxBytes}, true
	}
	if i, s, ok := matchStop(text, prevLen, ev.stops); ok {
		return stopDecision{reason: types.StopSequence, matched: s, cut: i}, true
	}
	if eos {
		return stopDecision{reason: types.StopEndOfSequence, cut: -1}, true
	}
	return stopDecision{}, false
}

// matchStop finds the stop sequence that ends first after prevLen. When two
// end at the same byte the longer one wins.
func matchStop(text string, prevLen int, stops []string) (int, string, bool) {
	at, end, match := 0, -1, ""
	for _, s := range stops {
		from := max(prevLen-len(s)+1, 0)
		i := strings.Index(text[from:], s)
		if i < 0 {
			continue
		}
		i += from
		if e := i + len(s); end < 0 || e < end || (e == end && len(s) > len(match)) {
			at, end, match = i, e, s
		}
	}
	return at, match, end >= 0
}

// pendingStopPrefix returns how many trailing bytes of text could still grow
// into a stop sequence.
func pendingStopPrefix(text string, stops []string) int {
	hold := 0
	for _, s := range stops {
		for k := min(len(s)-1, len(text)); k > hold; k-- {
			if strings.HasSuffix(text, s[:k]) {
				hold = k
				break
			}
		}
	}
	return hold
}
