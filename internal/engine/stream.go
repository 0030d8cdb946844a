package engine

import (
	"context"
	"unicode/utf8"

	"narengine/internal/safety"
	"narengine/pkg/types"
)

// Sink receives streaming events on the worker running the request. It must
// not block indefinitely; generation pauses while it runs.
type Sink func(types.StreamEvent)

// emitter delivers accumulated text to a sink. Text that may still turn into
// a stop sequence, incomplete UTF-8 runes and, when filtering, a trailing
// word the filter cannot judge yet are held back until resolved.
// The completion event is sent exactly once.
type emitter struct {
	sink   Sink
	stops  []string
	filter *safety.Stream
	sent   int
	done   bool
}

func newEmitter(sink Sink, stops []string, filter *safety.Stream) *emitter {
	return &emitter{sink: sink, stops: stops, filter: filter}
}

// token publishes the safe prefix of text if it grew.
func (em *emitter) token(text string, count int) {
	if em.sink == nil || em.done {
		return
	}
	n := len(text) - pendingStopPrefix(text, em.stops)
	if em.filter != nil {
		n = min(n, len(text)-em.filter.Pending(text))
	}
	n = completeRunes(text[:n])
	if n <= em.sent {
		return
	}
	em.sent = n
	out := text[:n]
	if em.filter != nil {
		out = em.filter.Apply(out)
	}
	em.sink(types.StreamEvent{PartialText: out, TokenCount: uint32(count)})
}

// complete sends the final event. Later calls do nothing.
func (em *emitter) complete(text string, count uint32) {
	if em.done {
		return
	}
	em.done = true
	if em.sink == nil {
		return
	}
	em.sink(types.StreamEvent{PartialText: text, TokenCount: count, IsComplete: true})
}

// completeRunes returns the length of s without a trailing partial rune.
func completeRunes(s string) int {
	n := len(s)
	for i := 1; i <= utf8.UTFMax && i <= n; i++ {
		c := s[n-i]
		if c < utf8.RuneSelf {
			return n
		}
		if utf8.RuneStart(c) {
			if utf8.FullRuneInString(s[n-i:]) {
				return n
			}
			return n - i
		}
	}
	return n
}

// Stream is a generation in progress whose partial results arrive on a
// channel. The channel is unbuffered: generation pauses until each event is
// received. Events must be drained until the channel closes.
type Stream struct {
	events chan types.StreamEvent
	done   chan struct{}
	res    *types.GeneratedText
	err    error
}

// Events yields partial results; the last one has IsComplete set.
func (s *Stream) Events() <-chan types.StreamEvent { return s.events }

// Wait blocks until the generation has finished and returns its outcome.
func (s *Stream) Wait() (*types.GeneratedText, error) {
	<-s.done
	return s.res, s.err
}

// Stream starts a streaming generation in the background.
func (e *Engine) Stream(ctx context.Context, p types.GenerateParams) *Stream {
	s := &Stream{
		events: make(chan types.StreamEvent),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.events)
		s.res, s.err = e.GenerateStreaming(ctx, p, func(ev types.StreamEvent) { s.events <- ev })
	}()
	return s
}
