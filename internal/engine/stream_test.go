package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"narengine/pkg/types"
)

func TestStreamingHoldsBackStopPrefix(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"Hel", "lo", " wor", "ld", "!"}}, nil)
	p := params("hi")
	p.SetStopSequences("world")

	var events []types.StreamEvent
	res, err := e.GenerateStreaming(context.Background(), p, func(ev types.StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []types.StreamEvent{
		{PartialText: "Hel", TokenCount: 1},
		{PartialText: "Hello", TokenCount: 2},
		{PartialText: "Hello ", TokenCount: 3},
		{PartialText: "Hello ", TokenCount: 4, IsComplete: true},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %+v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
	if res.Text() != "Hello " || res.StopSequenceMatched != "world" {
		t.Fatalf("result %q matched %q", res.Text(), res.StopSequenceMatched)
	}
}

func TestStreamingHoldsBackPartialRune(t *testing.T) {
	// "é" split across two tokens
	e, _ := newTestEngine(t, &fakeModel{script: []string{"caf", "\xc3", "\xa9"}}, nil)
	var partials []string
	res, err := e.GenerateStreaming(context.Background(), params("hi"), func(ev types.StreamEvent) {
		partials = append(partials, ev.PartialText)
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Join(partials, "|") != "caf|café|café" {
		t.Fatalf("partials = %q", partials)
	}
	if res.Text() != "café" {
		t.Fatalf("text = %q", res.Text())
	}
}

func TestStreamingCompletesOnceOnCancel(t *testing.T) {
	fm := &fakeModel{script: []string{"x"}, loop: true, delay: 5 * time.Millisecond}
	e, _ := newTestEngine(t, fm, nil)
	p := params("hi")
	p.MaxTokens = 1000

	completes := 0
	last := types.StreamEvent{}
	count := 0
	sink := func(ev types.StreamEvent) {
		count++
		if ev.IsComplete {
			completes++
		}
		if last.IsComplete {
			t.Errorf("event after completion: %+v", ev)
		}
		last = ev
		if count == 3 {
			_ = e.Cancel()
		}
	}
	res, err := e.GenerateStreaming(context.Background(), p, sink)
	if !IsCancelled(err) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if completes != 1 || !last.IsComplete {
		t.Fatalf("completes=%d last=%+v", completes, last)
	}
	if last.PartialText != res.Text() || last.TokenCount != res.TokenCount {
		t.Fatalf("final event %+v does not match result %q/%d", last, res.Text(), res.TokenCount)
	}
}

func TestStreamingProfanityMaskedInPartials(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"well ", "damn", " ok"}}, nil)
	p := params("hi")
	p.EnableProfanityFilter = true
	var partials []string
	res, err := e.GenerateStreaming(context.Background(), p, func(ev types.StreamEvent) {
		partials = append(partials, ev.PartialText)
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, s := range partials {
		if strings.Contains(s, "damn") {
			t.Fatalf("unfiltered partial %q", s)
		}
	}
	if res.Text() != "well **** ok" || !res.ContentFiltered {
		t.Fatalf("result %q filtered=%v", res.Text(), res.ContentFiltered)
	}
}

func TestStreamingFilterWaitsForWholeWord(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"hell", "o world"}}, nil)
	p := params("hi")
	p.EnableProfanityFilter = true
	var partials []string
	res, err := e.GenerateStreaming(context.Background(), p, func(ev types.StreamEvent) {
		partials = append(partials, ev.PartialText)
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text() != "hello world" || res.ContentFiltered {
		t.Fatalf("result %q filtered=%v", res.Text(), res.ContentFiltered)
	}
	for _, s := range partials {
		if !strings.HasPrefix(res.Text(), s) {
			t.Fatalf("partial %q is not a prefix of %q (all: %q)", s, res.Text(), partials)
		}
	}
}

func TestStreamingUnsafeFilterHoldsBackDigits(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"ssn ", "123-", "45-", "67", "89", " ok"}}, nil)
	p := params("hi")
	p.ApplyContentFilter = true
	var partials []string
	res, err := e.GenerateStreaming(context.Background(), p, func(ev types.StreamEvent) {
		partials = append(partials, ev.PartialText)
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, s := range partials {
		if strings.ContainsAny(s, "0123456789") {
			t.Fatalf("partial leaks digits: %q", s)
		}
	}
	if res.Text() != "ssn [filtered] ok" || !res.ContentFiltered {
		t.Fatalf("result %q filtered=%v", res.Text(), res.ContentFiltered)
	}
}

func TestStreamChannel(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"a", "b", "c"}}, nil)
	s := e.Stream(context.Background(), params("hi"))
	var got []types.StreamEvent
	for ev := range s.Events() {
		got = append(got, ev)
	}
	res, err := s.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(got) != 4 || !got[3].IsComplete || got[3].PartialText != "abc" {
		t.Fatalf("events = %+v", got)
	}
	if res.Text() != "abc" {
		t.Fatalf("text = %q", res.Text())
	}
}

func TestStreamChannelRejectedRequest(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"a"}}, nil)
	s := e.Stream(context.Background(), params(""))
	for range s.Events() {
		t.Fatalf("event for rejected request")
	}
	if _, err := s.Wait(); !IsInvalidParams(err) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}
