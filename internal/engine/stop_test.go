package engine

import (
	"context"
	"testing"
	"time"

	"narengine/pkg/types"
)

func TestMatchStopOnlyConsidersNewText(t *testing.T) {
	stops := sortStops([]string{"ab", "", "xab"})
	if len(stops) != 2 || stops[0] != "xab" {
		t.Fatalf("sorted = %q", stops)
	}
	// "ab" ended before the new token: ignored
	if _, _, ok := matchStop("ab cd", 3, stops); ok {
		t.Fatalf("matched stale text")
	}
	i, s, ok := matchStop("zz xab", 5, stops)
	if !ok || s != "xab" || i != 3 {
		t.Fatalf("got %d %q %v", i, s, ok)
	}
}

func TestMatchStopPrefersEarliestEnd(t *testing.T) {
	stops := sortStops([]string{"y", "xyz"})
	i, s, ok := matchStop("ayxyz", 0, stops)
	if !ok || s != "y" || i != 1 {
		t.Fatalf("got %d %q %v", i, s, ok)
	}
	// same end: the longer sequence wins
	stops = sortStops([]string{"yz", "xyz"})
	i, s, ok = matchStop("axyz", 0, stops)
	if !ok || s != "xyz" || i != 1 {
		t.Fatalf("got %d %q %v", i, s, ok)
	}
}

func TestPendingStopPrefix(t *testing.T) {
	stops := []string{"</end>", "##"}
	cases := map[string]int{
		"hello":     0,
		"hello </e": 3,
		"hello #":   1,
		"hello <":   1,
		"":          0,
	}
	for text, want := range cases {
		if got := pendingStopPrefix(text, stops); got != want {
			t.Fatalf("pendingStopPrefix(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestCompleteRunes(t *testing.T) {
	cases := map[string]int{
		"abc":           3,
		"caf\xc3":       3,
		"café":          5,
		"\xe2\x82":      0,
		"x\xe2\x82\xac": 4,
	}
	for s, want := range cases {
		if got := completeRunes(s); got != want {
			t.Fatalf("completeRunes(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestStopEvaluatorPriority(t *testing.T) {
	c := &canceller{}
	ev := &stopEvaluator{stops: []string{"end"}, maxTokens: 3, window: 100, maxBytes: 1000, cancel: c, epoch: c.current()}
	ctx := context.Background()

	// max tokens beats a stop sequence and EOS on the same token
	d, ok := ev.check(ctx, "the end", 4, 3, 10, true)
	if !ok || d.reason != types.StopMaxTokens {
		t.Fatalf("got %+v", d)
	}
	// stop sequence beats EOS
	d, _ = ev.check(ctx, "the end", 4, 2, 10, true)
	if d.reason != types.StopSequence || d.cut != 4 {
		t.Fatalf("got %+v", d)
	}
	// timeout beats length
	ev.deadline = time.Now().Add(-time.Second)
	d, _ = ev.check(ctx, "x", 0, 3, 10, false)
	if d.reason != types.StopTimeout {
		t.Fatalf("got %+v", d)
	}
	// cancellation beats everything
	c.request()
	d, _ = ev.check(ctx, "x", 0, 3, 10, true)
	if d.reason != types.StopCancelled {
		t.Fatalf("got %+v", d)
	}
	if err := d.err(nil); !IsCancelled(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestStopEvaluatorResponseLimit(t *testing.T) {
	c := &canceller{}
	ev := &stopEvaluator{maxTokens: 100, window: 100, maxBytes: 4, cancel: c, epoch: c.current()}
	d, ok := ev.check(context.Background(), "abcdef", 3, 2, 2, false)
	if !ok || d.reason != types.StopMaxTokens || d.cut != 4 {
		t.Fatalf("got %+v", d)
	}
}
