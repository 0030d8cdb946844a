package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordGenerations(t *testing.T) {
	e, _ := newTestEngine(t, &fakeModel{script: []string{"a", "b"}}, nil)
	if _, err := e.Generate(context.Background(), params("hi")); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := testutil.ToFloat64(e.metrics.tokens); got != 2 {
		t.Fatalf("tokens = %v", got)
	}
	if got := testutil.ToFloat64(e.metrics.generations.WithLabelValues("success")); got != 1 {
		t.Fatalf("success = %v", got)
	}
	if got := testutil.ToFloat64(e.metrics.modelMemory); got != 1024 {
		t.Fatalf("model memory = %v", got)
	}
	mfs, err := e.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "narengine_generation_tokens_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("tokens counter not exposed")
	}
}
