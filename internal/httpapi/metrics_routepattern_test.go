package httpapi

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"narengine/pkg/types"
)

// TestMetricsMiddleware_UsesRoutePattern ensures requests are labelled by the
// chi route pattern instead of the raw URL path.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewMux(newMockService(types.StatusReady), Options{Registry: reg})

	get(t, h, "/status")
	get(t, h, "/status")

	n, err := testutil.GatherAndCount(reg, "narengine_http_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected http request series, got %d", n)
	}
	var found bool
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "narengine_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "path" && lp.GetValue() == "/status" && m.GetCounter().GetValue() == 2 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected path=/status with count 2")
	}
}
