package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"narengine/pkg/types"
)

type metrics struct {
	generations *prometheus.CounterVec
	tokens      prometheus.Counter
	duration    prometheus.Histogram
	active      prometheus.Gauge
	queued      prometheus.Gauge
	modelMemory prometheus.Gauge
	cancels     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "narengine",
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Finished generation requests by result code",
			},
			[]string{"code"},
		),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "narengine",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Tokens generated",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "narengine",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Wall time of generation requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "narengine",
			Subsystem: "scheduler",
			Name:      "active_generations",
			Help:      "Generations running on a worker",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "narengine",
			Subsystem: "scheduler",
			Name:      "queued_generations",
			Help:      "Generations waiting for admission",
		}),
		modelMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "narengine",
			Subsystem: "model",
			Name:      "memory_bytes",
			Help:      "Memory held by the loaded model",
		}),
		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "narengine",
			Subsystem: "generation",
			Name:      "cancel_requests_total",
			Help:      "Engine-wide cancellation requests",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.generations, m.tokens, m.duration, m.active, m.queued, m.modelMemory, m.cancels)
	}
	return m
}

func (m *metrics) observe(code types.ResultCode, tokens uint32, d time.Duration) {
	m.generations.WithLabelValues(codeLabel(code)).Inc()
	m.tokens.Add(float64(tokens))
	m.duration.Observe(d.Seconds())
}

func codeLabel(c types.ResultCode) string {
	switch c {
	case types.Success:
		return "success"
	case types.ErrTimeout:
		return "timeout"
	case types.ErrCancelled:
		return "cancelled"
	case types.ErrInvalidParams:
		return "invalid_params"
	case types.ErrContextTooLong:
		return "context_too_long"
	case types.ErrOutOfMemory:
		return "out_of_memory"
	default:
		return "error"
	}
}
