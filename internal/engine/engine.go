package engine

import (
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"narengine/internal/backend"
	"narengine/internal/safety"
	"narengine/pkg/types"
)

// Engine hosts one loaded model and serves generation requests against it.
// Initialize and Shutdown must be serialized by the caller; every other
// method is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	state     types.EngineStatus
	err       string
	cfg       resolvedConfig
	model     backend.Model
	modelMem  uint64
	gpuActive bool
	readyAt   time.Time
	sched     *scheduler

	backend   backend.Backend
	log       zerolog.Logger
	userLog   bool
	logCloser io.Closer
	events    EventPublisher
	filter    *safety.Filter
	registry  *prometheus.Registry
	metrics   *metrics
	cancel    canceller

	statsMu sync.Mutex
	stats   stats
}

// stats are the counters behind the status report.
type stats struct {
	active    int
	queued    int
	completed uint64
	tokens    uint64
	totalTime time.Duration
	lastGen   time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithBackend selects the model runtime.
func WithBackend(b backend.Backend) Option { return func(e *Engine) { e.backend = b } }

// WithLogger installs a logger and disables the config-driven log sink.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l; e.userLog = true }
}

// WithEventPublisher installs a lifecycle event sink.
func WithEventPublisher(p EventPublisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

// WithFilter replaces the built-in content filter.
func WithFilter(f *safety.Filter) Option { return func(e *Engine) { e.filter = f } }

// WithRegistry registers the engine collectors on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option { return func(e *Engine) { e.registry = reg } }

// New constructs an uninitialized engine. Without WithBackend, Initialize
// fails with ModelLoadFailed.
func New(opts ...Option) *Engine {
	e := &Engine{
		state:  types.StatusUninitialized,
		log:    zerolog.Nop(),
		events: noopPublisher{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.filter == nil {
		e.filter = safety.Default()
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
	}
	e.metrics = newMetrics(e.registry)
	return e
}

// Gatherer exposes the engine's metrics for scraping.
func (e *Engine) Gatherer() prometheus.Gatherer { return e.registry }

// State returns the current lifecycle state.
func (e *Engine) State() types.EngineStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reportedState()
}

// reportedState folds active generations into the Ready state. Callers hold
// e.mu.
func (e *Engine) reportedState() types.EngineStatus {
	if e.state != types.StatusReady {
		return e.state
	}
	e.statsMu.Lock()
	active := e.stats.active
	e.statsMu.Unlock()
	if active > 0 {
		return types.StatusGenerating
	}
	return types.StatusReady
}

// Config returns the validated configuration of the running engine.
func (e *Engine) Config() types.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Config
}

func (e *Engine) publish(ev Event) {
	defer func() { _ = recover() }()
	e.events.Publish(ev)
}

// fail moves the engine into the Error state with msg.
func (e *Engine) fail(msg string) {
	e.mu.Lock()
	e.state = types.StatusError
	e.err = truncateMessage(msg)
	e.mu.Unlock()
}
