package engine

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"narengine/pkg/types"
)

// Limits applied by validateConfig.
const (
	maxContextLength   = 32768
	defaultContextLen  = 2048
	maxBatchSize       = 64
	maxThreads         = 64
	defaultMaxTokens   = 256
	defaultTimeoutSecs = 30
)

// resolvedConfig is a validated configuration with defaults filled in.
type resolvedConfig struct {
	types.Config
	threads int
	timeout time.Duration
}

// validateConfig checks cfg and fills defaults for unspecified fields. It
// never touches the file system; the model file is checked by the loader.
func validateConfig(cfg types.Config) (resolvedConfig, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return resolvedConfig{}, errInvalidParams("model_path is required")
	}
	if len(cfg.ModelPath) > types.MaxModelPathLen {
		return resolvedConfig{}, errInvalidParams("model_path exceeds %d bytes", types.MaxModelPathLen)
	}
	switch {
	case cfg.ContextLength == 0:
		cfg.ContextLength = defaultContextLen
	case cfg.ContextLength > maxContextLength:
		return resolvedConfig{}, errInvalidParams("context_length %d out of range (0, %d]", cfg.ContextLength, maxContextLength)
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = 1
	}
	if cfg.MaxBatchSize > maxBatchSize {
		cfg.MaxBatchSize = maxBatchSize
	}
	if cfg.NumThreads == 0 {
		cfg.NumThreads = uint32(runtime.NumCPU())
	}
	if cfg.NumThreads > maxThreads {
		cfg.NumThreads = maxThreads
	}
	if err := checkUnit("default_temperature", cfg.DefaultTemperature, 2); err != nil {
		return resolvedConfig{}, err
	}
	if err := checkUnit("default_top_p", cfg.DefaultTopP, 1); err != nil {
		return resolvedConfig{}, err
	}
	if cfg.DefaultMaxTokens == 0 {
		cfg.DefaultMaxTokens = defaultMaxTokens
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = defaultTimeoutSecs
	}
	return resolvedConfig{
		Config:  cfg,
		threads: int(cfg.NumThreads),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

func checkUnit(field string, v float32, hi float32) error {
	if math.IsNaN(float64(v)) || v < 0 || v > hi {
		return errInvalidParams("%s %v out of range [0, %v]", field, v, hi)
	}
	return nil
}

// capacity is the number of generations that may be active at once.
func (c resolvedConfig) capacity() int {
	return max(int(c.MaxBatchSize), 1)
}

// workers sizes the pool so every admitted generation has a goroutine.
func (c resolvedConfig) workers() int {
	return max(c.threads, c.capacity())
}

func (c resolvedConfig) String() string {
	return fmt.Sprintf("model=%s ctx=%d batch=%d threads=%d pool=%t gpu=%t",
		c.ModelPath, c.ContextLength, c.MaxBatchSize, c.threads, c.EnableThreadPool, c.UseGPUAcceleration)
}
