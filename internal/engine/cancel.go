package engine

import "sync/atomic"

// canceller is the engine-wide cancellation flag. Each request captures the
// epoch when it becomes active; a bump after that point cancels it at its
// next token boundary. Requests admitted later start from the new epoch and
// are unaffected.
type canceller struct {
	epoch atomic.Uint64
}

func (c *canceller) current() uint64 { return c.epoch.Load() }

func (c *canceller) request() uint64 { return c.epoch.Add(1) }

func (c *canceller) cancelledSince(start uint64) bool { return c.epoch.Load() != start }
