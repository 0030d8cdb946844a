package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// scheduler admits generations in arrival order up to its capacity and runs
// each admitted job on a pool worker (or on the caller when the pool is
// disabled).
type scheduler struct {
	sem  *semaphore.Weighted
	base context.Context
	stop context.CancelFunc
	jobs chan func()

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	workers  sync.WaitGroup

	onQueue func(delta int)
	onRun   func(delta int)
	epoch   func() uint64
}

func newScheduler(capacity, workers int, pool bool, epoch func() uint64, onQueue, onRun func(int)) *scheduler {
	base, stop := context.WithCancel(context.Background())
	s := &scheduler{
		sem:     semaphore.NewWeighted(int64(capacity)),
		base:    base,
		stop:    stop,
		onQueue: onQueue,
		onRun:   onRun,
		epoch:   epoch,
	}
	if pool {
		s.jobs = make(chan func())
		for i := 0; i < workers; i++ {
			s.workers.Add(1)
			go s.worker()
		}
	}
	return s
}

func (s *scheduler) worker() {
	defer s.workers.Done()
	for job := range s.jobs {
		job()
	}
}

var errSchedulerClosed = errors.New("scheduler is shutting down")

// submit waits for admission, then runs job with a context that is cancelled
// when either ctx or the scheduler ends. The job receives the cancellation
// epoch observed at admission. submit returns once job has returned.
func (s *scheduler) submit(ctx context.Context, job func(ctx context.Context, epoch uint64)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errCancelled(errSchedulerClosed)
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stopAfter := context.AfterFunc(s.base, func() { cancel(errSchedulerClosed) })
	defer stopAfter()

	s.onQueue(1)
	err := s.sem.Acquire(ctx, 1)
	s.onQueue(-1)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, errSchedulerClosed) {
			return errCancelled(cause)
		}
		return err
	}
	defer s.sem.Release(1)

	epoch := s.epoch()
	s.onRun(1)
	defer s.onRun(-1)
	run := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("worker panic: %v", r)
			}
		}()
		job(ctx, epoch)
		return nil
	}
	if s.jobs == nil {
		return run()
	}
	done := make(chan error, 1)
	s.jobs <- func() { done <- run() }
	return <-done
}

// shutdown refuses new work, cancels queued and running jobs, and waits for
// every in-flight submit to return before stopping the workers.
func (s *scheduler) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.stop()
	s.inflight.Wait()
	if s.jobs != nil {
		close(s.jobs)
		s.workers.Wait()
	}
}

// shuttingDown reports whether a job's context was cancelled by shutdown.
func shuttingDown(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errSchedulerClosed)
}
