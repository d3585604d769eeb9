package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/lifecycle"
)

// errShutdown is the cancel cause of runs stopped by Shutdown.
var errShutdown = errors.New("shutdown")

type execution struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

func (x *execution) finish() {
	x.cancel(nil)
	close(x.done)
}

func (x *execution) finished() bool {
	select {
	case <-x.done:
		return true
	default:
		return false
	}
}

func (e *Engine) track(ctx context.Context, id uuid.UUID) (context.Context, *execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.running[id]; ok && !prev.finished() {
		return nil, nil, fmt.Errorf("%w: task %s is already running", ErrInvalidStatus, id)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	exec := &execution{cancel: cancel, done: make(chan struct{})}
	e.running[id] = exec
	return runCtx, exec, nil
}

// Queue appends t to the FIFO and wakes the worker.
func (e *Engine) Queue(t Task) {
	e.mu.Lock()
	e.queue = append(e.queue, t)
	size := len(e.queue)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}

	e.logger.Info("task queued", "id", t.ID, "title", t.Title, "queue_size", size)
}

// ProcessQueue drains the queue, starting each task as its own tracked
// run. It returns without waiting for the runs.
func (e *Engine) ProcessQueue(ctx context.Context) {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.spawn(ctx, t)
		e.Sweep()
	}
}

func (e *Engine) spawn(ctx context.Context, t Task) {
	runCtx, exec, err := e.track(ctx, t.ID)
	if err != nil {
		e.logger.Warn("skip queued task", "id", t.ID, "error", err)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer exec.finish()

		if _, err := e.run(runCtx, t, nil); err != nil {
			e.logger.Warn("queued task run", "id", t.ID, "error", err)
		}
	}()
}

// Sweep forgets runs that have finished.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, exec := range e.running {
		if exec.finished() {
			delete(e.running, id)
		}
	}
}

// Cancel stops the tracked run of id and forgets it. The result of a
// cancelled run is not applied; a task still in progress is recorded as
// failed with error "cancelled". It reports whether a run was tracked.
func (e *Engine) Cancel(id uuid.UUID) bool {
	e.mu.Lock()
	exec, ok := e.running[id]
	delete(e.running, id)
	e.mu.Unlock()

	if !ok {
		return false
	}

	exec.cancel(ErrCancelled)
	e.logger.Info("task run cancelled", "id", id)
	return true
}

// Running returns the ids of tracked runs that have not finished.
func (e *Engine) Running() []uuid.UUID {
	e.Sweep()

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(e.running))
	for id := range e.running {
		ids = append(ids, id)
	}
	return ids
}

// QueueSize returns the number of tasks waiting to start.
func (e *Engine) QueueSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Start runs the queue worker until lc shuts down, then cancels every
// running task.
func (e *Engine) Start(lc *lifecycle.Coordinator) {
	ctx := lc.Context()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.work(ctx)
	}()

	lc.OnShutdown(func() {
		<-ctx.Done()
		e.Shutdown()
	})
}

func (e *Engine) work(ctx context.Context) {
	interval := e.cfg.QueueInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.wake:
		}
		e.ProcessQueue(ctx)
	}
}

// Shutdown cancels every tracked run, drops the queue and waits for the
// worker and runs to exit. Tasks whose runs were stopped end as failed
// with error "shutdown".
func (e *Engine) Shutdown() {
	e.mu.Lock()
	running := e.running
	e.running = make(map[uuid.UUID]*execution)
	dropped := len(e.queue)
	e.queue = nil
	e.mu.Unlock()

	for _, exec := range running {
		exec.cancel(errShutdown)
	}

	e.wg.Wait()
	e.logger.Info("task engine stopped", "cancelled", len(running), "dropped", dropped)
}
