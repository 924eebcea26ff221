// Package shutdownqueue is a process-wide LIFO queue of cleanup tasks.
//
// Components register their teardown via Add as they start up, and main
// drains the queue once at exit:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	defer shutdownqueue.Shutdown(ctx)
//
// Tasks run exactly once, in reverse registration order, with panic
// recovery. Errors are aggregated with errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish in time.
type Task func(ctx context.Context) error

var (
	mu     sync.Mutex
	tasks  []Task
	closed bool
)

// Add registers a task to run on Shutdown, in LIFO order. Safe from any
// goroutine. A nil task, or an Add after shutdown has started, is a no-op.
func Add(t Task) {
	if t == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	if closed {
		return
	}

	tasks = append(tasks, t)
}

// Shutdown drains registered tasks in LIFO order. Calling it again is a
// no-op. If ctx ends mid-drain, Shutdown stops early and the returned
// error includes the context error alongside any task errors so far.
func Shutdown(ctx context.Context) error {
	mu.Lock()

	pending := tasks
	tasks = nil
	closed = true

	mu.Unlock()

	var errs []error

	for i := len(pending) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := runTask(ctx, pending[i])
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic in shutdown task: %v", r)
		}
	}()

	return t(ctx)
}

// reset is for tests only.
func reset() {
	mu.Lock()
	defer mu.Unlock()

	tasks = nil
	closed = false
}
