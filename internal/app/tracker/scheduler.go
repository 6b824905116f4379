package tracker

import (
	"context"
	"time"
)

// Task - a periodic job with an explicit stop
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Schedule runs fn right away, then every interval, until Stop is called or ctx is done.
// Runs never overlap: a run that outlasts the interval swallows the missed ticks.
func Schedule(ctx context.Context, interval time.Duration, fn func(ctx context.Context, t time.Time)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx, time.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case x := <-ticker.C:
				fn(ctx, x)
			}
		}
	}()

	return task
}

// Stop cancels the task and waits for the running call, if any, to return.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed once the task loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
