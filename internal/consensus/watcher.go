package consensus

import (
	"context"
	"sync"
)

// Watcher owns the tasks it starts so they all stop when it is closed.
type Watcher struct {
	source ResponseSource
	opts   []Option

	lock   sync.Mutex
	tasks  map[*Task]struct{}
	closed bool
}

func NewWatcher(source ResponseSource, opts ...Option) *Watcher {
	return &Watcher{source: source, opts: opts, tasks: make(map[*Task]struct{})}
}

// Watch starts a task for id. Options given here apply after the watcher defaults.
func (w *Watcher) Watch(ctx context.Context, id string, opts ...Option) *Task {
	all := append(append([]Option{}, w.opts...), opts...)
	task := Watch(ctx, w.source, id, all...)

	w.lock.Lock()
	if w.closed {
		w.lock.Unlock()
		task.Cancel()
		return task
	}
	w.tasks[task] = struct{}{}
	w.lock.Unlock()

	go func() {
		<-task.Done()
		w.lock.Lock()
		delete(w.tasks, task)
		w.lock.Unlock()
	}()

	return task
}

// Active returns the number of running tasks.
func (w *Watcher) Active() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return len(w.tasks)
}

// Close cancels every running task and waits for them to stop.
func (w *Watcher) Close() {
	w.lock.Lock()
	w.closed = true
	tasks := make([]*Task, 0, len(w.tasks))
	for t := range w.tasks {
		tasks = append(tasks, t)
	}
	w.lock.Unlock()

	for _, t := range tasks {
		t.Cancel()
		<-t.Done()
	}
}
