package workflow

import (
	"context"
	"slices"
	"sync"
)

// Runs tracks the cancel functions of in-flight runs by workflow id so a
// run can be stopped from outside the request that started it.
type Runs struct {
	mu   sync.Mutex
	runs map[string]context.CancelFunc
}

func NewRuns() *Runs {
	return &Runs{runs: make(map[string]context.CancelFunc)}
}

func (r *Runs) Register(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[id] = cancel
}

// Cancel cancels the run and reports whether it was active.
func (r *Runs) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.runs[id]
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (r *Runs) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
}

// Active returns the ids of registered runs in sorted order.
func (r *Runs) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
