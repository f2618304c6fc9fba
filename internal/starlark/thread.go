package starlark

import (
	"sync"

	"go.starlark.net/starlark"
)

// rowThreads hands out Starlark threads for row evaluations. Each eval gets
// a fresh step budget. A thread whose evaluation failed is not reused,
// since a thread stopped by the step limit stays cancelled.
type rowThreads struct {
	mu       sync.Mutex
	idle     []*starlark.Thread
	size     int
	maxSteps uint64
}

func newRowThreads(size int, maxSteps uint64) *rowThreads {
	if size <= 0 {
		size = 1
	}
	return &rowThreads{size: size, maxSteps: maxSteps}
}

// eval evaluates expr against env on a pooled thread named after the check.
func (p *rowThreads) eval(name, expr string, env starlark.StringDict) (starlark.Value, error) {
	thread := p.get(name)
	if p.maxSteps > 0 {
		thread.SetMaxExecutionSteps(thread.ExecutionSteps() + p.maxSteps)
	}
	v, err := starlark.Eval(thread, name, expr, env) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, err
	}
	p.put(thread)
	return v, nil
}

func (p *rowThreads) get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.idle); n > 0 {
		thread := p.idle[n-1]
		p.idle = p.idle[:n-1]
		thread.Name = name
		return thread
	}
	return &starlark.Thread{
		Name:  name,
		Print: func(*starlark.Thread, string) {},
	}
}

func (p *rowThreads) put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) < p.size {
		p.idle = append(p.idle, thread)
	}
}

// idleCount returns the number of threads waiting for reuse.
func (p *rowThreads) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
