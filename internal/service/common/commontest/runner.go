// Package commontest provides test doubles for external tools.
package commontest

import (
	"context"
	"sync"
)

// Call is one recorded tool invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Handler emulates the side effects of a tool invocation.
type Handler func(call Call) error

// FakeRunner records invocations and dispatches them to per-tool handlers.
// It is safe for concurrent use.
type FakeRunner struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

// NewFakeRunner returns a runner that succeeds for every tool without handler.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]Handler)}
}

// Handle registers the handler invoked for tool name.
func (r *FakeRunner) Handle(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[name] = handler
}

// Run implements common.Runner.
func (r *FakeRunner) Run(_ context.Context, dir, name string, args ...string) error {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	handler := r.handlers[name]
	r.mu.Unlock()

	if handler == nil {
		return nil
	}

	return handler(call)
}

// Calls returns a copy of the recorded invocations.
func (r *FakeRunner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded invocations of tool name.
func (r *FakeRunner) CallsTo(name string) []Call {
	var calls []Call

	for _, call := range r.Calls() {
		if call.Name == name {
			calls = append(calls, call)
		}
	}

	return calls
}
