package event

import (
	"context"
)

// CallableEvent wraps a plain function as an event. Callables carry no
// capabilities and publish nothing beyond the terminal notification.
type CallableEvent struct {
	Base
	fn func(ctx context.Context) (any, error)
}

// Callable wraps a function returning a result and error
func Callable(fn func(ctx context.Context) (any, error)) *CallableEvent {
	return &CallableEvent{fn: fn}
}

// Run wraps a function with no result
func Run(fn func()) *CallableEvent {
	return &CallableEvent{fn: func(context.Context) (any, error) {
		fn()
		return nil, nil
	}}
}

// Execute implements Event
func (e *CallableEvent) Execute(ctx context.Context) (any, error) {
	return e.fn(ctx)
}
