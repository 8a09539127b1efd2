package engine

import "context"

type workerKey struct{}

// ContextWithWorker tags a context with the name of the worker executing
// the current work item. The engine applies it before every Execute call.
func ContextWithWorker(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, workerKey{}, name)
}

// WorkerFromContext reports which worker the current code is running on,
// if any. The device proxy consults it to execute same-worker nested
// calls inline instead of re-enqueueing them.
func WorkerFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(workerKey{}).(string)
	return name, ok
}
