// Package device makes registered hardware objects behave as if they were
// simple synchronous objects while every observable side effect happens on
// the device's assigned engine worker.
//
// A Proxy is the only sanctioned access path to a registered device: each
// attribute read, attribute write, and method call is packaged as a
// synthesized event, submitted on the device's worker, and awaited, so the
// caller sees a synchronous result while the worker discipline serializes
// all hardware access. Names in the device's bypass set are serviced
// directly on the calling goroutine.
//
// Re-entrancy is safe: a device method that calls back into the proxy for
// the same worker runs the nested access inline on the current goroutine
// instead of re-enqueueing it, so same-device nested calls cannot
// deadlock. The proxy detects this through the worker tag the engine puts
// on every execution context, which is why device methods should accept
// and forward a context.Context.
package device
