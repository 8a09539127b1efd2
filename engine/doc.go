// Package engine implements the execution engine: a pool of named
// single-goroutine workers with strict per-worker FIFO, the futures that
// expose completion, notifications, and produced data back to callers,
// and the engine facade tying together submission, device registration,
// and the notification bus.
//
// User code addresses the engine from any goroutine; each submitted work
// item executes on exactly one named worker, so everything routed to one
// worker is serialized. Devices registered with the engine pin all their
// proxied accesses to one worker, which is the engine's only
// synchronization discipline for shared hardware.
package engine
