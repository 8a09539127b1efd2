// Package exengine provides a hardware-control runtime for laboratory
// instruments. User code addresses heterogeneous devices as if they were
// simple synchronous objects while, underneath, every interaction is
// serialized onto a small pool of named worker goroutines that also host
// richer units of work ("events") producing asynchronous results,
// progress notifications, and indexed data streams.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          Engine                     │  Submission, device registry,
//	│  (submit, register, subscribe)      │  lifecycle
//	└─────────────────────────────────────┘
//	           ↓ dispatches to
//	┌─────────────────────────────────────┐
//	│       Named Workers                 │  One goroutine per name,
//	│   (strict per-worker FIFO)          │  created lazily
//	└─────────────────────────────────────┘
//	           ↓ execute
//	┌─────────────────────────────────────┐
//	│         Events                      │  Plain callables or structured
//	│ (Stoppable, Abortable, DataProducer)│  events with capabilities
//	└─────────────────────────────────────┘
//	           ↓ observed through
//	┌─────────────────────────────────────┐
//	│         Futures                     │  Completion, notifications,
//	│ (await, stop, abort, await-data)    │  produced data
//	└─────────────────────────────────────┘
//
// Data-producing events hand items to a data handler (package handler)
// that caches them in memory, optionally routes them through a processing
// function, and persists them through a storage backend (package storage)
// on a dedicated writer goroutine. Device access goes through a
// reflection-based proxy (package device) that pins every read, write,
// and call to the device's assigned worker.
//
// Notifications published by events and the engine fan out through a
// subscription bus (package notification) and can be exported to NATS
// (package export) or streamed to websocket clients (package gateway).
//
// The engine is a library: embed it, construct it with config.Config, and
// shut it down when the acquisition ends. Nothing persists across
// restarts; persistence is entirely the storage backend's concern.
package exengine
