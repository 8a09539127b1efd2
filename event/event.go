// Package event defines the units of work executed by the engine: the
// Event interface, the embeddable Base that wires an event to its engine
// and future, and the optional capability facets (Stoppable, Abortable,
// DataProducer) that extend a future's API.
//
// Capabilities are independent optional interfaces, checked by assertion
// at call time. An event picks them up by embedding the matching helper:
//
//	type ScanEvent struct {
//		event.Base
//		event.StopFlag
//		event.DataBase
//	}
package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/notification"
)

// Event is a unit of work. Execute runs on exactly one engine worker; the
// context carries the worker identity and is cancelled on engine shutdown.
type Event interface {
	Execute(ctx context.Context) (any, error)
}

// Publisher accepts notifications for fan-out. Implemented by the engine.
type Publisher interface {
	PublishNotification(n notification.Notification)
}

// FutureNotifier records notifications on the future bound to an event.
// Implemented by the engine's Future.
type FutureNotifier interface {
	RecordNotification(n notification.Notification)
}

// Bindable is satisfied by events embedding Base. The executor binds each
// event to its engine and future exactly once at submission; a second bind
// means the event was resubmitted, which is a programming error.
type Bindable interface {
	Bind(id ulid.ULID, publisher Publisher, future FutureNotifier) error
	ID() ulid.ULID
}

// WorkerPinned is satisfied by events that declare a preferred worker.
// The engine consults it when no explicit worker is given at submission.
type WorkerPinned interface {
	PreferredWorker() string
}

// Retryable is satisfied by events that want failed executions re-run.
// RetriesOnError returns the number of additional attempts.
type Retryable interface {
	RetriesOnError() int
}

// Base carries the engine wiring shared by all structured events. The
// zero value is ready to embed; the executor binds it at submission.
type Base struct {
	mu        sync.Mutex
	id        ulid.ULID
	bound     bool
	publisher Publisher
	future    FutureNotifier

	worker  string
	retries int
	kinds   []string
	logger  *slog.Logger
}

// Bind attaches the event to its engine and future. Called by the
// executor; events must not call this themselves.
func (b *Base) Bind(id ulid.ULID, publisher Publisher, future FutureNotifier) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound {
		return errors.ErrEventReused
	}
	b.bound = true
	b.id = id
	b.publisher = publisher
	b.future = future
	return nil
}

// ID returns the identifier assigned at submission (zero before binding)
func (b *Base) ID() ulid.ULID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// OnWorker pins the event to a named worker. Overrides the device and
// engine defaults but not an explicit worker given at submission.
func (b *Base) OnWorker(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.worker = name
}

// PreferredWorker implements WorkerPinned
func (b *Base) PreferredWorker() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.worker
}

// SetRetries sets the number of additional attempts after a failed
// execution
func (b *Base) SetRetries(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retries = n
}

// RetriesOnError implements Retryable
func (b *Base) RetriesOnError() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retries
}

// DeclareNotifications registers the notification kinds this event may
// publish. Publishing an undeclared kind is logged but not rejected.
func (b *Base) DeclareNotifications(kinds ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds = append(b.kinds, kinds...)
}

// SetLogger overrides the logger used for publish warnings
func (b *Base) SetLogger(logger *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// PublishNotification records n on the event's future and hands it to the
// engine for subscriber fan-out. Safe to call only during Execute.
func (b *Base) PublishNotification(n notification.Notification) {
	b.mu.Lock()
	publisher := b.publisher
	future := b.future
	declared := n.Kind == notification.KindEventExecuted
	for _, k := range b.kinds {
		if k == n.Kind {
			declared = true
			break
		}
	}
	logger := b.logger
	b.mu.Unlock()

	if !declared {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("publishing undeclared notification kind",
			"kind", n.Kind, "event_id", b.ID().String())
	}
	if future != nil {
		future.RecordNotification(n)
	}
	if publisher != nil {
		publisher.PublishNotification(n)
	}
}

// StopFlag provides the Stoppable capability. Events embedding it must
// poll IsStopRequested from Execute and shut down in an orderly way when
// it reports true.
type StopFlag struct {
	mu        sync.Mutex
	requested bool
}

// Stoppable is the capability checked by Future.Stop
type Stoppable interface {
	RequestStop()
	IsStopRequested() bool
}

// RequestStop sets the cooperative stop flag
func (s *StopFlag) RequestStop() {
	s.mu.Lock()
	s.requested = true
	s.mu.Unlock()
}

// IsStopRequested reports whether a stop was requested
func (s *StopFlag) IsStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// AbortFlag provides the Abortable capability. Abort is stronger than
// stop: the event should terminate at the next safe point and discard
// partial results.
type AbortFlag struct {
	mu        sync.Mutex
	requested bool
}

// Abortable is the capability checked by Future.Abort
type Abortable interface {
	RequestAbort()
	IsAbortRequested() bool
}

// RequestAbort sets the abort flag
func (a *AbortFlag) RequestAbort() {
	a.mu.Lock()
	a.requested = true
	a.mu.Unlock()
}

// IsAbortRequested reports whether an abort was requested
func (a *AbortFlag) IsAbortRequested() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requested
}

// AsStoppable safely casts an event to Stoppable
func AsStoppable(e Event) (Stoppable, bool) {
	s, ok := e.(Stoppable)
	return s, ok
}

// AsAbortable safely casts an event to Abortable
func AsAbortable(e Event) (Abortable, bool) {
	a, ok := e.(Abortable)
	return a, ok
}

// AsDataProducer safely casts an event to DataProducer
func AsDataProducer(e Event) (DataProducer, bool) {
	d, ok := e.(DataProducer)
	return d, ok
}

// defaultCoordinateAxis names the counting axis used when a data-producing
// event declares no coordinate sequence
const defaultCoordinateAxis = "image"

// DataStage identifies how far through the pipeline a data item has moved
type DataStage int

const (
	// StageAcquired means the item was put by the event and is in memory
	StageAcquired DataStage = iota
	// StageProcessed means the processor has emitted the item
	StageProcessed
	// StageStored means the storage backend has accepted the item
	StageStored
)

// String returns the string representation of a DataStage
func (s DataStage) String() string {
	switch s {
	case StageAcquired:
		return "acquired"
	case StageProcessed:
		return "processed"
	case StageStored:
		return "stored"
	default:
		return "unknown"
	}
}

// DataObserver is notified as items move through the data pipeline.
// Implemented by the engine's Future so await-data callers see items the
// moment they arrive, before persistence completes.
type DataObserver interface {
	ObserveData(c coords.Coordinates, data []byte, metadata map[string]any, stage DataStage)
}

// DataSink accepts produced data. Implemented by the data handler.
type DataSink interface {
	// Put hands one item to the pipeline. Non-blocking under normal
	// operation; the observer may be nil.
	Put(c coords.Coordinates, data []byte, metadata map[string]any, observer DataObserver) error
	// Get retrieves an item that is either still in memory or already
	// persisted, blocking until it is available
	Get(ctx context.Context, c coords.Coordinates, returnData, returnMetadata bool) ([]byte, map[string]any, error)
}

// DataProducer is the capability checked by Future.AwaitData
type DataProducer interface {
	CoordinatesIterator() coords.Iterator
	Sink() DataSink
	BindObserver(o DataObserver)
}

// DataBase provides the DataProducer capability. Construct with
// NewDataBase; a nil iterator defaults to an endless counting sequence
// over the "image" axis.
type DataBase struct {
	mu       sync.Mutex
	iter     coords.Iterator
	sink     DataSink
	observer DataObserver
}

// NewDataBase creates the data-producing facet for an event
func NewDataBase(iter coords.Iterator, sink DataSink) DataBase {
	if iter == nil {
		iter = coords.Counting(defaultCoordinateAxis)
	}
	return DataBase{iter: iter, sink: sink}
}

// CoordinatesIterator returns the declared coordinate sequence
func (d *DataBase) CoordinatesIterator() coords.Iterator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.iter
}

// Sink returns the bound data handler
func (d *DataBase) Sink() DataSink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sink
}

// BindObserver attaches the future. Called by the executor at submission.
func (d *DataBase) BindObserver(o DataObserver) {
	d.mu.Lock()
	d.observer = o
	d.mu.Unlock()
}

// PutData hands one produced item to the data pipeline, notifying any
// await-data callers on this event's future
func (d *DataBase) PutData(c coords.Coordinates, data []byte, metadata map[string]any) error {
	d.mu.Lock()
	sink := d.sink
	observer := d.observer
	d.mu.Unlock()

	if sink == nil {
		return errors.WrapInvalid(errors.New("no data handler bound"),
			"DataBase", "PutData", "handing off data")
	}
	return sink.Put(c, data, metadata, observer)
}
