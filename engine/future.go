package engine

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/event"
	"github.com/c360/exengine/notification"
)

// State is a future's position in its lifecycle. Transitions are
// monotonic: pending -> running -> exactly one terminal state.
type State int

const (
	// StatePending means the item is queued but not yet executing
	StatePending State = iota
	// StateRunning means Execute is in progress
	StateRunning
	// StateSucceeded means Execute returned without error
	StateSucceeded
	// StateFailed means Execute returned an error (possibly after retries)
	StateFailed
	// StateStopped means the event observed a stop request and finished
	StateStopped
	// StateAborted means the event observed an abort request and finished
	StateAborted
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final
func (s State) Terminal() bool {
	return s != StatePending && s != StateRunning
}

// awaitedEntry records one coordinates value a caller is blocked on, so
// that data arriving while the caller waits is held for fast access
type awaitedEntry struct {
	filled   bool
	data     []byte
	metadata map[string]any
}

// dataTracking exists only on futures of data-producing events
type dataTracking struct {
	producer event.DataProducer
	seen     [3]map[string]struct{}     // indexed by event.DataStage
	awaited  [3]map[string]*awaitedEntry // filled by ObserveData
}

// Future is the handle bound to one submitted work item. All methods are
// safe for concurrent use from any goroutine.
type Future struct {
	id    ulid.ULID
	ev    event.Event
	mu    sync.Mutex
	cond  *sync.Cond
	state State

	result        any
	err           error
	notifications []notification.Notification

	data *dataTracking
}

func newFuture(id ulid.ULID, ev event.Event) *Future {
	f := &Future{id: id, ev: ev, state: StatePending}
	f.cond = sync.NewCond(&f.mu)
	if dp, ok := event.AsDataProducer(ev); ok {
		dt := &dataTracking{producer: dp}
		for i := range dt.seen {
			dt.seen[i] = make(map[string]struct{})
			dt.awaited[i] = make(map[string]*awaitedEntry)
		}
		f.data = dt
	}
	return f
}

// ID returns the identifier assigned at submission
func (f *Future) ID() ulid.ULID { return f.id }

// State returns the current state
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done reports whether the future has reached a terminal state. Once true
// it stays true.
func (f *Future) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Terminal()
}

// Await blocks until the future is terminal, then returns the recorded
// result, or re-raises the recorded error. The context bounds the wait;
// on expiry ErrAwaitTimeout is returned and the future is unchanged.
func (f *Future) Await(ctx context.Context) (any, error) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.state.Terminal() {
		if ctx.Err() != nil {
			return nil, errors.ErrAwaitTimeout
		}
		f.cond.Wait()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// AwaitNotification blocks until a notification of exactly the given kind
// has been recorded on this future. Returns immediately if one arrived
// before the call.
func (f *Future) AwaitNotification(ctx context.Context, kind string) (notification.Notification, error) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		for _, n := range f.notifications {
			if n.Kind == kind {
				return n, nil
			}
		}
		if ctx.Err() != nil {
			return notification.Notification{}, errors.ErrAwaitTimeout
		}
		f.cond.Wait()
	}
}

// Notifications returns a snapshot of the per-future notification log in
// the order the notifications were recorded
func (f *Future) Notifications() []notification.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

// Stop requests a cooperative stop. Only valid for Stoppable events;
// others get ErrCapabilityUnsupported. With awaitCompletion the call
// blocks until the future is terminal.
func (f *Future) Stop(ctx context.Context, awaitCompletion bool) error {
	s, ok := event.AsStoppable(f.ev)
	if !ok {
		return errors.WrapInvalid(errors.ErrCapabilityUnsupported, "Future", "Stop", "requesting stop")
	}
	s.RequestStop()
	if awaitCompletion {
		_, err := f.Await(ctx)
		if errors.Is(err, errors.ErrAwaitTimeout) {
			return err
		}
	}
	return nil
}

// Abort requests an abort: the event should terminate at its next safe
// point and discard partial results. Only valid for Abortable events.
func (f *Future) Abort(ctx context.Context, awaitCompletion bool) error {
	a, ok := event.AsAbortable(f.ev)
	if !ok {
		return errors.WrapInvalid(errors.ErrCapabilityUnsupported, "Future", "Abort", "requesting abort")
	}
	a.RequestAbort()
	if awaitCompletion {
		_, err := f.Await(ctx)
		if errors.Is(err, errors.ErrAwaitTimeout) {
			return err
		}
	}
	return nil
}

// AwaitDataOptions selects what AwaitData returns and which pipeline
// stage to wait for
type AwaitDataOptions struct {
	ReturnData     bool
	ReturnMetadata bool
	// Stage defaults to StageAcquired: data is visible as soon as the
	// event put it, before processing or persistence
	Stage event.DataStage
}

// AwaitData blocks until the event's data at the given coordinates has
// reached the requested pipeline stage, then returns the requested
// pieces. Only valid for data-producing events.
func (f *Future) AwaitData(ctx context.Context, c coords.Coordinates, opts AwaitDataOptions) ([]byte, map[string]any, error) {
	data, md, err := f.AwaitDataAll(ctx, []coords.Coordinates{c}, opts)
	if err != nil {
		return nil, nil, err
	}
	return data[0], md[0], nil
}

// AwaitDataAll is AwaitData for several coordinates at once. The returned
// slices parallel the input order.
func (f *Future) AwaitDataAll(ctx context.Context, cs []coords.Coordinates, opts AwaitDataOptions) ([][]byte, []map[string]any, error) {
	if f.data == nil {
		return nil, nil, errors.WrapInvalid(errors.ErrCapabilityUnsupported, "Future", "AwaitData", "awaiting data")
	}
	stage := opts.Stage

	// validity can only be checked against the declared sequence before
	// processing, because processors may rename coordinates
	if stage == event.StageAcquired {
		iter := f.data.producer.CoordinatesIterator()
		for _, c := range cs {
			if iter.MayProduce(c) == coords.No {
				return nil, nil, errors.WrapInvalid(errors.ErrUnknownCoordinates,
					"Future", "AwaitData", c.String())
			}
		}
	}

	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	// register interest in everything not yet seen, so items arriving
	// while we read others from storage are held in memory
	toRead := make([]bool, len(cs))
	f.mu.Lock()
	for i, c := range cs {
		key := c.Key()
		if _, seen := f.data.seen[stage][key]; seen {
			toRead[i] = true
		} else if _, ok := f.data.awaited[stage][key]; !ok {
			f.data.awaited[stage][key] = &awaitedEntry{}
		}
	}
	f.mu.Unlock()

	outData := make([][]byte, len(cs))
	outMD := make([]map[string]any, len(cs))

	// fetch items that already moved through the pipeline via the handler
	sink := f.data.producer.Sink()
	for i, c := range cs {
		if !toRead[i] {
			continue
		}
		data, md, err := sink.Get(ctx, c, opts.ReturnData, opts.ReturnMetadata)
		if err != nil {
			return nil, nil, err
		}
		outData[i], outMD[i] = data, md
	}

	// collect the rest as ObserveData fills the awaited entries
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range cs {
		if toRead[i] {
			continue
		}
		key := c.Key()
		entry := f.data.awaited[stage][key]
		for entry != nil && !entry.filled {
			if ctx.Err() != nil {
				return nil, nil, errors.ErrAwaitTimeout
			}
			f.cond.Wait()
		}
		if entry == nil {
			// a concurrent AwaitDataAll consumed the entry; the item has
			// been seen, so the handler can serve it
			f.mu.Unlock()
			data, md, err := sink.Get(ctx, c, opts.ReturnData, opts.ReturnMetadata)
			f.mu.Lock()
			if err != nil {
				return nil, nil, err
			}
			outData[i], outMD[i] = data, md
			continue
		}
		if opts.ReturnData {
			outData[i] = entry.data
		}
		if opts.ReturnMetadata {
			outMD[i] = entry.metadata
		}
		delete(f.data.awaited[stage], key)
	}
	return outData, outMD, nil
}

// ObserveData implements event.DataObserver. The data handler calls it as
// items move through the pipeline.
func (f *Future) ObserveData(c coords.Coordinates, data []byte, metadata map[string]any, stage event.DataStage) {
	if f.data == nil {
		return
	}
	key := c.Key()
	f.mu.Lock()
	f.data.seen[stage][key] = struct{}{}
	if entry, ok := f.data.awaited[stage][key]; ok {
		entry.filled = true
		entry.data = data
		entry.metadata = metadata
	}
	f.cond.Broadcast()
	f.mu.Unlock()
}

// RecordNotification implements event.FutureNotifier, appending to the
// per-future log and waking AwaitNotification callers
func (f *Future) RecordNotification(n notification.Notification) {
	f.mu.Lock()
	f.notifications = append(f.notifications, n)
	f.cond.Broadcast()
	f.mu.Unlock()
}

// markRunning transitions pending -> running
func (f *Future) markRunning() {
	f.mu.Lock()
	if f.state == StatePending {
		f.state = StateRunning
	}
	f.cond.Broadcast()
	f.mu.Unlock()
}

// complete records the terminal outcome. Later calls are ignored so a
// racing stop/abort can never un-complete the future.
func (f *Future) complete(state State, result any, err error) {
	f.mu.Lock()
	if f.state.Terminal() {
		f.mu.Unlock()
		return
	}
	f.state = state
	f.result = result
	f.err = err
	f.cond.Broadcast()
	f.mu.Unlock()
}
