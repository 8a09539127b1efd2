// Package handler provides the thread-safe intermediary between
// data-producing events and a storage backend. Items put by an event are
// held in memory, optionally routed through a processing function, and
// persisted by a dedicated writer goroutine, so that futures can serve
// await-data calls before persistence completes and storage backends need
// not be thread-safe.
package handler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/event"
	"github.com/c360/exengine/notification"
	"github.com/c360/exengine/pkg/cache"
	"github.com/c360/exengine/pkg/retry"
	"github.com/c360/exengine/storage"
)

// Item is one processed or produced data item
type Item struct {
	Coords   coords.Coordinates
	Data     []byte
	Metadata map[string]any
}

// Processor transforms one incoming item into zero, one, or many outgoing
// items. Returning an empty slice drops or defers the input; a processor
// is free to accumulate state and emit items on a later call. Processors
// run on their own goroutine.
type Processor func(c coords.Coordinates, data []byte, metadata map[string]any) ([]Item, error)

// holder tracks one in-memory item and the future observing it
type holder struct {
	item      Item
	observer  event.DataObserver
	processed bool
}

// cached is the read-back cache entry for persisted items
type cached struct {
	data     []byte
	metadata map[string]any
}

// DataHandler sits between data-producing events and a storage backend.
// Create with New; every handler owns a storage-writer goroutine and, when
// a processor is attached, a processing goroutine.
type DataHandler struct {
	store     storage.Backend
	processor Processor
	publisher event.Publisher
	logger    *slog.Logger
	retryCfg  retry.Config
	readCache cache.Cache[cached]

	mu   sync.Mutex
	cond *sync.Cond

	table    map[string]*holder
	intake   []string
	procOut  []string
	stored   map[string]struct{}
	memBytes int64
	memBound int64

	finished bool
	procDone bool
	failed   error

	done chan struct{}
}

// Option configures a DataHandler
type Option func(*DataHandler)

// WithProcessor attaches a processing stage between events and storage
func WithProcessor(p Processor) Option {
	return func(h *DataHandler) { h.processor = p }
}

// WithPublisher routes DataStored and StorageFailed notifications to the
// engine's subscription bus
func WithPublisher(p event.Publisher) Option {
	return func(h *DataHandler) { h.publisher = p }
}

// WithLogger sets the handler's logger
func WithLogger(l *slog.Logger) Option {
	return func(h *DataHandler) { h.logger = l }
}

// WithMemoryBound bounds the bytes of payload held in memory; puts block
// while the held bytes are at or above the bound, until the writer catches
// up. Zero means unbounded.
func WithMemoryBound(bytes int64) Option {
	return func(h *DataHandler) { h.memBound = bytes }
}

// WithRetryConfig overrides the backoff used for storage puts
func WithRetryConfig(cfg retry.Config) Option {
	return func(h *DataHandler) { h.retryCfg = cfg }
}

// WithReadCache bounds the read-back cache of persisted items. Zero
// disables the cache.
func WithReadCache(size int) Option {
	return func(h *DataHandler) {
		if size <= 0 {
			h.readCache = cache.NewNoop[cached]()
			return
		}
		if c, err := cache.NewLRU[cached](size); err == nil {
			h.readCache = c
		}
	}
}

// defaultReadCacheSize bounds the read-back cache when not configured
const defaultReadCacheSize = 256

// New creates a handler over the given backend and starts its pipeline
// goroutines
func New(store storage.Backend, opts ...Option) *DataHandler {
	h := &DataHandler{
		store:    store,
		logger:   slog.Default(),
		retryCfg: retry.DefaultConfig(),
		table:    make(map[string]*holder),
		stored:   make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	h.cond = sync.NewCond(&h.mu)
	for _, opt := range opts {
		opt(h)
	}
	if h.readCache == nil {
		if c, err := cache.NewLRU[cached](defaultReadCacheSize); err == nil {
			h.readCache = c
		} else {
			h.readCache = cache.NewNoop[cached]()
		}
	}

	if h.processor != nil {
		go h.runProcessor()
	}
	go h.runWriter()
	return h
}

// Put hands one item to the pipeline. Returns immediately unless the
// memory bound is exceeded. The observer (normally the producing event's
// future) may be nil. Implements event.DataSink.
func (h *DataHandler) Put(c coords.Coordinates, data []byte, metadata map[string]any, observer event.DataObserver) error {
	h.mu.Lock()
	if h.failed != nil {
		err := h.failed
		h.mu.Unlock()
		return errors.WrapFatal(err, "DataHandler", "Put", "pipeline failed earlier")
	}
	if h.finished {
		h.mu.Unlock()
		return errors.ErrHandlerFinished
	}

	for h.memBound > 0 && h.memBytes >= h.memBound && !h.finished && h.failed == nil {
		h.cond.Wait()
	}
	if h.failed != nil {
		err := h.failed
		h.mu.Unlock()
		return errors.WrapFatal(err, "DataHandler", "Put", "pipeline failed earlier")
	}
	if h.finished {
		h.mu.Unlock()
		return errors.ErrHandlerFinished
	}

	key := c.Key()
	h.table[key] = &holder{
		item:     Item{Coords: c, Data: data, Metadata: metadata},
		observer: observer,
	}
	h.memBytes += int64(len(data))
	h.intake = append(h.intake, key)
	h.cond.Broadcast()
	h.mu.Unlock()

	if observer != nil {
		observer.ObserveData(c, data, metadata, event.StageAcquired)
	}
	return nil
}

// Get retrieves an item, blocking until it is present in memory or
// reported stored. Items already evicted after persistence are read back
// from storage through the read cache.
func (h *DataHandler) Get(ctx context.Context, c coords.Coordinates, returnData, returnMetadata bool) ([]byte, map[string]any, error) {
	key := c.Key()

	// wake waiters when the caller's deadline passes
	stop := context.AfterFunc(ctx, func() {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
	})
	defer stop()

	h.mu.Lock()
	for {
		if hold, ok := h.table[key]; ok {
			item := hold.item
			h.mu.Unlock()
			return pick(item.Data, item.Metadata, returnData, returnMetadata)
		}
		if _, ok := h.stored[key]; ok {
			h.mu.Unlock()
			return h.readBack(c, returnData, returnMetadata)
		}
		if h.failed != nil {
			err := h.failed
			h.mu.Unlock()
			return nil, nil, errors.WrapFatal(err, "DataHandler", "Get", "pipeline failed earlier")
		}
		if h.finished && h.procDone && len(h.intake) == 0 && len(h.procOut) == 0 {
			h.mu.Unlock()
			// the pipeline has drained; the item either exists in storage
			// from a prior run or will never exist
			return h.readBackOrUnknown(c, returnData, returnMetadata)
		}
		if err := ctx.Err(); err != nil {
			h.mu.Unlock()
			return nil, nil, errors.ErrAwaitTimeout
		}
		h.cond.Wait()
	}
}

// Finish signals that no further puts will arrive. The pipeline flushes
// pending processing and storage, then finishes and closes the backend.
// Returns any latched pipeline error.
func (h *DataHandler) Finish() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.failed
	if h.finished {
		return err
	}
	h.finished = true
	if h.processor == nil {
		h.procDone = true
	}
	h.cond.Broadcast()
	return err
}

// AwaitCompletion blocks until the pipeline goroutines have flushed and
// the backend is closed
func (h *DataHandler) AwaitCompletion(ctx context.Context) error {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.failed
	case <-ctx.Done():
		return errors.ErrAwaitTimeout
	}
}

// Err returns the latched pipeline error, if any
func (h *DataHandler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failed
}

// Pending returns the number of items not yet persisted
func (h *DataHandler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.table)
}

// runProcessor drains the intake queue through the processing function
func (h *DataHandler) runProcessor() {
	for {
		h.mu.Lock()
		for len(h.intake) == 0 && !h.finished && h.failed == nil {
			h.cond.Wait()
		}
		if h.failed != nil || (h.finished && len(h.intake) == 0) {
			h.procDone = true
			h.cond.Broadcast()
			h.mu.Unlock()
			return
		}
		key := h.intake[0]
		h.intake = h.intake[1:]
		hold := h.table[key]
		h.mu.Unlock()

		if hold == nil {
			continue
		}
		in := hold.item
		emitted, err := h.processor(in.Coords, in.Data, in.Metadata)
		if err != nil {
			h.fail(errors.Wrap(err, "DataHandler", "runProcessor", "processing item"))
			continue
		}

		var notify []func()
		h.mu.Lock()
		replaced := false
		for _, out := range emitted {
			outKey := out.Coords.Key()
			if outKey == key {
				replaced = true
			} else {
				h.memBytes += int64(len(out.Data))
			}
			h.table[outKey] = &holder{item: out, observer: hold.observer, processed: true}
			h.procOut = append(h.procOut, outKey)
			if hold.observer != nil {
				out := out
				notify = append(notify, func() {
					hold.observer.ObserveData(out.Coords, out.Data, out.Metadata, event.StageProcessed)
				})
			}
		}
		if !replaced {
			// the processor diverted or renamed the input; the original
			// coordinates will never be stored
			delete(h.table, key)
			h.memBytes -= int64(len(in.Data))
		}
		h.cond.Broadcast()
		h.mu.Unlock()

		for _, fn := range notify {
			fn()
		}
	}
}

// runWriter drains items to the storage backend, one at a time
func (h *DataHandler) runWriter() {
	defer close(h.done)

	for {
		h.mu.Lock()
		src := &h.intake
		if h.processor != nil {
			src = &h.procOut
		}
		for len(*src) == 0 && !(h.procDone && h.finished) && h.failed == nil {
			h.cond.Wait()
		}
		if len(*src) == 0 {
			// drained or failed; finish the backend and exit
			h.mu.Unlock()
			h.finishStorage()
			return
		}
		key := (*src)[0]
		*src = (*src)[1:]
		hold := h.table[key]
		h.mu.Unlock()

		if hold == nil {
			continue
		}
		item := hold.item

		err := retry.Do(context.Background(), h.retryCfg, func() error {
			return h.store.Put(item.Coords, item.Data, item.Metadata)
		})
		if err != nil {
			h.logger.Error("storage put failed",
				"coords", item.Coords.String(), "error", err)
			if h.publisher != nil {
				h.publisher.PublishNotification(notification.StorageFailed(err))
			}
			h.fail(errors.WrapTransient(errors.ErrStorageFailed, "DataHandler", "runWriter", item.Coords.String()))
			continue
		}

		h.mu.Lock()
		h.stored[key] = struct{}{}
		delete(h.table, key)
		h.memBytes -= int64(len(item.Data))
		if h.memBytes < 0 {
			h.memBytes = 0
		}
		h.readCache.Set(key, cached{data: item.Data, metadata: item.Metadata})
		h.cond.Broadcast()
		h.mu.Unlock()

		if h.publisher != nil {
			h.publisher.PublishNotification(notification.DataStored(item.Coords))
		}
		if hold.observer != nil {
			if h.processor == nil {
				// without a processing stage, persistence is the point at
				// which awaiting "processed" data must unblock
				hold.observer.ObserveData(item.Coords, item.Data, item.Metadata, event.StageProcessed)
			}
			hold.observer.ObserveData(item.Coords, item.Data, item.Metadata, event.StageStored)
		}
	}
}

// finishStorage finishes and closes the backend once the pipeline drains
func (h *DataHandler) finishStorage() {
	if err := h.store.Finish(); err != nil {
		h.fail(errors.Wrap(err, "DataHandler", "finishStorage", "finishing backend"))
	}
	if err := h.store.Close(); err != nil {
		h.fail(errors.Wrap(err, "DataHandler", "finishStorage", "closing backend"))
	}
}

// fail latches the first pipeline error and wakes all waiters
func (h *DataHandler) fail(err error) {
	h.mu.Lock()
	if h.failed == nil {
		h.failed = err
	}
	h.cond.Broadcast()
	h.mu.Unlock()
}

// readBack fetches a persisted item through the read cache
func (h *DataHandler) readBack(c coords.Coordinates, returnData, returnMetadata bool) ([]byte, map[string]any, error) {
	key := c.Key()
	if entry, ok := h.readCache.Get(key); ok {
		return pick(entry.data, entry.metadata, returnData, returnMetadata)
	}

	var data []byte
	var md map[string]any
	var err error
	if returnData {
		data, err = h.store.GetData(c)
		if err != nil {
			return nil, nil, errors.Wrap(err, "DataHandler", "readBack", "reading payload")
		}
	}
	if returnMetadata {
		md, err = h.store.GetMetadata(c)
		if err != nil {
			return nil, nil, errors.Wrap(err, "DataHandler", "readBack", "reading metadata")
		}
	}
	if returnData && returnMetadata {
		h.readCache.Set(key, cached{data: data, metadata: md})
	}
	return data, md, nil
}

// readBackOrUnknown resolves a get after the pipeline has drained
func (h *DataHandler) readBackOrUnknown(c coords.Coordinates, returnData, returnMetadata bool) ([]byte, map[string]any, error) {
	ok, err := h.store.Contains(c)
	if err == nil && ok {
		return h.readBack(c, returnData, returnMetadata)
	}
	return nil, nil, errors.ErrUnknownCoordinates
}

// pick trims the returned pieces to what the caller asked for
func pick(data []byte, md map[string]any, returnData, returnMetadata bool) ([]byte, map[string]any, error) {
	if !returnData {
		data = nil
	}
	if !returnMetadata {
		md = nil
	}
	return data, md, nil
}
