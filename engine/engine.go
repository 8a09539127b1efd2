package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/c360/exengine/config"
	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/event"
	"github.com/c360/exengine/handler"
	"github.com/c360/exengine/health"
	"github.com/c360/exengine/metric"
	"github.com/c360/exengine/notification"
	"github.com/c360/exengine/storage"
)

// DeviceOptions declares how a registered device's accesses are routed
type DeviceOptions struct {
	// Worker names the device's default worker; empty means the engine
	// default worker
	Worker string
	// Bypass lists attribute/method names serviced directly on the
	// calling goroutine with no event synthesized
	Bypass []string
	// FullBypass bypasses every name on the device
	FullBypass bool
	// MethodWorkers overrides the worker per method name
	MethodWorkers map[string]string
}

// deviceRecord associates a registered device with its routing options
type deviceRecord struct {
	device any
	opts   DeviceOptions
}

// Engine is the execution engine facade: submission, device registration,
// notification subscription, and lifecycle.
type Engine struct {
	cfg     config.Config
	logger  *slog.Logger
	bus     *notification.Bus
	metrics *engineMetrics
	health  *health.Monitor

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*worker
	devices map[string]deviceRecord
	down    bool
}

// Option configures an Engine
type Option func(*engineSettings)

type engineSettings struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithLogger sets the engine's logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *engineSettings) { s.logger = logger }
}

// WithMetricsRegistry enables prometheus metrics through the given registry
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(s *engineSettings) { s.registry = registry }
}

// New creates an engine with the given configuration. Workers are created
// lazily on first use; the notification dispatch goroutine starts
// immediately.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Engine", "New", "validating config")
	}

	settings := &engineSettings{logger: slog.Default()}
	for _, opt := range opts {
		opt(settings)
	}

	metrics, err := newEngineMetrics(settings.registry)
	if err != nil {
		settings.logger.Error("failed to initialize engine metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	bus, err := notification.NewBus(cfg.NotificationQueueDepth, settings.logger)
	if err != nil {
		return nil, errors.Wrap(err, "Engine", "New", "creating notification bus")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		logger:  settings.logger,
		bus:     bus,
		metrics: metrics,
		health:  health.NewMonitor(),
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[string]*worker),
		devices: make(map[string]deviceRecord),
	}

	if err := bus.Start(ctx); err != nil {
		cancel()
		return nil, errors.Wrap(err, "Engine", "New", "starting notification bus")
	}
	if settings.registry != nil {
		settings.registry.CoreMetrics().EngineStatus.WithLabelValues("exengine").Set(1)
	}

	return e, nil
}

// SubmitOption adjusts a single submission
type SubmitOption func(*submitSettings)

type submitSettings struct {
	worker     string
	prioritize bool
}

// OnWorker routes the submission to the named worker, overriding every
// other selection rule
func OnWorker(name string) SubmitOption {
	return func(s *submitSettings) { s.worker = name }
}

// Prioritized inserts the submission at the front of the worker's queue
// instead of the back. Used for system-wide changes that must precede
// already-queued work, like cancellations.
func Prioritized() SubmitOption {
	return func(s *submitSettings) { s.prioritize = true }
}

// Submit enqueues one work item and returns its future immediately.
// Worker selection, in precedence order: the OnWorker option, the event's
// preferred worker, the engine default.
func (e *Engine) Submit(ev event.Event, opts ...SubmitOption) (*Future, error) {
	futures, err := e.SubmitBatch([]event.Event{ev}, opts...)
	if err != nil {
		return nil, err
	}
	return futures[0], nil
}

// SubmitFunc wraps a plain function and submits it
func (e *Engine) SubmitFunc(fn func(ctx context.Context) (any, error), opts ...SubmitOption) (*Future, error) {
	return e.Submit(event.Callable(fn), opts...)
}

// SubmitBatch enqueues several items as one contiguous, ordered block on
// a single worker's queue: no concurrently-arriving submission can land
// between them.
func (e *Engine) SubmitBatch(evs []event.Event, opts ...SubmitOption) ([]*Future, error) {
	settings := &submitSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	if len(evs) == 0 {
		return nil, errors.WrapInvalid(errors.ErrNilEvent, "Engine", "SubmitBatch", "empty batch")
	}

	// a batch shares one queue, so worker resolution uses the first event
	name := settings.worker
	if name == "" {
		if wp, ok := evs[0].(event.WorkerPinned); ok {
			name = wp.PreferredWorker()
		}
	}
	if name == "" {
		name = e.cfg.DefaultWorkerName
	}

	items := make([]workItem, 0, len(evs))
	futures := make([]*Future, 0, len(evs))
	for _, ev := range evs {
		if ev == nil {
			return nil, errors.ErrNilEvent
		}
		item, err := e.prepare(ev)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		futures = append(futures, item.fut)
	}

	e.mu.Lock()
	if e.down {
		e.mu.Unlock()
		return nil, errors.ErrSubmissionRejected
	}
	w := e.workers[name]
	if w == nil {
		w = newWorker(name, e)
		e.workers[name] = w
	}
	e.mu.Unlock()

	if err := w.enqueue(items, settings.prioritize); err != nil {
		return nil, err
	}
	for range items {
		e.metrics.recordSubmitted(name, w.depth())
	}
	return futures, nil
}

// prepare binds an event to a fresh future
func (e *Engine) prepare(ev event.Event) (workItem, error) {
	id := ulid.Make()
	fut := newFuture(id, ev)

	if b, ok := ev.(event.Bindable); ok {
		if err := b.Bind(id, e, fut); err != nil {
			return workItem{}, err
		}
	}
	if dp, ok := event.AsDataProducer(ev); ok {
		dp.BindObserver(fut)
	}
	return workItem{ev: ev, fut: fut}, nil
}

// PublishNotification implements event.Publisher, feeding the bus and
// metrics. Non-blocking.
func (e *Engine) PublishNotification(n notification.Notification) {
	e.bus.Publish(n)
	e.metrics.recordNotification(n.Category.String(), e.bus.Dropped())
}

// SubscribeToNotifications registers a handler for out-of-band delivery.
// The filter may be nil (receive everything), notification.ByKind, or
// notification.ByCategory.
func (e *Engine) SubscribeToNotifications(h notification.Handler, filter notification.Filter) *notification.Subscription {
	return e.bus.Subscribe(h, filter)
}

// UnsubscribeFromNotifications removes a subscription
func (e *Engine) UnsubscribeFromNotifications(sub *notification.Subscription) {
	e.bus.Unsubscribe(sub)
}

// RegisterDevice associates a device object with its routing options.
// After registration user code must address the device only through its
// proxy; the engine's worker discipline is the device's synchronization.
// Registering the same object again under the same name is a no-op: the
// options from the first registration are kept.
func (e *Engine) RegisterDevice(name string, device any, opts DeviceOptions) error {
	if name == "" {
		return errors.WrapInvalid(errors.New("device name must not be empty"),
			"Engine", "RegisterDevice", "validating name")
	}
	if device == nil {
		return errors.WrapInvalid(errors.New("device must not be nil"),
			"Engine", "RegisterDevice", "validating device")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.down {
		return errors.ErrSubmissionRejected
	}
	if existing, ok := e.devices[name]; ok {
		if existing.device != device {
			return errors.ErrDuplicateDevice
		}
		// same object again: keep the routing it was first registered with
		return nil
	}
	if opts.Worker == "" {
		opts.Worker = e.cfg.DefaultWorkerName
	}
	e.devices[name] = deviceRecord{device: device, opts: opts}
	e.logger.Info("device registered", "device", name, "worker", opts.Worker)
	return nil
}

// Device looks up a registered device and its options
func (e *Engine) Device(name string) (any, DeviceOptions, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.devices[name]
	if !ok {
		return nil, DeviceOptions{}, errors.ErrUnknownDevice
	}
	return rec.device, rec.opts, nil
}

// DeviceWorker resolves the worker for one access to a device: the
// per-method override, then the device default, then the engine default
func (e *Engine) DeviceWorker(deviceName, method string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.devices[deviceName]
	if !ok {
		return "", errors.ErrUnknownDevice
	}
	if w, ok := rec.opts.MethodWorkers[method]; ok && w != "" {
		return w, nil
	}
	if rec.opts.Worker != "" {
		return rec.opts.Worker, nil
	}
	return e.cfg.DefaultWorkerName, nil
}

// NewDataHandler creates a data handler wired to this engine: DataStored
// and StorageFailed notifications reach the bus, and the configured
// memory bound applies
func (e *Engine) NewDataHandler(store storage.Backend, opts ...handler.Option) *handler.DataHandler {
	base := []handler.Option{
		handler.WithPublisher(e),
		handler.WithLogger(e.logger),
	}
	if e.cfg.HandlerMemoryBound > 0 {
		base = append(base, handler.WithMemoryBound(e.cfg.HandlerMemoryBound))
	}
	return handler.New(store, append(base, opts...)...)
}

// Config returns the engine's configuration
func (e *Engine) Config() config.Config { return e.cfg }

// Health returns the aggregated engine health
func (e *Engine) Health() health.Status {
	return e.health.AggregateHealth("exengine")
}

// Monitor exposes the health monitor for engine collaborators
func (e *Engine) Monitor() *health.Monitor { return e.health }

// busStopTimeout bounds how long Shutdown waits for notification dispatch
const busStopTimeout = 5 * time.Second

// Shutdown stops the engine. With wait=true every worker drains its
// queue; with wait=false queued (not running) items are cancelled and
// their futures fail with ErrShutdownCancelled. Running items finish per
// their own stop/abort semantics either way. Subsequent submissions are
// rejected. Shutdown is idempotent.
func (e *Engine) Shutdown(wait bool) error {
	e.mu.Lock()
	if e.down {
		e.mu.Unlock()
		return nil
	}
	e.down = true
	workers := make([]*worker, 0, len(e.workers))
	for _, w := range e.workers {
		workers = append(workers, w)
	}
	e.mu.Unlock()

	if wait {
		for _, w := range workers {
			w.drain()
		}
	} else {
		// cancel running work cooperatively, then fail everything queued
		e.cancel()
		for _, w := range workers {
			for _, item := range w.cancel() {
				item.fut.complete(StateFailed, nil, errors.ErrShutdownCancelled)
				terminal := notification.EventExecuted(errors.ErrShutdownCancelled)
				item.fut.RecordNotification(terminal)
				e.PublishNotification(terminal)
			}
		}
	}

	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() error {
			<-w.done
			e.health.Remove("worker:" + w.name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if wait {
		e.cancel()
	}

	if err := e.bus.Stop(busStopTimeout); err != nil {
		e.logger.Warn("notification bus did not stop cleanly", "error", err)
	}
	e.logger.Info("engine shut down", "drained", wait)
	return nil
}
