package device

import (
	"context"

	"github.com/c360/exengine/engine"
)

// Proxy is the access path to one registered device. Every Get, Set, and
// Call is serialized onto the device's assigned worker unless the name is
// in the bypass set or the caller is already running on that worker.
type Proxy struct {
	engine *engine.Engine
	name   string
	target any
	opts   engine.DeviceOptions
	bypass map[string]struct{}
}

// NewProxy creates the proxy for a device previously registered with the
// engine. Callers should drop their direct reference to the raw device
// and address it only through the proxy from then on.
func NewProxy(e *engine.Engine, deviceName string) (*Proxy, error) {
	target, opts, err := e.Device(deviceName)
	if err != nil {
		return nil, err
	}
	bypass := make(map[string]struct{}, len(opts.Bypass))
	for _, n := range opts.Bypass {
		bypass[n] = struct{}{}
	}
	return &Proxy{
		engine: e,
		name:   deviceName,
		target: target,
		opts:   opts,
		bypass: bypass,
	}, nil
}

// Name returns the registered device name
func (p *Proxy) Name() string { return p.name }

// bypassed reports whether the name skips the executor entirely
func (p *Proxy) bypassed(name string) bool {
	if p.opts.FullBypass {
		return true
	}
	_, ok := p.bypass[name]
	return ok
}

// inline reports whether the calling goroutine is already the target
// worker, in which case the access runs in place to avoid deadlock
func (p *Proxy) inline(ctx context.Context, worker string) bool {
	current, ok := engine.WorkerFromContext(ctx)
	return ok && current == worker
}

// Call invokes a device method on the device's worker and blocks until it
// completes, returning the method's result or re-raising its error.
func (p *Proxy) Call(ctx context.Context, method string, args ...any) (any, error) {
	if p.bypassed(method) {
		return callMethod(ctx, p.target, method, args)
	}
	worker, err := p.engine.DeviceWorker(p.name, method)
	if err != nil {
		return nil, err
	}
	if p.inline(ctx, worker) {
		return callMethod(ctx, p.target, method, args)
	}

	ev := &MethodCallEvent{Target: p.target, Method: method, Args: args}
	fut, err := p.engine.Submit(ev, engine.OnWorker(worker))
	if err != nil {
		return nil, err
	}
	return fut.Await(ctx)
}

// Get reads a device attribute on the device's worker
func (p *Proxy) Get(ctx context.Context, name string) (any, error) {
	if p.bypassed(name) {
		return getAttr(p.target, name)
	}
	worker, err := p.engine.DeviceWorker(p.name, name)
	if err != nil {
		return nil, err
	}
	if p.inline(ctx, worker) {
		return getAttr(p.target, name)
	}

	ev := &GetAttrEvent{Target: p.target, Name: name}
	fut, err := p.engine.Submit(ev, engine.OnWorker(worker))
	if err != nil {
		return nil, err
	}
	return fut.Await(ctx)
}

// Set writes a device attribute on the device's worker, blocking until
// the assignment has taken effect
func (p *Proxy) Set(ctx context.Context, name string, value any) error {
	if p.bypassed(name) {
		return setAttr(p.target, name, value)
	}
	worker, err := p.engine.DeviceWorker(p.name, name)
	if err != nil {
		return err
	}
	if p.inline(ctx, worker) {
		return setAttr(p.target, name, value)
	}

	ev := &SetAttrEvent{Target: p.target, Name: name, Value: value}
	fut, err := p.engine.Submit(ev, engine.OnWorker(worker))
	if err != nil {
		return err
	}
	_, err = fut.Await(ctx)
	return err
}

// Worker resolves the worker one access to the named attribute or method
// would run on
func (p *Proxy) Worker(name string) (string, error) {
	return p.engine.DeviceWorker(p.name, name)
}
