package device

import (
	"context"

	"github.com/c360/exengine/engine"
	"github.com/c360/exengine/event"
)

// Optional capability hooks a device may implement to describe its
// properties. Queries go through the executor like any other access.

// AllowedValuer reports the finite set of values a property accepts, or
// nil when the property is unconstrained
type AllowedValuer interface {
	AllowedValues(name string) []any
}

// ReadOnlyReporter reports whether a property rejects writes
type ReadOnlyReporter interface {
	IsReadOnly(name string) bool
}

// Limiter reports a numeric property's range. ok=false means no limits.
type Limiter interface {
	Limits(name string) (low, high float64, ok bool)
}

// HardwareTriggerReporter reports whether a property can be sequenced by
// a hardware trigger
type HardwareTriggerReporter interface {
	IsHardwareTriggerable(name string) bool
}

// PropertyInfo is a read-only view of one property's constraints
type PropertyInfo struct {
	Name string
	// AllowedValues is nil when the property accepts arbitrary values
	AllowedValues []any
	ReadOnly      bool
	// HasLimits guards Low/High
	HasLimits bool
	Low       float64
	High      float64
	// HardwareTriggerable is true when the property can be driven by a
	// hardware trigger sequence
	HardwareTriggerable bool
}

// PropertyInfo queries the device's capability hooks on its worker and
// returns the assembled constraints. Hooks the device does not implement
// leave their zero values.
func (p *Proxy) PropertyInfo(ctx context.Context, name string) (PropertyInfo, error) {
	worker, err := p.engine.DeviceWorker(p.name, name)
	if err != nil {
		return PropertyInfo{}, err
	}

	query := func(context.Context) (any, error) {
		info := PropertyInfo{Name: name}
		if av, ok := p.target.(AllowedValuer); ok {
			info.AllowedValues = av.AllowedValues(name)
		}
		if ro, ok := p.target.(ReadOnlyReporter); ok {
			info.ReadOnly = ro.IsReadOnly(name)
		}
		if lim, ok := p.target.(Limiter); ok {
			info.Low, info.High, info.HasLimits = lim.Limits(name)
		}
		if ht, ok := p.target.(HardwareTriggerReporter); ok {
			info.HardwareTriggerable = ht.IsHardwareTriggerable(name)
		}
		return info, nil
	}

	if p.bypassed(name) || p.inline(ctx, worker) {
		result, _ := query(ctx)
		return result.(PropertyInfo), nil
	}

	fut, err := p.engine.Submit(event.Callable(query), engine.OnWorker(worker))
	if err != nil {
		return PropertyInfo{}, err
	}
	result, err := fut.Await(ctx)
	if err != nil {
		return PropertyInfo{}, err
	}
	return result.(PropertyInfo), nil
}
