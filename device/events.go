package device

import (
	"context"
	"fmt"
	"reflect"

	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/event"
)

// MethodCallEvent is the structured event synthesized for a proxied
// method call
type MethodCallEvent struct {
	event.Base
	Target any
	Method string
	Args   []any
}

// Execute implements event.Event
func (e *MethodCallEvent) Execute(ctx context.Context) (any, error) {
	return callMethod(ctx, e.Target, e.Method, e.Args)
}

// GetAttrEvent is the structured event synthesized for a proxied
// attribute read
type GetAttrEvent struct {
	event.Base
	Target any
	Name   string
}

// Execute implements event.Event
func (e *GetAttrEvent) Execute(_ context.Context) (any, error) {
	return getAttr(e.Target, e.Name)
}

// SetAttrEvent is the structured event synthesized for a proxied
// attribute write
type SetAttrEvent struct {
	event.Base
	Target any
	Name   string
	Value  any
}

// Execute implements event.Event
func (e *SetAttrEvent) Execute(_ context.Context) (any, error) {
	return nil, setAttr(e.Target, e.Name, e.Value)
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// callMethod invokes the named method on the target via reflection. When
// the method's first parameter is a context.Context and the caller did
// not supply one, the execution context is injected so nested proxy calls
// share the worker tag. A trailing error result is split off; zero
// results return nil, one returns the value, several return a []any.
func callMethod(ctx context.Context, target any, name string, args []any) (any, error) {
	method := reflect.ValueOf(target).MethodByName(name)
	if !method.IsValid() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no method %q", errors.ErrDeviceAttribute, name),
			"device", "callMethod", name)
	}

	mt := method.Type()
	in := make([]reflect.Value, 0, len(args)+1)
	if mt.NumIn() > 0 && mt.In(0) == ctxType && len(args) == mt.NumIn()-1 {
		in = append(in, reflect.ValueOf(ctx))
	}
	for _, arg := range args {
		idx := len(in)
		if idx >= mt.NumIn() {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q wants %d arguments, got %d",
					errors.ErrDeviceAttribute, name, mt.NumIn(), len(args)),
				"device", "callMethod", name)
		}
		want := mt.In(idx)
		if arg == nil {
			// typed zero value for untyped nil arguments
			in = append(in, reflect.Zero(want))
			continue
		}
		val := reflect.ValueOf(arg)
		if !val.Type().AssignableTo(want) {
			if !val.Type().ConvertibleTo(want) {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: argument %d of %q is %s, want %s",
						errors.ErrDeviceAttribute, idx, name, val.Type(), want),
					"device", "callMethod", name)
			}
			val = val.Convert(want)
		}
		in = append(in, val)
	}
	if len(in) != mt.NumIn() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q wants %d arguments, got %d",
				errors.ErrDeviceAttribute, name, mt.NumIn(), len(in)),
			"device", "callMethod", name)
	}

	outs := method.Call(in)

	// split off a trailing error result
	var callErr error
	if n := len(outs); n > 0 && mt.Out(n-1) == errType {
		if !outs[n-1].IsNil() {
			callErr = outs[n-1].Interface().(error)
		}
		outs = outs[:n-1]
	}
	if callErr != nil {
		return nil, callErr
	}

	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outs[0].Interface(), nil
	default:
		results := make([]any, len(outs))
		for i, out := range outs {
			results[i] = out.Interface()
		}
		return results, nil
	}
}

// getAttr reads an exported struct field by name
func getAttr(target any, name string) (any, error) {
	v := reflect.ValueOf(target)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: device is not a struct", errors.ErrDeviceAttribute),
			"device", "getAttr", name)
	}
	field := v.FieldByName(name)
	if !field.IsValid() || !field.CanInterface() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no attribute %q", errors.ErrDeviceAttribute, name),
			"device", "getAttr", name)
	}
	return field.Interface(), nil
}

// setAttr writes an exported struct field by name. The device must have
// been registered as a pointer for its fields to be settable.
func setAttr(target any, name string, value any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer {
		return errors.WrapInvalid(
			fmt.Errorf("%w: device must be a pointer to set attributes", errors.ErrDeviceAttribute),
			"device", "setAttr", name)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return errors.WrapInvalid(
			fmt.Errorf("%w: device is not a struct", errors.ErrDeviceAttribute),
			"device", "setAttr", name)
	}
	field := v.FieldByName(name)
	if !field.IsValid() || !field.CanSet() {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no settable attribute %q", errors.ErrDeviceAttribute, name),
			"device", "setAttr", name)
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if !val.Type().AssignableTo(field.Type()) {
		if val.Type().ConvertibleTo(field.Type()) {
			val = val.Convert(field.Type())
		} else {
			return errors.WrapInvalid(
				fmt.Errorf("%w: cannot assign %s to attribute %q (%s)",
					errors.ErrDeviceAttribute, val.Type(), name, field.Type()),
				"device", "setAttr", name)
		}
	}
	field.Set(val)
	return nil
}
