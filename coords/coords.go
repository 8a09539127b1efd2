// Package coords provides n-dimensional coordinates identifying a single
// piece of acquired data (conventionally, one 2D image). Coordinates map
// axis names to integer or string values, preserve insertion order for
// display, and compare order-insensitively for identity.
package coords

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is an axis value: either an integer or a string
type Value struct {
	str   string
	num   int64
	isInt bool
}

// Int creates an integer axis value
func Int(i int64) Value {
	return Value{num: i, isInt: true}
}

// Str creates a string axis value
func Str(s string) Value {
	return Value{str: s}
}

// IsInt reports whether the value is an integer
func (v Value) IsInt() bool { return v.isInt }

// Int returns the integer value (zero for string values)
func (v Value) Int() int64 { return v.num }

// Str returns the string value (empty for integer values)
func (v Value) Str() string { return v.str }

// Equal compares two values
func (v Value) Equal(other Value) bool {
	if v.isInt != other.isInt {
		return false
	}
	if v.isInt {
		return v.num == other.num
	}
	return v.str == other.str
}

// String renders the value for display and canonical keys
func (v Value) String() string {
	if v.isInt {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// MarshalJSON encodes integers as JSON numbers and strings as JSON strings
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isInt {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

// UnmarshalJSON accepts JSON numbers (integral) and strings
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return fmt.Errorf("axis value must be an integer: %w", err)
		}
		*v = Int(i)
		return nil
	case string:
		*v = Str(t)
		return nil
	default:
		return fmt.Errorf("axis value must be an integer or string, got %T", tok)
	}
}

// Axis is a single (name, value) pair
type Axis struct {
	Name  string
	Value Value
}

// Coordinates is an ordered mapping from axis name to axis value.
// The zero value is an empty set of coordinates ready for use.
// Axes may be added up until the coordinates are submitted with data;
// after that they must be treated as immutable.
type Coordinates struct {
	axes []Axis
}

// New creates coordinates from ordered axes
func New(axes ...Axis) Coordinates {
	c := Coordinates{axes: make([]Axis, 0, len(axes))}
	for _, a := range axes {
		c.Set(a.Name, a.Value)
	}
	return c
}

// A creates an axis pair, for compact construction:
//
//	coords.New(coords.A("time", coords.Int(0)), coords.A("channel", coords.Str("DAPI")))
func A(name string, value Value) Axis {
	return Axis{Name: name, Value: value}
}

// TCZ creates coordinates with the conventional time/channel/z axes.
// Axes with zero-value channel "" are omitted.
func TCZ(time int64, channel string, z int64) Coordinates {
	c := Coordinates{}
	c.Set("time", Int(time))
	if channel != "" {
		c.Set("channel", Str(channel))
	}
	c.Set("z", Int(z))
	return c
}

// FromMap creates coordinates from an unordered map; axes are sorted by
// name so the result is deterministic. Values must be integers or strings.
func FromMap(m map[string]any) (Coordinates, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	c := Coordinates{}
	for _, name := range names {
		switch val := m[name].(type) {
		case int:
			c.Set(name, Int(int64(val)))
		case int64:
			c.Set(name, Int(val))
		case string:
			c.Set(name, Str(val))
		case float64:
			// JSON numbers decode as float64; accept integral values only
			if val != float64(int64(val)) {
				return Coordinates{}, fmt.Errorf("axis %q: non-integral value %v", name, val)
			}
			c.Set(name, Int(int64(val)))
		default:
			return Coordinates{}, fmt.Errorf("axis %q: unsupported value type %T", name, val)
		}
	}
	return c, nil
}

// Set adds or replaces an axis, preserving insertion order for new axes
func (c *Coordinates) Set(name string, value Value) {
	for i := range c.axes {
		if c.axes[i].Name == name {
			c.axes[i].Value = value
			return
		}
	}
	c.axes = append(c.axes, Axis{Name: name, Value: value})
}

// Get looks up an axis value by name
func (c Coordinates) Get(name string) (Value, bool) {
	for _, a := range c.axes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// Contains reports whether the axis exists
func (c Coordinates) Contains(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Len returns the number of axes
func (c Coordinates) Len() int { return len(c.axes) }

// Axes returns the axes in insertion order. The returned slice is a copy.
func (c Coordinates) Axes() []Axis {
	out := make([]Axis, len(c.axes))
	copy(out, c.axes)
	return out
}

// Clone returns an independent copy
func (c Coordinates) Clone() Coordinates {
	return Coordinates{axes: c.Axes()}
}

// Equal compares the axis multisets; insertion order is not significant
func (c Coordinates) Equal(other Coordinates) bool {
	if len(c.axes) != len(other.axes) {
		return false
	}
	for _, a := range c.axes {
		v, ok := other.Get(a.Name)
		if !ok || !v.Equal(a.Value) {
			return false
		}
	}
	return true
}

// Key returns a canonical string for use as a map key. Axes are sorted by
// name, so coordinates that are Equal always share a key.
func (c Coordinates) Key() string {
	axes := c.Axes()
	sort.Slice(axes, func(i, j int) bool { return axes[i].Name < axes[j].Name })

	var sb strings.Builder
	for i, a := range axes {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(a.Name)
		sb.WriteByte('=')
		if a.Value.IsInt() {
			sb.WriteByte('#')
		}
		sb.WriteString(a.Value.String())
	}
	return sb.String()
}

// Map returns a plain map of the coordinate values
func (c Coordinates) Map() map[string]any {
	m := make(map[string]any, len(c.axes))
	for _, a := range c.axes {
		if a.Value.IsInt() {
			m[a.Name] = a.Value.Int()
		} else {
			m[a.Name] = a.Value.Str()
		}
	}
	return m
}

// String renders the coordinates for logs and errors
func (c Coordinates) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, a := range c.axes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Name)
		sb.WriteString(": ")
		sb.WriteString(a.Value.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// MarshalJSON encodes the coordinates as a JSON object in insertion order
func (c Coordinates) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c.axes {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("coordinates must be a JSON object")
	}

	out := Coordinates{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := valTok.(type) {
		case json.Number:
			i, err := t.Int64()
			if err != nil {
				return fmt.Errorf("axis %q: %w", name, err)
			}
			out.Set(name, Int(i))
		case string:
			out.Set(name, Str(t))
		default:
			return fmt.Errorf("axis %q: unsupported value %v", name, valTok)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = out
	return nil
}
