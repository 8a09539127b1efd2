package coords

// Ternary is a three-valued answer for questions that cannot always be
// decided without forcing enumeration of a lazy sequence.
type Ternary int8

const (
	// No means definitely not
	No Ternary = iota
	// Unknown means the question cannot be decided cheaply
	Unknown
	// Yes means definitely yes
	Yes
)

// String returns the string representation of a Ternary
func (t Ternary) String() string {
	switch t {
	case No:
		return "no"
	case Yes:
		return "yes"
	default:
		return "unknown"
	}
}

// Iterator is a lazy sequence of Coordinates, finite or infinite.
// Next is single-pass; use Reset (where offered) or recreate the iterator
// to enumerate again.
type Iterator interface {
	// Next returns the next coordinates, or ok=false when exhausted
	Next() (Coordinates, bool)
	// MayProduce reports whether c could appear in this sequence without
	// enumerating past entries not yet produced
	MayProduce(c Coordinates) Ternary
	// IsFinite reports whether the sequence eventually ends
	IsFinite() bool
	// Len returns the total length when known
	Len() (int, bool)
}

// SliceIterator is a finite iterator backed by a slice
type SliceIterator struct {
	items []Coordinates
	pos   int
}

// FromSlice creates a finite iterator over the given coordinates
func FromSlice(items []Coordinates) *SliceIterator {
	copied := make([]Coordinates, len(items))
	copy(copied, items)
	return &SliceIterator{items: copied}
}

// Single creates a finite iterator producing exactly one coordinates value
func Single(c Coordinates) *SliceIterator {
	return FromSlice([]Coordinates{c})
}

// Next implements Iterator
func (it *SliceIterator) Next() (Coordinates, bool) {
	if it.pos >= len(it.items) {
		return Coordinates{}, false
	}
	c := it.items[it.pos]
	it.pos++
	return c, true
}

// MayProduce checks membership in the backing slice
func (it *SliceIterator) MayProduce(c Coordinates) Ternary {
	for _, item := range it.items {
		if item.Equal(c) {
			return Yes
		}
	}
	return No
}

// IsFinite always returns true
func (it *SliceIterator) IsFinite() bool { return true }

// Len returns the backing slice length
func (it *SliceIterator) Len() (int, bool) { return len(it.items), true }

// Reset rewinds the iterator to the beginning
func (it *SliceIterator) Reset() { it.pos = 0 }

// FuncIterator is a lazy, possibly infinite iterator driven by a generator
// function. Membership cannot be decided without enumeration, so
// MayProduce answers Unknown.
type FuncIterator struct {
	next   func() (Coordinates, bool)
	finite bool
}

// FromFunc creates an iterator from a generator function. The function
// returns ok=false when the sequence is exhausted; pass finite=false for
// sequences that never end.
func FromFunc(next func() (Coordinates, bool), finite bool) *FuncIterator {
	return &FuncIterator{next: next, finite: finite}
}

// Next implements Iterator
func (it *FuncIterator) Next() (Coordinates, bool) { return it.next() }

// MayProduce always answers Unknown for generator-backed sequences
func (it *FuncIterator) MayProduce(Coordinates) Ternary { return Unknown }

// IsFinite reports the hint given at construction
func (it *FuncIterator) IsFinite() bool { return it.finite }

// Len is unknown for generator-backed sequences
func (it *FuncIterator) Len() (int, bool) { return 0, false }

// CountingIterator produces {axis: 0}, {axis: 1}, ... without end. It is
// the default sequence for data-producing events that do not declare their
// coordinates up front.
type CountingIterator struct {
	axis string
	next int64
}

// Counting creates an infinite counting iterator over the named axis
func Counting(axis string) *CountingIterator {
	return &CountingIterator{axis: axis}
}

// Next implements Iterator
func (it *CountingIterator) Next() (Coordinates, bool) {
	c := New(A(it.axis, Int(it.next)))
	it.next++
	return c, true
}

// MayProduce answers Yes for any single-axis coordinates on the counting
// axis with a non-negative value, No otherwise. The increment pattern is
// known, so this does not require enumeration.
func (it *CountingIterator) MayProduce(c Coordinates) Ternary {
	if c.Len() != 1 {
		return No
	}
	v, ok := c.Get(it.axis)
	if !ok || !v.IsInt() || v.Int() < 0 {
		return No
	}
	return Yes
}

// IsFinite always returns false
func (it *CountingIterator) IsFinite() bool { return false }

// Len is unknown for an endless sequence
func (it *CountingIterator) Len() (int, bool) { return 0, false }

// Range creates a finite iterator {axis: 0} .. {axis: n-1}
func Range(axis string, n int) *SliceIterator {
	items := make([]Coordinates, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, New(A(axis, Int(int64(i)))))
	}
	return FromSlice(items)
}
