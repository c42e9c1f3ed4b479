package passstyle

import "fmt"

// Array is an ordered sequence of values. Missing elements are Hole. An
// array may also carry named non-index properties, which make it
// unpassable.
type Array struct {
	elems     []any
	extraKeys []string
	extra     map[string]any
	frozen    bool
}

// NewArray returns an unfrozen array holding elems.
func NewArray(elems ...any) *Array {
	a := &Array{elems: make([]any, len(elems))}
	copy(a.elems, elems)
	return a
}

// Len returns the array length, holes included.
func (a *Array) Len() int { return len(a.elems) }

// At returns element i, or Hole when i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.elems) {
		return Hole
	}
	return a.elems[i]
}

// Elements returns a copy of the elements.
func (a *Array) Elements() []any {
	out := make([]any, len(a.elems))
	copy(out, a.elems)
	return out
}

// Append adds elements to the end of the array.
func (a *Array) Append(vs ...any) error {
	if a.frozen {
		return fmt.Errorf("append: %w", ErrFrozen)
	}
	a.elems = append(a.elems, vs...)
	return nil
}

// SetAt stores v at index i, growing the array with holes if needed.
func (a *Array) SetAt(i int, v any) error {
	if a.frozen {
		return fmt.Errorf("set index %d: %w", i, ErrFrozen)
	}
	if i < 0 {
		return fmt.Errorf("passstyle: negative array index %d", i)
	}
	for len(a.elems) <= i {
		a.elems = append(a.elems, Hole)
	}
	a.elems[i] = v
	return nil
}

// SetProperty defines a named non-index property.
func (a *Array) SetProperty(key string, v any) error {
	if a.frozen {
		return fmt.Errorf("set %q: %w", key, ErrFrozen)
	}
	if a.extra == nil {
		a.extra = make(map[string]any)
	}
	if _, ok := a.extra[key]; !ok {
		a.extraKeys = append(a.extraKeys, key)
	}
	a.extra[key] = v
	return nil
}

// Property returns a named non-index property.
func (a *Array) Property(key string) (any, bool) {
	v, ok := a.extra[key]
	return v, ok
}

// PropertyKeys returns the named non-index property keys in insertion order.
func (a *Array) PropertyKeys() []string {
	out := make([]string, len(a.extraKeys))
	copy(out, a.extraKeys)
	return out
}

// Frozen reports whether the array itself is frozen.
func (a *Array) Frozen() bool { return a.frozen }

// Freeze makes the array itself immutable.
func (a *Array) Freeze() { a.frozen = true }

func (a *Array) String() string {
	return fmt.Sprintf("Array(%d)", len(a.elems))
}
