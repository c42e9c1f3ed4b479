package passstyle

import "fmt"

// ---------------------------------------------------------------------------
// Record: an ordered property bag with an optional prototype
// ---------------------------------------------------------------------------

// Record is an object with string-keyed own properties kept in insertion
// order. A nil prototype stands for the bare object prototype.
//
// A property whose value is a Func is a method. A property whose value is an
// *Accessor is an accessor property. Everything else is a data property.
type Record struct {
	proto  *Record
	keys   []string
	props  map[string]any
	frozen bool
}

// NewRecord returns an empty, unfrozen record with the bare object prototype.
func NewRecord() *Record {
	return &Record{props: make(map[string]any)}
}

// NewRecordWithProto returns an empty record inheriting from proto.
func NewRecordWithProto(proto *Record) *Record {
	r := NewRecord()
	r.proto = proto
	return r
}

// RecordOf builds a record from alternating key/value pairs.
// It panics if pairs has odd length or a key is not a string.
func RecordOf(pairs ...any) *Record {
	if len(pairs)%2 != 0 {
		panic("passstyle: RecordOf needs key/value pairs")
	}
	r := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("passstyle: RecordOf key %v is not a string", pairs[i]))
		}
		r.put(key, pairs[i+1])
	}
	return r
}

func (r *Record) put(key string, v any) {
	if _, exists := r.props[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.props[key] = v
}

// Set defines or replaces an own data (or method) property.
func (r *Record) Set(key string, v any) error {
	if r.frozen {
		return fmt.Errorf("set %q: %w", key, ErrFrozen)
	}
	r.put(key, v)
	return nil
}

// DefineAccessor defines an accessor property.
func (r *Record) DefineAccessor(key string, acc *Accessor) error {
	return r.Set(key, acc)
}

// Delete removes an own property.
func (r *Record) Delete(key string) error {
	if r.frozen {
		return fmt.Errorf("delete %q: %w", key, ErrFrozen)
	}
	if _, ok := r.props[key]; !ok {
		return nil
	}
	delete(r.props, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns an own property value. Accessor properties return their
// *Accessor.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.props[key]
	return v, ok
}

// Lookup finds key on the record or along its prototype chain.
func (r *Record) Lookup(key string) (any, bool) {
	for o := r; o != nil; o = o.proto {
		if v, ok := o.props[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether key is an own property.
func (r *Record) Has(key string) bool {
	_, ok := r.props[key]
	return ok
}

// Keys returns the own property keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of own properties.
func (r *Record) Len() int { return len(r.keys) }

// Proto returns the prototype, nil for the bare object prototype.
func (r *Record) Proto() *Record { return r.proto }

// SetProto replaces the prototype of an unfrozen record.
func (r *Record) SetProto(proto *Record) error {
	if r.frozen {
		return fmt.Errorf("set prototype: %w", ErrFrozen)
	}
	r.proto = proto
	return nil
}

// Frozen reports whether the record itself is frozen.
func (r *Record) Frozen() bool { return r.frozen }

// Freeze makes the record itself immutable. It does not touch property
// values or the prototype; use Harden for that.
func (r *Record) Freeze() { r.frozen = true }

// Method calls the named method found on the record or its prototype chain.
func (r *Record) Method(name string, args ...any) (any, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("passstyle: no method %q", name)
	}
	fn, ok := v.(Func)
	if !ok {
		return nil, fmt.Errorf("passstyle: property %q is not a method", name)
	}
	return fn(args...)
}

func (r *Record) String() string {
	return fmt.Sprintf("Record(%d keys)", len(r.keys))
}
