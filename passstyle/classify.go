package passstyle

import (
	"math/big"
	"reflect"
	"unicode/utf8"

	"github.com/endojs/endo-sub013/promise"
)

// QClass is the reserved property key used to tag records on the wire. No
// passable object may carry it.
const QClass = "@qclass"

// PassStyleOf classifies v against the default registry.
func PassStyleOf(v any) (PassStyle, error) {
	return defaultRegistry.PassStyleOf(v)
}

// PassStyleOf classifies v, consulting r for registered remotables.
// Rejections are *ClassifyError values wrapping ErrNotPassable.
func (r *Registry) PassStyleOf(v any) (PassStyle, error) {
	switch x := v.(type) {
	case nil:
		return StyleNull, nil
	case *undefinedValue:
		return StyleUndefined, nil
	case bool:
		return StyleBoolean, nil
	case float64:
		return StyleNumber, nil
	case string:
		if !utf8.ValidString(x) {
			return 0, reject(v, "strings must be valid UTF-8")
		}
		return StyleString, nil
	case *big.Int:
		if x == nil {
			return 0, reject(v, "nil *big.Int")
		}
		return StyleBigInt, nil
	case Func:
		return 0, reject(v, "bare functions are not passable")
	case *Symbol:
		return 0, reject(v, "symbols are not passable")
	case *holeValue:
		return 0, reject(v, "holes are not values")
	case *Accessor:
		return 0, reject(v, "accessors are not values")
	case *Record, *Array, *Error, *promise.Promise:
		return r.classifyObject(v)
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func {
		return 0, reject(v, "bare functions are not passable")
	}
	return 0, reject(v, "unsupported Go type %T", v)
}

func (r *Registry) classifyObject(v any) (PassStyle, error) {
	if _, ok := r.LookupInterface(v); ok {
		return StyleRemotable, nil
	}
	if isNilPointer(v) {
		return StyleNull, nil
	}
	if hasReservedKey(v) {
		return 0, reject(v, "property %q reserved", QClass)
	}
	if !IsFrozen(v) {
		return 0, reject(v, "cannot pass non-frozen objects like %v; use Harden", v)
	}
	switch o := v.(type) {
	case *promise.Promise:
		return StylePromise, nil
	case *Record:
		if then, ok := o.Lookup("then"); ok {
			if _, isFunc := then.(Func); isFunc {
				return 0, reject(v, "cannot pass non-promise thenables")
			}
		}
		if isCopyRecord(o) {
			for _, k := range o.keys {
				if !utf8.ValidString(k) {
					return 0, reject(v, "property names must be valid UTF-8")
				}
			}
			return StyleCopyRecord, nil
		}
		if err := checkRemoteShape(o); err != nil {
			return 0, err
		}
		return StyleRemotable, nil
	case *Error:
		if err := checkCopyError(o); err != nil {
			return 0, err
		}
		return StyleCopyError, nil
	case *Array:
		if err := checkCopyArray(o); err != nil {
			return 0, err
		}
		return StyleCopyArray, nil
	}
	return 0, reject(v, "unsupported Go type %T", v)
}

func isNilPointer(v any) bool {
	switch o := v.(type) {
	case *Record:
		return o == nil
	case *Array:
		return o == nil
	case *Error:
		return o == nil
	case *promise.Promise:
		return o == nil
	}
	return false
}

// hasReservedKey reports whether v carries QClass as an own property or,
// for records, anywhere on the prototype chain.
func hasReservedKey(v any) bool {
	switch o := v.(type) {
	case *Record:
		_, ok := o.Lookup(QClass)
		return ok
	case *Array:
		_, ok := o.Property(QClass)
		return ok
	case *Error:
		_, ok := o.Property(QClass)
		return ok
	}
	return false
}

func checkCopyError(e *Error) error {
	name := e.Name()
	if !IsErrorConstructor(e.ctor) || name != e.ctor {
		return reject(e, "errors must inherit from an allowed error constructor, got %q named %q", e.ctor, name)
	}
	if len(e.extraKeys) > 0 {
		return reject(e, "unexpected own properties in error: %v", e.extraKeys)
	}
	msg, ok := e.message.(string)
	if !ok {
		return reject(e, "malformed error object: message is %T", e.message)
	}
	if !utf8.ValidString(msg) {
		return reject(e, "error messages must be valid UTF-8")
	}
	return nil
}

func checkCopyArray(a *Array) error {
	for _, el := range a.elems {
		switch el.(type) {
		case *holeValue:
			return reject(a, "arrays must not contain holes")
		case *Accessor:
			return reject(a, "arrays must not contain accessors")
		case Func:
			return reject(a, "arrays must not contain methods")
		}
	}
	if len(a.extraKeys) > 0 {
		return reject(a, "arrays must not have non-indexes: %v", a.extraKeys)
	}
	return nil
}

func isCopyRecord(rec *Record) bool {
	if rec.proto != nil || len(rec.keys) == 0 {
		return false
	}
	for _, k := range rec.keys {
		switch rec.props[k].(type) {
		case *Accessor, Func:
			return false
		}
	}
	return true
}

// checkRemoteShape verifies that every own property of rec, and of every
// prototype on its chain, is a method.
func checkRemoteShape(rec *Record) error {
	if _, ok := rec.Lookup(QClass); ok {
		return reject(rec, "property %q reserved", QClass)
	}
	for o := rec; o != nil; o = o.proto {
		for _, k := range o.keys {
			if _, ok := o.props[k].(Func); !ok {
				return reject(rec, "cannot pass objects with non-methods like .%s", k)
			}
		}
	}
	return nil
}
