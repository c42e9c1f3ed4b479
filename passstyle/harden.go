package passstyle

// Harden freezes v and everything reachable from it: property values,
// array elements, extra properties and prototype chains. It returns v.
// Cyclic graphs are handled.
func Harden(v any) any {
	h := hardener{seen: make(map[any]bool)}
	h.walk(v)
	return v
}

type hardener struct {
	seen map[any]bool
}

func (h *hardener) walk(v any) {
	switch o := v.(type) {
	case *Record:
		if o == nil || h.seen[o] {
			return
		}
		h.seen[o] = true
		o.frozen = true
		for _, k := range o.keys {
			h.walk(o.props[k])
		}
		h.walk(o.proto)
	case *Array:
		if o == nil || h.seen[o] {
			return
		}
		h.seen[o] = true
		o.frozen = true
		for _, el := range o.elems {
			h.walk(el)
		}
		for _, k := range o.extraKeys {
			h.walk(o.extra[k])
		}
	case *Error:
		if o == nil || h.seen[o] {
			return
		}
		h.seen[o] = true
		o.frozen = true
		h.walk(o.message)
		for _, k := range o.extraKeys {
			h.walk(o.extra[k])
		}
	}
}

// IsFrozen reports whether v is immutable at its top level. Primitives and
// promises are always frozen.
func IsFrozen(v any) bool {
	switch o := v.(type) {
	case *Record:
		return o.frozen
	case *Array:
		return o.frozen
	case *Error:
		return o.frozen
	default:
		return true
	}
}
