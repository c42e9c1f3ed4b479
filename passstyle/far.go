package passstyle

import "fmt"

// Far builds a hardened method-only record from alternating name/Func pairs
// and registers it in the default registry as "Alleged: " + iface.
// It panics if pairs is malformed, which is a programming error.
func Far(iface string, pairs ...any) *Record {
	return defaultRegistry.Far(iface, pairs...)
}

// Far is like the package-level Far but registers in r.
func (r *Registry) Far(iface string, pairs ...any) *Record {
	if len(pairs)%2 != 0 {
		panic("passstyle: Far needs name/method pairs")
	}
	obj := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("passstyle: Far method name %v is not a string", pairs[i]))
		}
		fn, ok := asFunc(pairs[i+1])
		if !ok {
			panic(fmt.Sprintf("passstyle: Far method %q is %T, not a method", name, pairs[i+1]))
		}
		obj.put(name, fn)
	}
	out, err := r.Register(obj, "Alleged: "+iface)
	if err != nil {
		panic(err)
	}
	return out
}

func asFunc(v any) (Func, bool) {
	switch fn := v.(type) {
	case Func:
		return fn, true
	case func(args ...any) (any, error):
		return Func(fn), true
	}
	return nil, false
}
