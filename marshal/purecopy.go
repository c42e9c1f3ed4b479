package marshal

import (
	"fmt"
	"math/big"

	"github.com/endojs/endo-sub013/passstyle"
)

// PureCopy returns a hardened copy of pass-by-copy data that shares no
// objects with v. Shared and cyclic substructure map to the same copy.
// Errors are rebuilt from name and message alone through the constructor
// allow-list. Remotables and promises cannot be copied.
func PureCopy(v any) (any, error) {
	return pureCopy(passstyle.DefaultRegistry(), v)
}

// PureCopy is like the package-level PureCopy but classifies against the
// Marshal's registry.
func (m *Marshal) PureCopy(v any) (any, error) {
	return pureCopy(m.registry, v)
}

func pureCopy(reg *passstyle.Registry, v any) (any, error) {
	c := copier{reg: reg, copies: make(map[any]any)}
	out, err := c.copy(v)
	if err != nil {
		return nil, err
	}
	return passstyle.Harden(out), nil
}

type copier struct {
	reg *passstyle.Registry
	// copies is keyed by the original node.
	copies map[any]any
}

func (c *copier) copy(v any) (any, error) {
	style, err := c.reg.PassStyleOf(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: pure copy: %w", err)
	}

	switch style {
	case passstyle.StyleBigInt:
		return new(big.Int).Set(v.(*big.Int)), nil
	case passstyle.StyleRemotable, passstyle.StylePromise:
		return nil, fmt.Errorf("%w: %v", ErrNotCopyable, style)
	case passstyle.StyleCopyArray, passstyle.StyleCopyRecord, passstyle.StyleCopyError:
		if done, ok := c.copies[v]; ok {
			return done, nil
		}
	default:
		return v, nil
	}

	switch orig := v.(type) {
	case *passstyle.Array:
		out := passstyle.NewArray()
		c.copies[v] = out
		for i := 0; i < orig.Len(); i++ {
			el, err := c.copy(orig.At(i))
			if err != nil {
				return nil, err
			}
			_ = out.Append(el)
		}
		return out, nil
	case *passstyle.Record:
		out := passstyle.NewRecord()
		c.copies[v] = out
		for _, key := range orig.Keys() {
			pv, _ := orig.Get(key)
			el, err := c.copy(pv)
			if err != nil {
				return nil, err
			}
			_ = out.Set(key, el)
		}
		return out, nil
	case *passstyle.Error:
		out := passstyle.MakeError(orig.Name(), orig.Message())
		c.copies[v] = out
		return out, nil
	}
	return nil, fmt.Errorf("marshal: pure copy: unexpected %T", v)
}
