package marshal

import (
	"fmt"
	"math"
	"math/big"

	"github.com/endojs/endo-sub013/passstyle"
)

// Unserialize rebuilds the value encoded in data. Back-references to nodes
// still under construction are handled according to policy. The result is
// hardened once the whole graph is built.
func (m *Marshal) Unserialize(data CapData, policy CyclePolicy) (any, error) {
	switch policy {
	case ForbidCycles, AllowCycles, WarnOfCycles:
	default:
		return nil, fmt.Errorf("marshal: unrecognized cycle policy %v", policy)
	}
	if data.Slots == nil {
		return nil, fmt.Errorf("%w: slots is not an array", ErrMalformedCapData)
	}
	tree, err := parseBody(data.Body)
	if err != nil {
		return nil, err
	}

	r := &reviver{
		m:          m,
		slots:      data.Slots,
		policy:     policy,
		unfinished: make(map[int]bool),
		slotVals:   make(map[int]any),
	}
	v, err := r.revive(tree)
	if err != nil {
		return nil, err
	}
	return passstyle.Harden(v), nil
}

// ---------------------------------------------------------------------------
// reviver: the back-reference table for one Unserialize call
// ---------------------------------------------------------------------------

type reviver struct {
	m      *Marshal
	slots  []string
	policy CyclePolicy

	ibids      []any
	unfinished map[int]bool
	slotVals   map[int]any
}

func (r *reviver) register(v any) any {
	r.ibids = append(r.ibids, v)
	return v
}

func (r *reviver) start(v any) int {
	r.ibids = append(r.ibids, v)
	idx := len(r.ibids) - 1
	r.unfinished[idx] = true
	return idx
}

func (r *reviver) finish(idx int) {
	delete(r.unfinished, idx)
}

func (r *reviver) get(raw any) (any, error) {
	idx, ok := natIndex(raw)
	if !ok {
		return nil, fmt.Errorf("%w: ibid index %v", ErrMalformedCapData, raw)
	}
	if idx >= len(r.ibids) {
		return nil, fmt.Errorf("%w: %d", ErrIbidOutOfRange, idx)
	}
	if r.unfinished[idx] {
		switch r.policy {
		case AllowCycles:
		case WarnOfCycles:
			r.m.log.Warningf("ibid cycle at %d", idx)
		default:
			return nil, fmt.Errorf("%w at %d", ErrCycle, idx)
		}
	}
	return r.ibids[idx], nil
}

func (r *reviver) revive(raw any) (any, error) {
	switch node := raw.(type) {
	case []any:
		arr := passstyle.NewArray()
		idx := r.start(arr)
		for _, el := range node {
			v, err := r.revive(el)
			if err != nil {
				return nil, err
			}
			_ = arr.Append(v)
		}
		r.finish(idx)
		return arr, nil
	case *rawObject:
		if _, tagged := node.get(passstyle.QClass); tagged {
			return r.reviveTagged(node)
		}
		rec := passstyle.NewRecord()
		idx := r.start(rec)
		for _, key := range node.keys {
			v, err := r.revive(node.vals[key])
			if err != nil {
				return nil, err
			}
			_ = rec.Set(key, v)
		}
		r.finish(idx)
		return rec, nil
	default:
		// nil, bool, float64 and string pass through.
		return raw, nil
	}
}

func (r *reviver) reviveTagged(node *rawObject) (any, error) {
	qv, _ := node.get(passstyle.QClass)
	qclass, ok := qv.(string)
	if !ok {
		return nil, fmt.Errorf("%w: @qclass is %T", ErrUnrecognizedTag, qv)
	}

	switch qclass {
	case "undefined":
		return passstyle.Undefined, nil
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	case "bigint":
		digits, err := stringField(node, "digits")
		if err != nil {
			return nil, err
		}
		n, ok := new(big.Int).SetString(digits, 10)
		if !ok {
			return nil, fmt.Errorf("%w: invalid bigint digits %q", ErrMalformedCapData, digits)
		}
		return n, nil
	case "ibid":
		index, _ := node.get("index")
		return r.get(index)
	case "error":
		name, err := stringField(node, "name")
		if err != nil {
			return nil, err
		}
		message, err := stringField(node, "message")
		if err != nil {
			return nil, err
		}
		return r.register(passstyle.MakeError(name, message)), nil
	case "slot":
		return r.reviveSlot(node)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnrecognizedTag, qclass)
	}
}

func (r *reviver) reviveSlot(node *rawObject) (any, error) {
	rawIndex, _ := node.get("index")
	idx, ok := natIndex(rawIndex)
	if !ok {
		return nil, fmt.Errorf("%w: slot index %v", ErrMalformedCapData, rawIndex)
	}
	if idx >= len(r.slots) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, idx, len(r.slots))
	}
	var iface string
	if raw, ok := node.get("iface"); ok {
		if iface, ok = raw.(string); !ok {
			return nil, fmt.Errorf("%w: slot iface is %T", ErrMalformedCapData, raw)
		}
	}

	v, ok := r.slotVals[idx]
	if !ok {
		var err error
		v, err = r.m.slotToVal(r.slots[idx], iface)
		if err != nil {
			return nil, fmt.Errorf("marshal: unserialize slot %d: %w", idx, err)
		}
		r.slotVals[idx] = v
	}
	return r.register(v), nil
}

func stringField(node *rawObject, key string) (string, error) {
	raw, _ := node.get(key)
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not string", ErrMalformedCapData, key, raw)
	}
	return s, nil
}
