package marshal

import (
	"fmt"
	"math"
	"math/big"

	"github.com/endojs/endo-sub013/passstyle"
	jsoniter "github.com/json-iterator/go"
)

// Serialize encodes v as CapData. Array elements are visited by ascending
// index and record properties in insertion order; unserialize numbers
// back-references in the same order.
func (m *Marshal) Serialize(v any) (CapData, error) {
	stream := bodyAPI.BorrowStream(nil)
	defer bodyAPI.ReturnStream(stream)

	s := &serializer{
		m:       m,
		stream:  stream,
		seen:    make(map[any]int),
		slotIdx: make(map[any]int),
		slots:   []string{},
	}
	if err := s.encode(v); err != nil {
		return CapData{}, err
	}
	if stream.Error != nil {
		return CapData{}, fmt.Errorf("marshal: serialize: %w", stream.Error)
	}
	return CapData{Body: string(stream.Buffer()), Slots: s.slots}, nil
}

// serializer holds the tables for one Serialize call.
type serializer struct {
	m      *Marshal
	stream *jsoniter.Stream

	// seen maps each copied composite to its back-reference index.
	seen map[any]int
	// ibids counts back-reference indices handed out, including the one
	// consumed by each emitted slot record.
	ibids int

	slots   []string
	slotIdx map[any]int

	// depth counts the arrays and objects currently open in the body.
	depth int
}

func (s *serializer) encode(v any) error {
	style, err := s.m.registry.PassStyleOf(v)
	if err != nil {
		return fmt.Errorf("marshal: serialize: %w", err)
	}

	if writesContainer(style, v) {
		if s.depth >= MaxDepth {
			return fmt.Errorf("marshal: serialize: %w: deeper than %d", ErrTooDeep, MaxDepth)
		}
		s.depth++
		defer func() { s.depth-- }()
	}

	switch style {
	case passstyle.StyleNull:
		s.stream.WriteNil()
	case passstyle.StyleUndefined:
		s.writeTag("undefined")
	case passstyle.StyleBoolean:
		s.stream.WriteBool(v.(bool))
	case passstyle.StyleString:
		s.stream.WriteString(v.(string))
	case passstyle.StyleNumber:
		s.writeNumber(v.(float64))
	case passstyle.StyleBigInt:
		s.writeTag("bigint", "digits", v.(*big.Int).String())
	case passstyle.StyleRemotable, passstyle.StylePromise:
		return s.encodeSlot(v)
	default:
		if idx, ok := s.seen[v]; ok {
			s.stream.WriteObjectStart()
			s.stream.WriteObjectField(passstyle.QClass)
			s.stream.WriteString("ibid")
			s.stream.WriteMore()
			s.stream.WriteObjectField("index")
			s.stream.WriteInt(idx)
			s.stream.WriteObjectEnd()
			return nil
		}
		s.seen[v] = s.ibids
		s.ibids++

		switch style {
		case passstyle.StyleCopyArray:
			return s.encodeArray(v.(*passstyle.Array))
		case passstyle.StyleCopyRecord:
			return s.encodeRecord(v.(*passstyle.Record))
		case passstyle.StyleCopyError:
			e := v.(*passstyle.Error)
			s.writeTag("error", "name", e.Name(), "message", e.Message())
		default:
			return fmt.Errorf("marshal: serialize: unexpected pass style %v", style)
		}
	}
	return nil
}

// writesContainer reports whether v is encoded as a JSON array or object,
// including tagged records.
func writesContainer(style passstyle.PassStyle, v any) bool {
	switch style {
	case passstyle.StyleNull, passstyle.StyleBoolean, passstyle.StyleString:
		return false
	case passstyle.StyleNumber:
		f := v.(float64)
		return math.IsNaN(f) || math.IsInf(f, 0)
	}
	return true
}

func (s *serializer) writeNumber(f float64) {
	switch {
	case math.IsNaN(f):
		s.writeTag("NaN")
	case math.IsInf(f, 1):
		s.writeTag("Infinity")
	case math.IsInf(f, -1):
		s.writeTag("-Infinity")
	default:
		s.stream.WriteRaw(formatNumber(f))
	}
}

// writeTag writes {"@qclass": tag, k1: v1, ...} with string values.
func (s *serializer) writeTag(tag string, fields ...string) {
	s.stream.WriteObjectStart()
	s.stream.WriteObjectField(passstyle.QClass)
	s.stream.WriteString(tag)
	for i := 0; i+1 < len(fields); i += 2 {
		s.stream.WriteMore()
		s.stream.WriteObjectField(fields[i])
		s.stream.WriteString(fields[i+1])
	}
	s.stream.WriteObjectEnd()
}

func (s *serializer) encodeArray(a *passstyle.Array) error {
	s.stream.WriteArrayStart()
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			s.stream.WriteMore()
		}
		if err := s.encode(a.At(i)); err != nil {
			return err
		}
	}
	s.stream.WriteArrayEnd()
	return nil
}

func (s *serializer) encodeRecord(r *passstyle.Record) error {
	s.stream.WriteObjectStart()
	for i, key := range r.Keys() {
		if i > 0 {
			s.stream.WriteMore()
		}
		s.stream.WriteObjectField(key)
		v, _ := r.Get(key)
		if err := s.encode(v); err != nil {
			return err
		}
	}
	s.stream.WriteObjectEnd()
	return nil
}

// encodeSlot writes a slot record. A capability seen before reuses its slot
// index; the value->slot hook runs once per capability per call.
func (s *serializer) encodeSlot(v any) error {
	idx, ok := s.slotIdx[v]
	if !ok {
		slot, err := s.m.valToSlot(v)
		if err != nil {
			return fmt.Errorf("marshal: serialize slot: %w", err)
		}
		idx = len(s.slots)
		s.slots = append(s.slots, slot)
		s.slotIdx[v] = idx
	}
	// The decoder registers every slot record it meets.
	s.ibids++

	s.stream.WriteObjectStart()
	s.stream.WriteObjectField(passstyle.QClass)
	s.stream.WriteString("slot")
	if iface, ok := s.m.registry.LookupInterface(v); ok {
		s.stream.WriteMore()
		s.stream.WriteObjectField("iface")
		s.stream.WriteString(iface)
	}
	s.stream.WriteMore()
	s.stream.WriteObjectField("index")
	s.stream.WriteInt(idx)
	s.stream.WriteObjectEnd()
	return nil
}
