package marshal

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"
)

// CapData is the marshalled form of a value: a JSON body plus the ordered
// slot identifiers for the capabilities it references.
type CapData struct {
	Body  string
	Slots []string
}

// ---------------------------------------------------------------------------
// JSON envelope: {"body": string, "slots": [string...]}
// ---------------------------------------------------------------------------

// bodyAPI writes and reads bodies the way JSON.stringify/JSON.parse would:
// no HTML escaping and object keys kept in encounter order.
var bodyAPI = jsoniter.Config{EscapeHTML: false}.Froze()

// MarshalJSON encodes the envelope. A nil Slots encodes as [].
func (d CapData) MarshalJSON() ([]byte, error) {
	stream := bodyAPI.BorrowStream(nil)
	defer bodyAPI.ReturnStream(stream)

	stream.WriteObjectStart()
	stream.WriteObjectField("body")
	stream.WriteString(d.Body)
	stream.WriteMore()
	stream.WriteObjectField("slots")
	stream.WriteArrayStart()
	for i, s := range d.Slots {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteString(s)
	}
	stream.WriteArrayEnd()
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, fmt.Errorf("marshal: encode capdata: %w", stream.Error)
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// UnmarshalJSON decodes the envelope with ParseCapData.
func (d *CapData) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCapData(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseCapData decodes the JSON envelope. The body must be a string and the
// slots an array of strings; anything else is ErrMalformedCapData. Unknown
// envelope fields are ignored.
func ParseCapData(data []byte) (CapData, error) {
	iter := jsoniter.ParseBytes(bodyAPI, data)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return CapData{}, fmt.Errorf("%w: envelope is not an object", ErrMalformedCapData)
	}

	var (
		d        CapData
		hasBody  bool
		hasSlots bool
		problem  error
	)
	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case "body":
			if it.WhatIsNext() != jsoniter.StringValue {
				problem = fmt.Errorf("%w: body is not a string", ErrMalformedCapData)
				return false
			}
			d.Body = it.ReadString()
			hasBody = true
		case "slots":
			if it.WhatIsNext() != jsoniter.ArrayValue {
				problem = fmt.Errorf("%w: slots is not an array", ErrMalformedCapData)
				return false
			}
			d.Slots = []string{}
			it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
				if it.WhatIsNext() != jsoniter.StringValue {
					problem = fmt.Errorf("%w: slot %d is not a string", ErrMalformedCapData, len(d.Slots))
					return false
				}
				d.Slots = append(d.Slots, it.ReadString())
				return true
			})
			hasSlots = true
		default:
			it.Skip()
		}
		return problem == nil && it.Error == nil
	})
	if problem != nil {
		return CapData{}, problem
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return CapData{}, fmt.Errorf("%w: %v", ErrMalformedCapData, iter.Error)
	}
	if !hasBody {
		return CapData{}, fmt.Errorf("%w: missing body", ErrMalformedCapData)
	}
	if !hasSlots {
		return CapData{}, fmt.Errorf("%w: missing slots", ErrMalformedCapData)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// CBOR envelope
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("marshal: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type cborCapData struct {
	Body  *string   `cbor:"body"`
	Slots *[]string `cbor:"slots"`
}

// EncodeCapDataCBOR encodes the body/slots pair as canonical CBOR.
func EncodeCapDataCBOR(d CapData) ([]byte, error) {
	slots := d.Slots
	if slots == nil {
		slots = []string{}
	}
	return cborEncMode.Marshal(cborCapData{Body: &d.Body, Slots: &slots})
}

// DecodeCapDataCBOR decodes a pair produced by EncodeCapDataCBOR.
func DecodeCapDataCBOR(data []byte) (CapData, error) {
	var w cborCapData
	if err := cbor.Unmarshal(data, &w); err != nil {
		return CapData{}, fmt.Errorf("%w: cbor: %v", ErrMalformedCapData, err)
	}
	if w.Body == nil {
		return CapData{}, fmt.Errorf("%w: missing body", ErrMalformedCapData)
	}
	if w.Slots == nil {
		return CapData{}, fmt.Errorf("%w: missing slots", ErrMalformedCapData)
	}
	return CapData{Body: *w.Body, Slots: *w.Slots}, nil
}
