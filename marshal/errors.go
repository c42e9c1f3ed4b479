package marshal

import "errors"

var (
	ErrMalformedCapData = errors.New("marshal: malformed capdata")
	ErrUnrecognizedTag  = errors.New("marshal: unrecognized @qclass")
	ErrIbidOutOfRange   = errors.New("marshal: ibid out of range")
	ErrSlotOutOfRange   = errors.New("marshal: slot index out of range")
	ErrCycle            = errors.New("marshal: ibid cycle")
	ErrNotCopyable      = errors.New("marshal: value is not pass-by-copy")
	ErrUnknownSlot      = errors.New("marshal: unknown slot")
	ErrTooDeep          = errors.New("marshal: nesting too deep")
)
