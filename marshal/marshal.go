// Package marshal converts passable values to and from CapData.
//
// Pass-by-copy data travels in-band as JSON. Everything JSON cannot express
// (undefined, NaN, infinities, bigints, errors, back-references and
// capability slots) is written as a record tagged with the reserved
// "@qclass" key. Capabilities are replaced by slot identifiers supplied by
// pluggable hooks.
package marshal

import (
	"github.com/endojs/endo-sub013/passstyle"
	"github.com/tliron/commonlog"
)

// ValToSlotFunc maps a capability (remotable or promise) to its slot id.
type ValToSlotFunc func(v any) (string, error)

// SlotToValFunc maps a slot id, with its interface label when the sender
// supplied one, back to a capability.
type SlotToValFunc func(slot, iface string) (any, error)

// Marshal serializes and unserializes values. A Marshal keeps no per-call
// state, so one may be shared between goroutines as long as its hooks are
// safe for concurrent use.
type Marshal struct {
	valToSlot ValToSlotFunc
	slotToVal SlotToValFunc
	registry  *passstyle.Registry
	log       commonlog.Logger
}

// Option configures a Marshal.
type Option func(*Marshal)

// WithValToSlot sets the hook that assigns slot ids to capabilities.
func WithValToSlot(fn ValToSlotFunc) Option {
	return func(m *Marshal) { m.valToSlot = fn }
}

// WithSlotToVal sets the hook that resolves slot ids to capabilities.
func WithSlotToVal(fn SlotToValFunc) Option {
	return func(m *Marshal) { m.slotToVal = fn }
}

// WithSlotTable uses t for both hooks.
func WithSlotTable(t *SlotTable) Option {
	return func(m *Marshal) {
		m.valToSlot = t.ValToSlot
		m.slotToVal = t.SlotToVal
	}
}

// WithRegistry sets the remotable registry used for classification and
// interface labels.
func WithRegistry(r *passstyle.Registry) Option {
	return func(m *Marshal) { m.registry = r }
}

// WithLogger sets the logger used for cycle warnings.
func WithLogger(log commonlog.Logger) Option {
	return func(m *Marshal) { m.log = log }
}

// New creates a Marshal. Without hook options it exports capabilities
// through a private SlotTable.
func New(opts ...Option) *Marshal {
	table := NewSlotTable()
	m := &Marshal{
		valToSlot: table.ValToSlot,
		slotToVal: table.SlotToVal,
		registry:  passstyle.DefaultRegistry(),
		log:       commonlog.GetLogger("endo.marshal"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry the Marshal classifies against.
func (m *Marshal) Registry() *passstyle.Registry {
	return m.registry
}
