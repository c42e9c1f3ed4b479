package marshal

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SlotTable is an in-process export table: it mints a fresh slot id for
// each new capability and maps ids back to the original values. It backs
// the default hooks of New, so a single Marshal round-trips capabilities by
// identity.
type SlotTable struct {
	mu    sync.Mutex
	byVal map[any]string
	byID  map[string]any
}

// NewSlotTable creates an empty table.
func NewSlotTable() *SlotTable {
	return &SlotTable{
		byVal: make(map[any]string),
		byID:  make(map[string]any),
	}
}

// ValToSlot returns the slot id for v, minting one on first sight.
func (t *SlotTable) ValToSlot(v any) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byVal[v]; ok {
		return id, nil
	}
	id := uuid.NewString()
	t.byVal[v] = id
	t.byID[id] = v
	return id, nil
}

// SlotToVal returns the value exported under slot.
func (t *SlotTable) SlotToVal(slot, _ string) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.byID[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return v, nil
}

// Len returns the number of exported values.
func (t *SlotTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
