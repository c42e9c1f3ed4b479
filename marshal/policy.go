package marshal

import "fmt"

// CyclePolicy decides what unserialize does with a back-reference to a node
// that is still being built.
type CyclePolicy int

const (
	// ForbidCycles fails with ErrCycle. It is the zero value.
	ForbidCycles CyclePolicy = iota
	// AllowCycles silently returns the unfinished node.
	AllowCycles
	// WarnOfCycles returns the unfinished node and logs a warning.
	WarnOfCycles
)

func (p CyclePolicy) String() string {
	switch p {
	case ForbidCycles:
		return "forbidCycles"
	case AllowCycles:
		return "allowCycles"
	case WarnOfCycles:
		return "warnOfCycles"
	default:
		return fmt.Sprintf("CyclePolicy(%d)", int(p))
	}
}

// ParseCyclePolicy parses the names used by String. An empty name means
// ForbidCycles.
func ParseCyclePolicy(name string) (CyclePolicy, error) {
	switch name {
	case "", "forbidCycles":
		return ForbidCycles, nil
	case "allowCycles":
		return AllowCycles, nil
	case "warnOfCycles":
		return WarnOfCycles, nil
	}
	return ForbidCycles, fmt.Errorf("marshal: unrecognized cycle policy %q", name)
}
