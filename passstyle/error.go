package passstyle

import "fmt"

// errorConstructors is the fixed allow-list of error constructor names that
// survive a trip across the boundary.
var errorConstructors = map[string]bool{
	"Error":          true,
	"EvalError":      true,
	"RangeError":     true,
	"ReferenceError": true,
	"SyntaxError":    true,
	"TypeError":      true,
	"URIError":       true,
}

// IsErrorConstructor reports whether name is on the error constructor
// allow-list.
func IsErrorConstructor(name string) bool {
	return errorConstructors[name]
}

// Error is an error object. Its constructor name determines the inherited
// name; own properties other than message and stack may be attached but make
// the error unpassable.
type Error struct {
	ctor      string
	message   any
	stack     string
	hasStack  bool
	extraKeys []string
	extra     map[string]any
	frozen    bool
}

// NewError returns an unfrozen error built by the named constructor. An
// empty ctor means "Error".
func NewError(ctor, message string) *Error {
	if ctor == "" {
		ctor = "Error"
	}
	return &Error{ctor: ctor, message: message}
}

// MakeError rebuilds an error from its name and message through the
// constructor allow-list. Unknown names fall back to the base Error
// constructor. The result is frozen.
func MakeError(name, message string) *Error {
	if !IsErrorConstructor(name) {
		name = "Error"
	}
	e := NewError(name, message)
	e.frozen = true
	return e
}

// Constructor returns the name of the constructor the error inherits from.
func (e *Error) Constructor() string { return e.ctor }

// Name returns the resolved name: an own string "name" property when
// present, otherwise the constructor name.
func (e *Error) Name() string {
	if v, ok := e.extra["name"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return e.ctor
}

// Message returns the message as a string.
func (e *Error) Message() string {
	if s, ok := e.message.(string); ok {
		return s
	}
	return fmt.Sprint(e.message)
}

// RawMessage returns the message exactly as stored.
func (e *Error) RawMessage() any { return e.message }

// SetMessage replaces the message. Non-string messages are allowed here and
// rejected by the classifier.
func (e *Error) SetMessage(m any) error {
	if e.frozen {
		return fmt.Errorf("set message: %w", ErrFrozen)
	}
	e.message = m
	return nil
}

// Stack returns the stack, if one was attached.
func (e *Error) Stack() (string, bool) { return e.stack, e.hasStack }

// SetStack attaches a stack string. The stack is never transmitted.
func (e *Error) SetStack(stack string) error {
	if e.frozen {
		return fmt.Errorf("set stack: %w", ErrFrozen)
	}
	e.stack, e.hasStack = stack, true
	return nil
}

// SetProperty attaches an extra own property, such as a "name" override.
func (e *Error) SetProperty(key string, v any) error {
	if e.frozen {
		return fmt.Errorf("set %q: %w", key, ErrFrozen)
	}
	if e.extra == nil {
		e.extra = make(map[string]any)
	}
	if _, ok := e.extra[key]; !ok {
		e.extraKeys = append(e.extraKeys, key)
	}
	e.extra[key] = v
	return nil
}

// Property returns an extra own property.
func (e *Error) Property(key string) (any, bool) {
	v, ok := e.extra[key]
	return v, ok
}

// PropertyKeys returns the extra own property keys in insertion order.
func (e *Error) PropertyKeys() []string {
	out := make([]string, len(e.extraKeys))
	copy(out, e.extraKeys)
	return out
}

// Frozen reports whether the error itself is frozen.
func (e *Error) Frozen() bool { return e.frozen }

// Freeze makes the error itself immutable.
func (e *Error) Freeze() { e.frozen = true }

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Name() + ": " + e.Message()
}
