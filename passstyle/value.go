package passstyle

// ---------------------------------------------------------------------------
// Leaf values outside the Go primitive set
// ---------------------------------------------------------------------------

type undefinedValue struct{}

func (undefinedValue) String() string { return "undefined" }

// Undefined is the sentinel for the undefined primitive. It is distinct from
// nil, which models null.
var Undefined = &undefinedValue{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	u, ok := v.(*undefinedValue)
	return ok && u == Undefined
}

type holeValue struct{}

func (holeValue) String() string { return "<hole>" }

// Hole marks a missing array element. Arrays containing holes are not
// passable but can be built for classification purposes.
var Hole = &holeValue{}

// Symbol is a symbol primitive. Symbols are never passable.
type Symbol struct {
	Description string
}

// Func is a callable value. A Func stored as a property is a method; a bare
// Func is never passable.
type Func func(args ...any) (any, error)

// Accessor is a getter/setter property. Properties defined with an Accessor
// are never plain data.
type Accessor struct {
	Get Func
	Set Func
}
