// Package passstyle defines the passable value model and classifies values
// by how they may cross a capability boundary.
//
// Every value handed to the marshaller is one of:
//
//	Undefined, nil, bool, float64, *big.Int, string   primitives
//	*Array, *Record, *Error                             pass-by-copy data
//	*Record with only methods, registered objects       remotables
//	*promise.Promise                                    promises
//
// Composite values must be hardened (see Harden) before they are classified.
// Identity is pointer identity: two *Record values are the same object only
// when they are the same pointer.
package passstyle
