package remote

import "errors"

var (
	// ErrAlreadyAccepted cancels an inbound connection that arrives while
	// another inbound connection is active.
	ErrAlreadyAccepted = errors.New("remote: already accepted a connection")

	// ErrConnectBias cancels an inbound connection that crossed our own
	// outbound connection when our node id is the higher one.
	ErrConnectBias = errors.New("remote: connection refused: already connected (crossed hellos, connect bias)")

	// ErrAcceptBias cancels our outbound connection when a crossing inbound
	// connection wins because our node id is the lower one.
	ErrAcceptBias = errors.New("remote: connection abandoned: accepted new connection (crossed hellos, accept bias)")

	// ErrSelfConnection reports an attempt to control a connection to the
	// local node itself.
	ErrSelfConnection = errors.New("remote: a node cannot connect to itself")
)

// CancelError is the cancellation cause delivered to a channel that lost
// arbitration. It unwraps to one of the sentinel reasons above.
type CancelError struct {
	Reason error
	Peer   string
}

func (e *CancelError) Error() string {
	return e.Reason.Error() + " (peer " + e.Peer + ")"
}

func (e *CancelError) Unwrap() error {
	return e.Reason
}
