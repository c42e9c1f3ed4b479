package remote

import (
	"context"

	"github.com/endojs/endo-sub013/promise"
)

// StateKind names the connection state of a peer.
type StateKind int

const (
	// StateStart has no live channel.
	StateStart StateKind = iota
	// StateAccepted holds a gateway received on an inbound connection.
	StateAccepted
	// StateConnected holds a gateway from an outbound connection, or one
	// whose canonical channel is an outbound incarnation.
	StateConnected
)

func (k StateKind) String() string {
	switch k {
	case StateStart:
		return "start"
	case StateAccepted:
		return "accepted"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// channel is one connection attempt: the function that cancels it and the
// context that is done once it has been cancelled.
type channel struct {
	cancel    context.CancelCauseFunc
	cancelled context.Context
	dispose   func()
}

// connState is the tagged connection state. Start carries no gateway or
// channel. gen identifies the installed canonical channel so a stale
// cancellation cannot revert a newer state.
type connState struct {
	kind    StateKind
	gateway *promise.Promise
	current channel
	gen     uint64
}

// effect is work that must run after the state lock is released, such as
// cancelling a losing channel.
type effect func()

// transition computes the next state for an event. Transitions never
// block and never call back into user code; they return effects instead.
type transition struct {
	next    connState
	gateway *promise.Promise
	effects []effect
	// watch, when set, installs the revert-to-start arrangement for
	// next.current.
	watch bool
	// disposeOnWatch runs the channel's dispose after the revert check.
	disposeOnWatch bool
}

func (c *Control) onAccept(s connState, gateway *promise.Promise, in channel) transition {
	switch s.kind {
	case StateStart:
		return transition{
			next:           connState{kind: StateAccepted, gateway: gateway, current: in},
			watch:          true,
			disposeOnWatch: true,
		}

	case StateAccepted:
		reason := c.cancelReason(ErrAlreadyAccepted)
		return transition{
			next:    s,
			effects: []effect{func() { in.cancel(reason); in.dispose() }},
		}

	case StateConnected:
		if c.connectBias {
			reason := c.cancelReason(ErrConnectBias)
			c.log.Infof("crossed hellos with %s: keeping outbound connection", c.remoteID)
			return transition{
				next:    s,
				effects: []effect{func() { in.cancel(reason); in.dispose() }},
			}
		}
		reason := c.cancelReason(ErrAcceptBias)
		old := s.current
		c.log.Infof("crossed hellos with %s: replacing outbound connection with inbound", c.remoteID)
		return transition{
			next:           connState{kind: StateAccepted, gateway: gateway, current: in},
			effects:        []effect{func() { old.cancel(reason) }},
			watch:          true,
			disposeOnWatch: true,
		}
	}
	panic("remote: unknown state " + s.kind.String())
}

func (c *Control) onConnect(s connState, getGateway GatewayFunc, in channel) transition {
	switch s.kind {
	case StateStart:
		gateway := promise.Go(in.cancelled, getGateway)
		// A dial that ignores its context must not leave callers waiting.
		context.AfterFunc(in.cancelled, func() {
			_ = gateway.Reject(context.Cause(in.cancelled))
		})
		return transition{
			next:           connState{kind: StateConnected, gateway: gateway, current: in},
			gateway:        gateway,
			watch:          true,
			disposeOnWatch: true,
		}

	case StateAccepted, StateConnected:
		// Reuse the live gateway and bind the fates of both channels. The
		// new channel becomes canonical.
		old := s.current
		return transition{
			next:    connState{kind: StateConnected, gateway: s.gateway, current: in},
			gateway: s.gateway,
			effects: []effect{func() { entangle(old, in, in.dispose) }},
			watch:   true,
		}
	}
	panic("remote: unknown state " + s.kind.String())
}
