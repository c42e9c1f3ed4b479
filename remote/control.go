// Package remote arbitrates connections to peer nodes.
//
// A Control exists for each remote node and tracks at most one live gateway
// to it. Inbound connections are offered with Accept and outbound ones with
// Connect. When both sides dial each other at once ("crossed hellos"), the
// node ids break the tie: the higher id keeps its outbound connection, the
// lower id yields to the inbound one. Channels that share a gateway are
// entangled so that cancelling any of them cancels all of them.
package remote

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/endojs/endo-sub013/promise"
	"github.com/tliron/commonlog"
)

// GatewayFunc dials the remote node and returns its gateway. It runs on its
// own goroutine with the connection's cancelled context.
type GatewayFunc func(ctx context.Context) (any, error)

// Control is the connection state machine for one remote node.
type Control struct {
	localID     string
	remoteID    string
	connectBias bool
	log         commonlog.Logger

	mu    sync.Mutex
	state connState
	gen   uint64
}

func newControl(localID, remoteID string, log commonlog.Logger) *Control {
	return &Control{
		localID:     localID,
		remoteID:    remoteID,
		connectBias: localID > remoteID,
		log:         log,
	}
}

// RemoteID returns the id of the peer this Control manages.
func (c *Control) RemoteID() string { return c.remoteID }

// ConnectBias reports whether crossed hellos keep the outbound connection,
// which is the case when the local id sorts after the remote id.
func (c *Control) ConnectBias() bool { return c.connectBias }

// State returns the current state kind.
func (c *Control) State() StateKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.kind
}

// Accept offers a gateway received on an inbound connection. cancel must
// cancel the cancelled context; dispose, if not nil, runs once the channel's
// fate is settled. A refused connection is cancelled with a *CancelError.
func (c *Control) Accept(gateway *promise.Promise, cancel context.CancelCauseFunc, cancelled context.Context, dispose func()) {
	in := channel{cancel: cancel, cancelled: cancelled, dispose: orNop(dispose)}
	c.mu.Lock()
	t := c.onAccept(c.state, gateway, in)
	c.install(t)
	c.mu.Unlock()
	t.run()
}

// Connect returns the gateway to the remote node, dialling with getGateway
// only when no channel is live. It never blocks.
func (c *Control) Connect(getGateway GatewayFunc, cancel context.CancelCauseFunc, cancelled context.Context, dispose func()) *promise.Promise {
	in := channel{cancel: cancel, cancelled: cancelled, dispose: orNop(dispose)}
	c.mu.Lock()
	t := c.onConnect(c.state, getGateway, in)
	c.install(t)
	c.mu.Unlock()
	t.run()
	return t.gateway
}

// install records the next state and, when asked, arranges for it to
// revert to Start once its canonical channel is cancelled. Callers hold mu.
func (c *Control) install(t transition) {
	from := c.state.kind
	if t.watch {
		c.gen++
		t.next.gen = c.gen
		c.watch(t.next.current, t.next.gen, t.disposeOnWatch)
	}
	c.state = t.next
	if from != t.next.kind {
		c.log.Debugf("%s -> %s: %s to %s", c.localID, c.remoteID, from, t.next.kind)
	}
}

func (c *Control) watch(ch channel, gen uint64, dispose bool) {
	context.AfterFunc(ch.cancelled, func() {
		c.mu.Lock()
		if c.state.gen == gen && c.state.kind != StateStart {
			c.log.Debugf("%s -> %s: channel cancelled, back to start", c.localID, c.remoteID)
			c.state = connState{kind: StateStart}
		}
		c.mu.Unlock()
		if dispose {
			ch.dispose()
		}
	})
}

func (c *Control) cancelReason(reason error) error {
	return &CancelError{Reason: reason, Peer: c.remoteID}
}

func (t transition) run() {
	for _, fn := range t.effects {
		fn()
	}
}

// entangle binds two channels: cancelling either cancels the other with the
// same cause. dispose runs after both are cancelled.
func entangle(a, b channel, dispose func()) {
	var remaining atomic.Int32
	remaining.Store(2)
	settle := func() {
		if remaining.Add(-1) == 0 {
			dispose()
		}
	}
	context.AfterFunc(a.cancelled, func() {
		b.cancel(context.Cause(a.cancelled))
		settle()
	})
	context.AfterFunc(b.cancelled, func() {
		a.cancel(context.Cause(b.cancelled))
		settle()
	})
}

func orNop(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}
