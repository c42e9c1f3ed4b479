package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/endojs/endo-sub013/promise"
)

const waitTimeout = 2 * time.Second

var errPeerCancelled = errors.New("peer cancelled")

// conn is one test connection: a cancellable context plus a dispose signal.
type conn struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	disposed chan struct{}
	once     sync.Once
}

func newConn() *conn {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &conn{ctx: ctx, cancel: cancel, disposed: make(chan struct{})}
}

func (c *conn) dispose() {
	c.once.Do(func() { close(c.disposed) })
}

func (c *conn) waitCancelled(t *testing.T) error {
	t.Helper()
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	case <-time.After(waitTimeout):
		t.Fatal("connection was not cancelled")
		return nil
	}
}

func (c *conn) waitDisposed(t *testing.T) {
	t.Helper()
	select {
	case <-c.disposed:
	case <-time.After(waitTimeout):
		t.Fatal("connection was not disposed")
	}
}

func (c *conn) assertLive(t *testing.T) {
	t.Helper()
	time.Sleep(20 * time.Millisecond)
	if err := c.ctx.Err(); err != nil {
		t.Fatalf("connection unexpectedly cancelled: %v", context.Cause(c.ctx))
	}
}

func gatewayOf(v any) GatewayFunc {
	return func(context.Context) (any, error) { return v, nil }
}

func mustNotDial(t *testing.T) GatewayFunc {
	return func(context.Context) (any, error) {
		t.Error("gateway should have been reused, not dialled")
		return nil, errors.New("unexpected dial")
	}
}

func awaitGateway(t *testing.T, p *promise.Promise) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	v, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return v
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func mustProvide(t *testing.T, local, remote string) *Control {
	t.Helper()
	c, err := NewProvider(local).Provide(remote)
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}
	return c
}

func assertReason(t *testing.T, cause, want error) {
	t.Helper()
	if !errors.Is(cause, want) {
		t.Fatalf("cause = %v, want %v", cause, want)
	}
	var ce *CancelError
	if !errors.As(cause, &ce) {
		t.Fatalf("cause %T is not *CancelError", cause)
	}
}

func TestConnectFromStart(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	c1 := newConn()

	gw := bob.Connect(gatewayOf("bob-gateway"), c1.cancel, c1.ctx, c1.dispose)
	if got := awaitGateway(t, gw); got != "bob-gateway" {
		t.Errorf("gateway = %v", got)
	}
	if bob.State() != StateConnected {
		t.Errorf("state = %v, want connected", bob.State())
	}

	c1.cancel(errPeerCancelled)
	if err := c1.waitCancelled(t); !errors.Is(err, errPeerCancelled) {
		t.Errorf("cause = %v", err)
	}
	c1.waitDisposed(t)
	if bob.State() != StateStart {
		t.Errorf("state = %v, want start", bob.State())
	}
}

func TestAcceptFromStart(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	c1 := newConn()

	bob.Accept(promise.Resolved("bob-gateway"), c1.cancel, c1.ctx, c1.dispose)
	if bob.State() != StateAccepted {
		t.Errorf("state = %v, want accepted", bob.State())
	}
	c1.assertLive(t)

	c1.cancel(errPeerCancelled)
	c1.waitCancelled(t)
	c1.waitDisposed(t)
	if bob.State() != StateStart {
		t.Errorf("state = %v, want start", bob.State())
	}
}

func TestConnectAfterAcceptReusesGateway(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	gw1 := promise.Resolved("bob-gateway-1")
	c1, c2 := newConn(), newConn()

	bob.Accept(gw1, c1.cancel, c1.ctx, c1.dispose)
	got := bob.Connect(mustNotDial(t), c2.cancel, c2.ctx, c2.dispose)
	if got != gw1 {
		t.Fatal("connect should return the accepted gateway")
	}
	if bob.State() != StateConnected {
		t.Errorf("state = %v, want connected", bob.State())
	}

	c1.cancel(errPeerCancelled)
	c1.waitCancelled(t)
	if err := c2.waitCancelled(t); !errors.Is(err, errPeerCancelled) {
		t.Errorf("entangled cause = %v, want %v", err, errPeerCancelled)
	}
	c2.waitDisposed(t)
	eventually(t, "revert to start", func() bool { return bob.State() == StateStart })
}

func TestConnectBiasRefusesInbound(t *testing.T) {
	// bob > alice, so bob keeps its outbound connection.
	alice := mustProvide(t, "bob", "alice")
	c1, c2, c3 := newConn(), newConn(), newConn()

	gw1 := alice.Connect(gatewayOf("alice-gateway-1"), c1.cancel, c1.ctx, c1.dispose)
	alice.Accept(promise.Resolved("alice-gateway-2"), c2.cancel, c2.ctx, c2.dispose)

	assertReason(t, c2.waitCancelled(t), ErrConnectBias)
	c2.waitDisposed(t)
	c1.assertLive(t)
	if alice.State() != StateConnected {
		t.Errorf("state = %v, want connected", alice.State())
	}

	gw3 := alice.Connect(mustNotDial(t), c3.cancel, c3.ctx, c3.dispose)
	if gw3 != gw1 {
		t.Fatal("connect should reuse the outbound gateway")
	}
	if got := awaitGateway(t, gw3); got != "alice-gateway-1" {
		t.Errorf("gateway = %v", got)
	}

	c3.cancel(errPeerCancelled)
	if err := c1.waitCancelled(t); !errors.Is(err, errPeerCancelled) {
		t.Errorf("outbound cause = %v", err)
	}
	c3.waitDisposed(t)
}

func TestAcceptBiasReplacesOutbound(t *testing.T) {
	// alice < bob, so alice yields to the inbound connection.
	bob := mustProvide(t, "alice", "bob")
	c1, c2, c3 := newConn(), newConn(), newConn()

	bob.Connect(gatewayOf("bob-gateway-1"), c1.cancel, c1.ctx, c1.dispose)
	gw2 := promise.Resolved("bob-gateway-2")
	bob.Accept(gw2, c2.cancel, c2.ctx, c2.dispose)

	assertReason(t, c1.waitCancelled(t), ErrAcceptBias)
	c1.waitDisposed(t)
	c2.assertLive(t)
	// The stale outbound cancellation must not reset the new state.
	if bob.State() != StateAccepted {
		t.Fatalf("state = %v, want accepted", bob.State())
	}

	gw3 := bob.Connect(mustNotDial(t), c3.cancel, c3.ctx, c3.dispose)
	if gw3 != gw2 {
		t.Fatal("connect should return the inbound gateway")
	}

	c3.cancel(errPeerCancelled)
	c2.waitCancelled(t)
	c3.waitDisposed(t)
	eventually(t, "revert to start", func() bool { return bob.State() == StateStart })
}

func TestReconnectReusesGateway(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	var dials atomic.Int32
	dial := func(context.Context) (any, error) {
		dials.Add(1)
		return "bob-gateway", nil
	}
	c1, c2 := newConn(), newConn()

	gw1 := bob.Connect(dial, c1.cancel, c1.ctx, c1.dispose)
	gw2 := bob.Connect(dial, c2.cancel, c2.ctx, c2.dispose)
	if gw1 != gw2 {
		t.Fatal("second connect should return the same gateway")
	}
	awaitGateway(t, gw1)
	if n := dials.Load(); n != 1 {
		t.Errorf("dialled %d times, want 1", n)
	}

	c1.cancel(errPeerCancelled)
	c1.waitCancelled(t)
	c2.waitCancelled(t)
}

func TestReconnectAfterDisconnect(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	c1, c2, c3 := newConn(), newConn(), newConn()

	gw1 := bob.Connect(gatewayOf("first"), c1.cancel, c1.ctx, c1.dispose)
	c1.cancel(errors.New("disconnect"))
	c1.waitCancelled(t)
	c1.waitDisposed(t)

	gw2 := bob.Connect(gatewayOf("second"), c2.cancel, c2.ctx, c2.dispose)
	if gw2 == gw1 {
		t.Fatal("connect after disconnect should dial a new gateway")
	}
	if got := awaitGateway(t, gw2); got != "second" {
		t.Errorf("gateway = %v", got)
	}
	gw3 := bob.Connect(mustNotDial(t), c3.cancel, c3.ctx, c3.dispose)
	if gw3 != gw2 {
		t.Fatal("third connect should reuse the second gateway")
	}

	c2.cancel(errPeerCancelled)
	c2.waitCancelled(t)
	c3.waitCancelled(t)
}

func TestAcceptAfterAccept(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	gw1 := promise.Resolved("bob-gateway-1")
	c1, c2, c3 := newConn(), newConn(), newConn()

	bob.Accept(gw1, c1.cancel, c1.ctx, c1.dispose)
	bob.Accept(promise.Resolved("bob-gateway-2"), c2.cancel, c2.ctx, c2.dispose)
	assertReason(t, c2.waitCancelled(t), ErrAlreadyAccepted)
	c2.waitDisposed(t)
	c1.assertLive(t)

	if gw3 := bob.Connect(mustNotDial(t), c3.cancel, c3.ctx, c3.dispose); gw3 != gw1 {
		t.Fatal("connect should return the first accepted gateway")
	}

	c1.cancel(errPeerCancelled)
	c1.waitCancelled(t)
	c3.waitCancelled(t)
}

func TestEntanglementPropagatesBothWays(t *testing.T) {
	t.Run("later incarnation cancels first", func(t *testing.T) {
		bob := mustProvide(t, "alice", "bob")
		c1, c2 := newConn(), newConn()
		gw1 := bob.Connect(gatewayOf("gw"), c1.cancel, c1.ctx, c1.dispose)
		if gw2 := bob.Connect(mustNotDial(t), c2.cancel, c2.ctx, c2.dispose); gw2 != gw1 {
			t.Fatal("expected shared gateway")
		}
		c2.cancel(errPeerCancelled)
		if err := c1.waitCancelled(t); !errors.Is(err, errPeerCancelled) {
			t.Errorf("cause = %v", err)
		}
		c2.waitDisposed(t)
	})

	t.Run("first cancels a chain of incarnations", func(t *testing.T) {
		bob := mustProvide(t, "alice", "bob")
		c1, c2, c3 := newConn(), newConn(), newConn()
		gw1 := bob.Connect(gatewayOf("gw"), c1.cancel, c1.ctx, c1.dispose)
		bob.Connect(mustNotDial(t), c2.cancel, c2.ctx, c2.dispose)
		if gw3 := bob.Connect(mustNotDial(t), c3.cancel, c3.ctx, c3.dispose); gw3 != gw1 {
			t.Fatal("expected shared gateway")
		}
		c1.cancel(errPeerCancelled)
		for i, c := range []*conn{c1, c2, c3} {
			if err := c.waitCancelled(t); !errors.Is(err, errPeerCancelled) {
				t.Errorf("conn %d cause = %v", i+1, err)
			}
		}
		eventually(t, "revert to start", func() bool { return bob.State() == StateStart })
	})
}

func TestConnectDoesNotBlock(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	c1 := newConn()
	dial := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, context.Cause(ctx)
	}

	returned := make(chan *promise.Promise, 1)
	go func() { returned <- bob.Connect(dial, c1.cancel, c1.ctx, nil) }()

	var gw *promise.Promise
	select {
	case gw = <-returned:
	case <-time.After(waitTimeout):
		t.Fatal("Connect blocked on the dial")
	}
	if gw.State() != promise.Pending {
		t.Fatalf("gateway state = %v, want pending", gw.State())
	}

	c1.cancel(errPeerCancelled)
	<-gw.Done()
	if _, err := gw.Result(); !errors.Is(err, errPeerCancelled) {
		t.Errorf("gateway rejection = %v, want %v", err, errPeerCancelled)
	}
}

func TestCancelSettlesStuckDial(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	c1 := newConn()
	release := make(chan struct{})
	defer close(release)
	dial := func(context.Context) (any, error) {
		<-release
		return "too late", nil
	}

	gw := bob.Connect(dial, c1.cancel, c1.ctx, nil)
	c1.cancel(errPeerCancelled)

	select {
	case <-gw.Done():
	case <-time.After(waitTimeout):
		t.Fatal("gateway did not settle after cancellation")
	}
	if _, err := gw.Result(); !errors.Is(err, errPeerCancelled) {
		t.Errorf("gateway rejection = %v, want %v", err, errPeerCancelled)
	}
}

func TestCancelSettlesAdoptedGateway(t *testing.T) {
	bob := mustProvide(t, "alice", "bob")
	c1 := newConn()
	never := promise.New()

	gw := bob.Connect(gatewayOf(never), c1.cancel, c1.ctx, nil)
	time.Sleep(20 * time.Millisecond)
	c1.cancel(errPeerCancelled)

	select {
	case <-gw.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("gateway still pending after cancellation; state=%v", bob.State())
	}
	if _, err := gw.Result(); !errors.Is(err, errPeerCancelled) {
		t.Errorf("gateway rejection = %v, want %v", err, errPeerCancelled)
	}
}

func TestCancelErrorMessage(t *testing.T) {
	err := &CancelError{Reason: ErrAlreadyAccepted, Peer: "bob"}
	want := "remote: already accepted a connection (peer bob)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
