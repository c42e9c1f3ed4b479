package promise

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPromiseResolve(t *testing.T) {
	kit := NewKit()
	if kit.Promise.State() != Pending {
		t.Fatalf("state = %v, want pending", kit.Promise.State())
	}
	if err := kit.Resolve("gateway"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	v, err := kit.Promise.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != "gateway" {
		t.Errorf("value = %v, want gateway", v)
	}
	if kit.Promise.State() != Fulfilled {
		t.Errorf("state = %v, want fulfilled", kit.Promise.State())
	}
}

func TestPromiseSettlesOnce(t *testing.T) {
	p := New()
	if err := p.Reject(errors.New("boom")); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if err := p.Resolve(1.0); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("second settle err = %v, want ErrAlreadySettled", err)
	}
	_, err := p.Result()
	if err == nil || err.Error() != "boom" {
		t.Errorf("reason = %v, want boom", err)
	}
}

func TestPromiseAdoptsOtherPromise(t *testing.T) {
	inner := New()
	outer := New()
	if err := outer.Resolve(inner); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_ = inner.Resolve("deep")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := outer.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != "deep" {
		t.Errorf("value = %v, want deep", v)
	}
}

func TestRejectWinsOverPendingAdoption(t *testing.T) {
	inner := New()
	outer := New()
	if err := outer.Resolve(inner); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := outer.Resolve("other"); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("resolve while adopting err = %v, want ErrAlreadySettled", err)
	}

	cancelled := errors.New("cancelled")
	if err := outer.Reject(cancelled); err != nil {
		t.Fatalf("Reject while adopting: %v", err)
	}
	select {
	case <-outer.Done():
	case <-time.After(time.Second):
		t.Fatal("outer did not settle")
	}

	// The adopted promise settling later must not change the outcome.
	_ = inner.Resolve("late")
	time.Sleep(20 * time.Millisecond)
	if _, err := outer.Result(); !errors.Is(err, cancelled) {
		t.Errorf("reason = %v, want %v", err, cancelled)
	}
}

func TestPromiseWaitHonoursContext(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancelCause(context.Background())
	reason := errors.New("gave up")
	cancel(reason)
	if _, err := p.Wait(ctx); !errors.Is(err, reason) {
		t.Errorf("Wait err = %v, want %v", err, reason)
	}
}

func TestGoRejectsOnError(t *testing.T) {
	want := errors.New("dial failed")
	p := Go(context.Background(), func(context.Context) (any, error) {
		return nil, want
	})
	<-p.Done()
	if p.State() != Rejected {
		t.Fatalf("state = %v, want rejected", p.State())
	}
	if _, err := p.Result(); !errors.Is(err, want) {
		t.Errorf("reason = %v, want %v", err, want)
	}
}
