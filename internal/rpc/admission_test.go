package rpc

import (
	"testing"
	"time"
)

func TestAdmissionGateBlocksAtCapacity(t *testing.T) {
	g := newAdmissionGate(1)
	g.acquire("a")

	acquired := make(chan struct{})
	go func() {
		g.acquire("b")
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire should have blocked at capacity 1")
	case <-time.After(50 * time.Millisecond):
	}

	g.release("a")
	<-acquired
}

func TestAdmissionGateRejectsDoubleAcquire(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double acquire")
		}
	}()
	g := newAdmissionGate(2)
	g.acquire("a")
	g.acquire("a")
}

func TestAdmissionGateRejectsReleaseByNonOwner(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on release by non-owner")
		}
	}()
	g := newAdmissionGate(2)
	g.release("nobody")
}
