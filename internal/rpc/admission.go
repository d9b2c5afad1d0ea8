// Adapted from a process-manager package's
// slot_pool.go: a dynamically-adjustable counting semaphore with
// explicit per-owner release tracking. There it gated concurrent
// process starts by numeric process id; here it gates concurrently
// in-flight RPC connections by the connection's own net.Conn pointer,
// which is exactly what the CLI's `server --backlog N` flag configures.
package rpc

import "sync"

type admissionGate struct {
	mu         sync.Mutex
	cond       *sync.Cond
	maxCap     int
	usage      int
	acquiredBy map[any]struct{}
}

func newAdmissionGate(max int) *admissionGate {
	g := &admissionGate{maxCap: max, acquiredBy: make(map[any]struct{})}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// acquire blocks until usage < capacity, then registers owner.
func (g *admissionGate) acquire(owner any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, holds := g.acquiredBy[owner]; holds {
		panic("rpc: admissionGate: owner already holds a slot")
	}
	for g.usage >= g.maxCap {
		g.cond.Wait()
	}
	g.usage++
	g.acquiredBy[owner] = struct{}{}
}

// release frees owner's slot. Releasing a non-owner is a protocol
// violation.
func (g *admissionGate) release(owner any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, holds := g.acquiredBy[owner]; !holds {
		panic("rpc: admissionGate: release for non-owner")
	}
	delete(g.acquiredBy, owner)
	g.usage--
	g.cond.Signal()
}

// updateLimit adjusts capacity; negative values clamp to zero.
func (g *admissionGate) updateLimit(n int) {
	if n < 0 {
		n = 0
	}
	g.mu.Lock()
	g.maxCap = n
	g.cond.Broadcast()
	g.mu.Unlock()
}
