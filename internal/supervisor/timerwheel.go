// Adapted from a process-manager package's
// scheduler.go: a container/heap min-heap ordering pending fires by
// time, with O(log n) cancellation. Generalized from a single int64 id
// space to the supervisor's two timer families (per-feed TTL expiry and
// the one output timer) via a small comparable key type, so a single
// heap instance can carry both without key collisions.
package supervisor

import (
	"container/heap"
	"time"
)

// timerKey identifies one pending timer. kind distinguishes families;
// pos is meaningful only for kindExpiry.
type timerKey struct {
	kind timerKind
	pos  int
}

type timerKind int

const (
	kindExpiry timerKind = iota
	kindOutput
)

type timerEvent struct {
	key   timerKey
	when  time.Time
	index int
}

// timerWheel holds the pending-fire heap plus a key->event index for
// cancellation, the classic heap-scheduler shape.
type timerWheel struct {
	h       eventHeap
	entries map[timerKey]*timerEvent
}

func newTimerWheel() *timerWheel {
	h := eventHeap{}
	heap.Init(&h)
	return &timerWheel{h: h, entries: make(map[timerKey]*timerEvent)}
}

// push schedules key to fire at when, replacing any existing pending
// fire for the same key (a fresh reschedule overrides a stale one —
// this is how Input's "reset the TTL timer" semantics are implemented).
func (w *timerWheel) push(key timerKey, when time.Time) {
	if old, ok := w.entries[key]; ok {
		heap.Remove(&w.h, old.index)
		delete(w.entries, key)
	}
	ev := &timerEvent{key: key, when: when}
	w.entries[key] = ev
	heap.Push(&w.h, ev)
}

// remove cancels any pending fire for key. No-op if absent.
func (w *timerWheel) remove(key timerKey) {
	ev, ok := w.entries[key]
	if !ok {
		return
	}
	heap.Remove(&w.h, ev.index)
	delete(w.entries, key)
}

// has reports whether key currently has a pending fire.
func (w *timerWheel) has(key timerKey) bool {
	_, ok := w.entries[key]
	return ok
}

// next returns the soonest pending fire without removing it.
func (w *timerWheel) next() (timerKey, time.Time, bool) {
	if len(w.h) == 0 {
		return timerKey{}, time.Time{}, false
	}
	ev := w.h[0]
	return ev.key, ev.when, true
}

// pop removes and returns the soonest pending fire.
func (w *timerWheel) pop() (timerKey, bool) {
	if len(w.h) == 0 {
		return timerKey{}, false
	}
	ev := heap.Pop(&w.h).(*timerEvent)
	delete(w.entries, ev.key)
	return ev.key, true
}

type eventHeap []*timerEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	ev := x.(*timerEvent)
	ev.index = len(*h)
	*h = append(*h, ev)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	ev.index = -1
	*h = old[:n-1]
	return ev
}
