package supervisor

import (
	"testing"
	"time"
)

func TestTimerWheelOrdersByWhen(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()
	w.push(timerKey{kind: kindExpiry, pos: 0}, now.Add(3*time.Second))
	w.push(timerKey{kind: kindExpiry, pos: 1}, now.Add(1*time.Second))
	w.push(timerKey{kind: kindOutput}, now.Add(2*time.Second))

	key, ok := w.pop()
	if !ok || key != (timerKey{kind: kindExpiry, pos: 1}) {
		t.Fatalf("first pop = %+v, want pos 1", key)
	}
	key, ok = w.pop()
	if !ok || key != (timerKey{kind: kindOutput}) {
		t.Fatalf("second pop = %+v, want output", key)
	}
	key, ok = w.pop()
	if !ok || key != (timerKey{kind: kindExpiry, pos: 0}) {
		t.Fatalf("third pop = %+v, want pos 0", key)
	}
	if _, ok := w.pop(); ok {
		t.Fatalf("expected wheel to be empty")
	}
}

func TestTimerWheelRescheduleOverridesStale(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()
	key := timerKey{kind: kindExpiry, pos: 0}
	w.push(key, now.Add(10*time.Second))
	w.push(key, now.Add(1*time.Second))

	if got := len(w.entries); got != 1 {
		t.Fatalf("len(entries) = %d, want 1", got)
	}
	_, when, ok := w.next()
	if !ok {
		t.Fatalf("expected a pending entry")
	}
	if when.After(now.Add(2 * time.Second)) {
		t.Fatalf("reschedule did not override stale entry: when=%v", when)
	}
}

func TestTimerWheelRemove(t *testing.T) {
	w := newTimerWheel()
	key := timerKey{kind: kindExpiry, pos: 0}
	w.push(key, time.Now().Add(time.Second))
	if !w.has(key) {
		t.Fatalf("expected has(key) after push")
	}
	w.remove(key)
	if w.has(key) {
		t.Fatalf("expected !has(key) after remove")
	}
	if _, ok := w.pop(); ok {
		t.Fatalf("expected empty wheel after removing only entry")
	}
}
