package bar

import "testing"

func TestBasicRender(t *testing.T) {
	b := New(3, "[", "|", "]", ' ', '_')
	b.Set(1, "abc")
	b.Set(2, "def")
	b.Clear(0)
	b.Expire(1)

	got := b.Show()
	want := "[   |___|def]"
	if got != want {
		t.Fatalf("Show() = %q, want %q", got, want)
	}
}

func TestDirtySticky(t *testing.T) {
	b := New(2, "", "", "", ' ', '_')

	if _, ok := b.ShowIfDirty(); !ok {
		t.Fatalf("expected initial construction to be dirty")
	}
	if _, ok := b.ShowIfDirty(); ok {
		t.Fatalf("expected second call with no mutation to be not dirty")
	}

	b.Set(0, "x")
	if _, ok := b.ShowIfDirty(); !ok {
		t.Fatalf("expected dirty after Set")
	}
	if _, ok := b.ShowIfDirty(); ok {
		t.Fatalf("expected not dirty immediately after a consumed dirty bit")
	}
}

func TestFillerPreservesCodepointCount(t *testing.T) {
	b := New(1, "", "", "", ' ', '_')
	b.Set(0, "héllo")
	before := len([]rune(b.slots[0]))

	b.Clear(0)
	after := len([]rune(b.slots[0]))
	if before != after {
		t.Fatalf("Clear changed codepoint count: before=%d after=%d", before, after)
	}

	b.Set(0, "héllo")
	b.Expire(0)
	if got := len([]rune(b.slots[0])); got != before {
		t.Fatalf("Expire changed codepoint count: got=%d want=%d", got, before)
	}
}

func TestClearAll(t *testing.T) {
	b := New(2, "", ",", "", ' ', '_')
	b.Set(0, "ab")
	b.Set(1, "cde")
	b.ClearAll()
	if got := b.Show(); got != "  ,   " {
		t.Fatalf("ClearAll Show() = %q", got)
	}
}
