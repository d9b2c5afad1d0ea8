// Package bar implements the composed status-bar string model: a fixed
// number of ordered slots joined with a separator and padding, with
// change-sticky dirty tracking so a caller can publish at most once per
// mutation cluster.
package bar

import (
	"strings"
	"unicode/utf8"
)

// Buffer holds one slot per feed and composes them into the published
// bar string. The slot count is fixed at construction.
type Buffer struct {
	slots      []string
	padLeft    string
	sep        string
	padRight   string
	clearChar  rune
	expireChar rune
	dirty      bool
}

// New constructs a Buffer with n empty slots. The initial state is
// dirty: the first blank composition is itself a legitimate publish.
func New(n int, padLeft, sep, padRight string, clearChar, expireChar rune) *Buffer {
	return &Buffer{
		slots:      make([]string, n),
		padLeft:    padLeft,
		sep:        sep,
		padRight:   padRight,
		clearChar:  clearChar,
		expireChar: expireChar,
		dirty:      true,
	}
}

// Len returns the number of slots.
func (b *Buffer) Len() int { return len(b.slots) }

// Set replaces slot i with s and marks the buffer dirty.
// i out of range is a programmer error and panics, matching the
// source's "0 <= i < N required" contract.
func (b *Buffer) Set(i int, s string) {
	b.slots[i] = s
	b.dirty = true
}

// Clear overwrites slot i with a run of the clear character whose
// codepoint count matches the slot's current codepoint count.
func (b *Buffer) Clear(i int) {
	b.slots[i] = fillLike(b.slots[i], b.clearChar)
	b.dirty = true
}

// Expire overwrites slot i with a run of the expiry character whose
// codepoint count matches the slot's current codepoint count.
func (b *Buffer) Expire(i int) {
	b.slots[i] = fillLike(b.slots[i], b.expireChar)
	b.dirty = true
}

// ClearAll clears every slot.
func (b *Buffer) ClearAll() {
	for i := range b.slots {
		b.Clear(i)
	}
}

// Show composes the bar string unconditionally.
func (b *Buffer) Show() string {
	return b.padLeft + strings.Join(b.slots, b.sep) + b.padRight
}

// ShowIfDirty returns the composed string and clears the dirty bit iff
// the buffer is dirty; otherwise it returns ("", false).
func (b *Buffer) ShowIfDirty() (string, bool) {
	if !b.dirty {
		return "", false
	}
	b.dirty = false
	return b.Show(), true
}

// fillLike returns a string of length equal to s's codepoint count,
// every codepoint being fill. This intentionally measures width in
// codepoints, not display cells; combining marks and wide glyphs will
// not round-trip exactly. Inherited limitation, not to be silently
// "fixed" here.
func fillLike(s string, fill rune) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	return strings.Repeat(string(fill), n)
}
