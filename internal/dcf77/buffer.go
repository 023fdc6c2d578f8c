package dcf77

import "strings"

// Buffer is one telegram minute: 60 single-bit cells indexed by second.
// Indexes are taken modulo 60, so every index is valid.
type Buffer struct {
	cells [Seconds]bool
}

func wrap(i int) int {
	i %= Seconds
	if i < 0 {
		i += Seconds
	}
	return i
}

// Set stores v at index i.
func (b *Buffer) Set(i int, v bool) {
	b.cells[wrap(i)] = v
}

// Bit returns the value at index i as 0 or 1.
func (b *Buffer) Bit(i int) int {
	if b.cells[wrap(i)] {
		return 1
	}
	return 0
}

// Rotate re-indexes the buffer so the cell at n becomes index 0.
// Cyclic order of all cells is preserved.
func (b *Buffer) Rotate(n int) {
	n = wrap(n)
	if n == 0 {
		return
	}
	var out [Seconds]bool
	for i := range out {
		out[i] = b.cells[(i+n)%Seconds]
	}
	b.cells = out
}

// Parity returns the XOR of the bits in the inclusive range [from, to].
// An empty range (from > to) has parity 0.
func (b *Buffer) Parity(from, to int) int {
	p := 0
	for i := from; i <= to; i++ {
		p ^= b.Bit(i)
	}
	return p
}

// Uint reads width bits starting at from as an unsigned integer, lowest index first.
func (b *Buffer) Uint(from, width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v |= b.Bit(from+i) << i
	}
	return v
}

// String renders the buffer as 60 '0'/'1' characters, index 0 first.
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(Seconds)
	for _, c := range b.cells {
		if c {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// parseBuffer builds a Buffer from a string of '0' and '1' characters.
// Any other character is treated as 0; characters past index 59 are ignored.
func parseBuffer(s string) Buffer {
	var b Buffer
	for i := 0; i < len(s) && i < Seconds; i++ {
		b.cells[i] = s[i] == '1'
	}
	return b
}
