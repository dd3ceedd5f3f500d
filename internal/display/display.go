// Package display emulates the 2x16 character display.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Display geometry.
const (
	Rows = 2
	Cols = 16
)

// Buffer is an in-memory character display. Characters written past the
// last column are dropped, like the hidden part of an HD44780 line.
// Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	cells    [Rows][Cols]byte
	row, col int
	writes   int
}

// NewBuffer returns a cleared display.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.clear()
	return b
}

func (b *Buffer) clear() {
	for r := range b.cells {
		for c := range b.cells[r] {
			b.cells[r][c] = ' '
		}
	}
	b.row, b.col = 0, 0
}

// Reset clears the display and homes the cursor.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.clear()
	b.writes++
	b.mu.Unlock()
}

// SetCursor moves the cursor. Out-of-range positions are clamped.
func (b *Buffer) SetCursor(row, col int) {
	b.mu.Lock()
	b.row = clamp(row, 0, Rows-1)
	b.col = clamp(col, 0, Cols)
	b.mu.Unlock()
}

// WriteChar writes c at the cursor and advances it.
func (b *Buffer) WriteChar(c byte) {
	b.mu.Lock()
	b.put(c)
	b.writes++
	b.mu.Unlock()
}

// WriteString writes s at the cursor.
func (b *Buffer) WriteString(s string) {
	b.mu.Lock()
	for i := 0; i < len(s); i++ {
		b.put(s[i])
	}
	b.writes++
	b.mu.Unlock()
}

func (b *Buffer) put(c byte) {
	if b.col < Cols {
		b.cells[b.row][b.col] = c
	}
	if b.col <= Cols {
		b.col++
	}
}

// Row returns the full text of a row, padded with spaces.
func (b *Buffer) Row(row int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.cells[clamp(row, 0, Rows-1)][:])
}

// Text returns a row with trailing spaces removed.
func (b *Buffer) Text(row int) string {
	return strings.TrimRight(b.Row(row), " ")
}

// Cursor returns the cursor position.
func (b *Buffer) Cursor() (row, col int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.row, b.col
}

// Writes returns the number of write and reset operations so far.
func (b *Buffer) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Console mirrors a Buffer onto a writer, printing both rows whenever the
// visible content changes.
type Console struct {
	*Buffer
	mu   sync.Mutex
	w    io.Writer
	last string
}

// NewConsole creates a console display writing frames to w.
func NewConsole(w io.Writer) *Console {
	return &Console{Buffer: NewBuffer(), w: w}
}

// Reset clears the display.
func (c *Console) Reset() {
	c.Buffer.Reset()
	c.flush()
}

// WriteChar writes one character.
func (c *Console) WriteChar(ch byte) {
	c.Buffer.WriteChar(ch)
	c.flush()
}

// WriteString writes a string.
func (c *Console) WriteString(s string) {
	c.Buffer.WriteString(s)
	c.flush()
}

func (c *Console) flush() {
	frame := fmt.Sprintf("|%s|\n|%s|\n", c.Row(0), c.Row(1))

	c.mu.Lock()
	defer c.mu.Unlock()
	if frame == c.last {
		return
	}
	c.last = frame
	io.WriteString(c.w, "+----------------+\n"+frame)
}
