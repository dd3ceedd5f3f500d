package keypad

// Key identifies a key on the 4x4 pad, 1-16 from the top left, left to
// right then top to bottom. NoKey means nothing (or nothing unambiguous)
// was pressed.
type Key uint8

// NoKey is returned when no key is buffered or the sample was ambiguous.
const NoKey Key = 0

// NumKeys is the number of keys on the pad.
const NumKeys = 16

var (
	legend   = [NumKeys]byte{'1', '2', '3', 'A', '4', '5', '6', 'B', '7', '8', '9', 'C', '*', '0', '#', 'D'}
	integers = [NumKeys]int{1, 2, 3, 10, 4, 5, 6, 11, 7, 8, 9, 12, 14, 0, 15, 13}
)

// Legend returns the printed key characters in key order.
func Legend() string { return string(legend[:]) }

// Valid reports whether k is one of the 16 keys.
func (k Key) Valid() bool { return k >= 1 && k <= NumKeys }

// Char returns the printed character of k. ok=false for NoKey or an
// out-of-range value.
func (k Key) Char() (c byte, ok bool) {
	if !k.Valid() {
		return 0, false
	}
	return legend[k-1], true
}

// Int returns the numeric value of k: digits map to themselves, A-D to
// 10-13, '*' to 14 and '#' to 15.
func (k Key) Int() (n int, ok bool) {
	if !k.Valid() {
		return 0, false
	}
	return integers[k-1], true
}

// Position returns the 1-based row and column of k, or 0, 0 for an invalid key.
func (k Key) Position() (row, col int) {
	if !k.Valid() {
		return 0, 0
	}
	return int(k-1)/4 + 1, int(k-1)%4 + 1
}

// KeyForChar returns the key printed with c, or NoKey.
func KeyForChar(c byte) Key {
	for i, l := range legend {
		if l == c {
			return Key(i + 1)
		}
	}
	return NoKey
}

// DecodeLine maps a sampled nibble to a 1-based line index. Exactly one
// low bit is required; anything else (nothing pressed, or several lines
// low from ghosting) decodes to 0.
func DecodeLine(nibble uint8) int {
	switch nibble & 0x0F {
	case 0b1110:
		return 1
	case 0b1101:
		return 2
	case 0b1011:
		return 3
	case 0b0111:
		return 4
	}
	return 0
}

// KeyFor returns the key at the 1-based row and column, or NoKey when
// either index is 0.
func KeyFor(row, col int) Key {
	if row < 1 || row > 4 || col < 1 || col > 4 {
		return NoKey
	}
	return Key((row-1)*4 + col)
}

// Decode turns a (column code, row code) pair into a key.
func Decode(colCode, rowCode uint8) Key {
	return KeyFor(DecodeLine(rowCode), DecodeLine(colCode))
}
