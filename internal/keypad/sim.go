package keypad

import "github.com/sweeney/door-counter/internal/gpio"

// TapChar presses and releases the key printed with c on a simulated
// matrix. It reports false if no key carries c.
func TapChar(m *gpio.FakeMatrix, c byte) bool {
	key := KeyForChar(c)
	if !key.Valid() {
		return false
	}
	row, col := key.Position()
	m.Tap(row-1, col-1)
	return true
}

// TapString taps each character of s in order, skipping characters that
// are not on the pad.
func TapString(m *gpio.FakeMatrix, s string) {
	for i := 0; i < len(s); i++ {
		TapChar(m, s[i])
	}
}
