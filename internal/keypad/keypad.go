// Package keypad scans a 4x4 matrix keypad from column edge events and
// exposes the buffered presses to the main loop.
//
// The edge handler is the only producer of the two code queues and the
// main loop is the only consumer. Every press pushes one column code and
// then one row code; every read drains one of each, so the queues stay in
// lock-step.
package keypad

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/door-counter/internal/gpio"
	"github.com/sweeney/door-counter/internal/queue"
)

// Keypad buffers key presses captured by HandleEdge.
type Keypad struct {
	matrix gpio.Matrix
	cols   *queue.Ring[uint8]
	rows   *queue.Ring[uint8]

	masked  atomic.Bool
	dropped atomic.Uint32
	faults  atomic.Uint32
}

// New puts the matrix in its idle configuration and starts watching its
// column edges.
func New(m gpio.Matrix) (*Keypad, error) {
	k := &Keypad{
		matrix: m,
		cols:   queue.New[uint8](queue.Capacity),
		rows:   queue.New[uint8](queue.Capacity),
	}
	if err := m.Configure(gpio.RowsDriven); err != nil {
		return nil, fmt.Errorf("idle keypad: %w", err)
	}
	m.Watch(k.HandleEdge)
	return k, nil
}

// HandleEdge captures one press after a falling edge on a column line.
// It never waits: when either queue is full, or a scan is already in
// progress, the edge is dropped.
func (k *Keypad) HandleEdge(line int) {
	if !k.cols.HasSpace() || !k.rows.HasSpace() {
		k.dropped.Add(1)
		return
	}
	if !k.masked.CompareAndSwap(false, true) {
		return
	}
	defer k.masked.Store(false)

	colCode, rowCode, err := k.scan()
	if err != nil {
		k.faults.Add(1)
		log.WithError(err).WithField("line", line).Debug("keypad: scan failed")
		return
	}

	// Column first: a consumer that sees a row code always finds its column.
	k.cols.Put(colCode)
	k.rows.Put(rowCode)
}

// scan samples the columns with the rows driven, then the rows with the
// columns driven, and always returns the matrix to the idle configuration.
func (k *Keypad) scan() (colCode, rowCode uint8, err error) {
	if err := k.matrix.Configure(gpio.RowsDriven); err != nil {
		return 0, 0, err
	}
	colCode, err = k.matrix.Sample()
	if err != nil {
		return 0, 0, fmt.Errorf("sample columns: %w", err)
	}

	if err := k.matrix.Configure(gpio.ColumnsDriven); err != nil {
		k.idle()
		return 0, 0, err
	}
	rowCode, err = k.matrix.Sample()
	k.idle()
	if err != nil {
		return 0, 0, fmt.Errorf("sample rows: %w", err)
	}
	return colCode, rowCode, nil
}

func (k *Keypad) idle() {
	if err := k.matrix.Configure(gpio.RowsDriven); err != nil {
		log.WithError(err).Warn("keypad: restore idle configuration")
	}
}

// Dropped returns the number of edges discarded because a queue was full.
func (k *Keypad) Dropped() uint32 { return k.dropped.Load() }

// Faults returns the number of edges discarded because the matrix could
// not be read.
func (k *Keypad) Faults() uint32 { return k.faults.Load() }

// Pending returns the number of complete presses buffered.
func (k *Keypad) Pending() int { return k.rows.Len() }

// GetKeyNoBlock returns the oldest buffered key, or NoKey if none is
// buffered. A ghosted sample is consumed and also yields NoKey.
func (k *Keypad) GetKeyNoBlock() Key {
	if !k.rows.HasElement() || !k.cols.HasElement() {
		return NoKey
	}
	rowCode, _ := k.rows.TryGet()
	colCode, _ := k.cols.TryGet()
	return Decode(colCode, rowCode)
}

// GetKey waits for the next buffered press and decodes it. The result is
// NoKey for a ghosted sample. Must not be called from an edge handler.
func (k *Keypad) GetKey(ctx context.Context) (Key, error) {
	rowCode, err := k.rows.Get(ctx)
	if err != nil {
		return NoKey, err
	}
	// The column code was pushed before the row code, so it is already here.
	colCode, err := k.cols.Get(ctx)
	if err != nil {
		return NoKey, err
	}
	return Decode(colCode, rowCode), nil
}

// GetChar waits for the next unambiguous press and returns its character.
func (k *Keypad) GetChar(ctx context.Context) (byte, error) {
	for {
		key, err := k.GetKey(ctx)
		if err != nil {
			return 0, err
		}
		if c, ok := key.Char(); ok {
			return c, nil
		}
	}
}

// GetCharNoBlock returns the character of the oldest buffered key, or 0.
func (k *Keypad) GetCharNoBlock() byte {
	c, _ := k.GetKeyNoBlock().Char()
	return c
}

// GetInt waits for the next unambiguous press and returns its numeric value.
func (k *Keypad) GetInt(ctx context.Context) (int, error) {
	for {
		key, err := k.GetKey(ctx)
		if err != nil {
			return 0, err
		}
		if n, ok := key.Int(); ok {
			return n, nil
		}
	}
}
