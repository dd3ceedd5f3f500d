// Package queue provides the bounded FIFO that carries keypad samples from
// the edge handler to the terminal main loop.
//
// A Ring is safe for exactly one producer goroutine and one consumer
// goroutine running concurrently. Each cursor is written by one side only
// and published with an atomic store, so neither side ever sees a partially
// updated cursor.
package queue

import (
	"context"
	"sync/atomic"
	"time"
)

// Capacity is the slot count of the keypad queues. One slot is always left
// empty, so at most Capacity-1 elements are buffered.
const Capacity = 50

// PollInterval is how long blocking calls sleep between checks.
var PollInterval = 200 * time.Microsecond

// Ring is a fixed-capacity single-producer/single-consumer FIFO.
// Zero value is not ready; use New.
type Ring[T any] struct {
	buf []T
	put atomic.Uint32 // next write position, owned by the producer
	get atomic.Uint32 // next read position, owned by the consumer
}

// New creates a ring with n slots (n-1 usable). n below 2 is raised to 2.
func New[T any](n int) *Ring[T] {
	if n < 2 {
		n = 2
	}
	return &Ring[T]{buf: make([]T, n)}
}

// Cap returns the number of elements the ring can hold at once.
func (r *Ring[T]) Cap() int { return len(r.buf) - 1 }

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	n := uint32(len(r.buf))
	return int((r.put.Load() + n - r.get.Load()) % n)
}

// HasSpace reports whether Put would store its element.
func (r *Ring[T]) HasSpace() bool {
	return r.next(r.put.Load()) != r.get.Load()
}

// HasElement reports whether at least one element is buffered.
func (r *Ring[T]) HasElement() bool {
	return r.put.Load() != r.get.Load()
}

// Put appends v and reports whether it was stored. A full ring drops v
// and leaves both cursors untouched. Put never waits, so it may be called
// from an edge handler.
func (r *Ring[T]) Put(v T) bool {
	p := r.put.Load()
	next := r.next(p)
	if next == r.get.Load() {
		return false
	}
	r.buf[p] = v
	r.put.Store(next)
	return true
}

// PutWait appends v, waiting for space until ctx is done.
// Must not be called from an edge handler.
func (r *Ring[T]) PutWait(ctx context.Context, v T) error {
	for !r.Put(v) {
		if err := pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TryGet removes and returns the oldest element. ok=false when empty.
func (r *Ring[T]) TryGet() (v T, ok bool) {
	g := r.get.Load()
	if g == r.put.Load() {
		return v, false
	}
	v = r.buf[g]
	var zero T
	r.buf[g] = zero
	r.get.Store(r.next(g))
	return v, true
}

// Get removes and returns the oldest element, waiting until one is
// available or ctx is done. Must not be called from an edge handler.
func (r *Ring[T]) Get(ctx context.Context) (T, error) {
	for {
		if v, ok := r.TryGet(); ok {
			return v, nil
		}
		if err := pause(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
}

func (r *Ring[T]) next(i uint32) uint32 {
	i++
	if i == uint32(len(r.buf)) {
		return 0
	}
	return i
}

func pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	time.Sleep(PollInterval)
	return nil
}
