package scanner

import "sync/atomic"

// RingChannel is a bounded channel with overwrite-oldest semantics: producers
// never block, and a full buffer discards its oldest element.
type RingChannel[T any] struct {
	ch      chan T
	dropped atomic.Int64
}

// NewRingChannel creates a RingChannel with the given capacity.
func NewRingChannel[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// ForceSend inserts v, discarding the oldest element if needed.
// Reports whether an element was dropped.
func (rc *RingChannel[T]) ForceSend(v T) bool {
	for {
		select {
		case rc.ch <- v:
			return false
		default:
		}
		select {
		case <-rc.ch:
			rc.dropped.Add(1)
			// a concurrent reader may free space first; retry the send either way
			select {
			case rc.ch <- v:
			default:
				continue
			}
			return true
		default:
		}
	}
}

// TryReceive attempts a non-blocking receive.
func (rc *RingChannel[T]) TryReceive() (v T, ok bool) {
	select {
	case v, ok = <-rc.ch:
		return v, ok
	default:
		return v, false
	}
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int { return len(rc.ch) }

// Dropped returns how many elements were overwritten.
func (rc *RingChannel[T]) Dropped() int64 { return rc.dropped.Load() }
