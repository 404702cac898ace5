// Package delayq implements a time-delay queue: a ring of buckets indexed by
// days remaining. Advancing a day is a head rotation, never a data move.
package delayq

import "fmt"

// Queue holds items scheduled to come due a whole number of days from now.
// Bucket offset k (relative to head) holds items with exactly k days left.
// Not safe for concurrent use.
type Queue[T any] struct {
	buckets    [][]T
	head       int
	size       int
	maxHorizon int
}

// New creates a queue able to hold delays up to horizon without growing. The
// ring grows on demand until maxHorizon; larger delays are rejected.
func New[T any](horizon, maxHorizon int) *Queue[T] {
	if horizon < 1 {
		horizon = 1
	}
	if maxHorizon < horizon {
		maxHorizon = horizon
	}
	return &Queue[T]{
		buckets:    make([][]T, horizon+1),
		maxHorizon: maxHorizon,
	}
}

// Horizon returns the largest delay accepted without growing the ring.
func (q *Queue[T]) Horizon() int { return len(q.buckets) - 1 }

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return q.size }

// Push schedules item to come due in delay days. Delay 0 means due today and is
// returned by Drain (or the next Advance if never drained).
func (q *Queue[T]) Push(delay int, item T) error {
	if delay < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDelay, delay)
	}
	if delay > q.Horizon() {
		if delay > q.maxHorizon {
			return fmt.Errorf("%w: delay %d, max %d", ErrHorizonExceeded, delay, q.maxHorizon)
		}
		q.grow(delay)
	}
	i := q.index(delay)
	q.buckets[i] = append(q.buckets[i], item)
	q.size++
	return nil
}

// Advance moves the queue forward one day and returns the items now due, in
// insertion order. Items left undrained at offset 0 come first.
func (q *Queue[T]) Advance() []T {
	stale := q.buckets[q.head]
	q.buckets[q.head] = nil
	q.head = (q.head + 1) % len(q.buckets)
	due := q.buckets[q.head]
	q.buckets[q.head] = nil

	if len(stale) > 0 {
		due = append(stale, due...)
	}
	q.size -= len(due)
	return due
}

// Drain returns and clears items due today.
func (q *Queue[T]) Drain() []T {
	due := q.buckets[q.head]
	q.buckets[q.head] = nil
	q.size -= len(due)
	return due
}

// Each visits every item in ascending delay, insertion order within a day.
func (q *Queue[T]) Each(fn func(delay int, item T)) {
	for d := 0; d < len(q.buckets); d++ {
		for _, it := range q.buckets[q.index(d)] {
			fn(d, it)
		}
	}
}

// Remove drops every item matching pred and returns how many were dropped.
// Survivors keep their relative order.
func (q *Queue[T]) Remove(pred func(delay int, item T) bool) int {
	removed := 0
	for d := 0; d < len(q.buckets); d++ {
		i := q.index(d)
		b := q.buckets[i]
		kept := b[:0]
		for _, it := range b {
			if pred(d, it) {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		var zero T
		for j := len(kept); j < len(b); j++ {
			b[j] = zero
		}
		q.buckets[i] = kept
	}
	q.size -= removed
	return removed
}

// Reset empties the queue, keeping its current horizon.
func (q *Queue[T]) Reset() {
	for i := range q.buckets {
		q.buckets[i] = nil
	}
	q.head = 0
	q.size = 0
}

func (q *Queue[T]) index(delay int) int {
	return (q.head + delay) % len(q.buckets)
}

// grow unrolls the ring so that head becomes index 0 and delay fits.
func (q *Queue[T]) grow(delay int) {
	n := 2 * len(q.buckets)
	if n < delay+1 {
		n = delay + 1
	}
	if n > q.maxHorizon+1 {
		n = q.maxHorizon + 1
	}
	next := make([][]T, n)
	for d := 0; d < len(q.buckets); d++ {
		next[d] = q.buckets[q.index(d)]
	}
	q.buckets = next
	q.head = 0
}
