package market

import "sync/atomic"

// Cell holds the latest published value of T.
// One goroutine writes, any number read; Store swaps the whole value so a reader
// never observes a partially updated snapshot.
type Cell[T any] struct {
	v atomic.Pointer[T]
}

// NewCell returns an empty cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Store publishes v, replacing the previous value.
func (c *Cell[T]) Store(v T) {
	c.v.Store(&v)
}

// Load returns the latest value and whether anything has been published yet.
func (c *Cell[T]) Load() (T, bool) {
	p := c.v.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
