package market

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellEmptyUntilStored(t *testing.T) {
	c := NewCell[float64]()
	_, ok := c.Load()
	assert.False(t, ok)

	c.Store(0)
	v, ok := c.Load()
	assert.True(t, ok, "a stored zero must be distinguishable from empty")
	assert.Equal(t, 0.0, v)
}

func TestCellWholesaleReplace(t *testing.T) {
	c := NewCell[FillStats]()
	c.Store(FillStats{FilledTotal: 10, SampleCount: 3})
	c.Store(FillStats{FilledTotal: 4})
	v, _ := c.Load()
	assert.Equal(t, FillStats{FilledTotal: 4}, v)
}

func TestCellConcurrentReaders(t *testing.T) {
	c := NewCell[FillStats]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 1000; i++ {
			c.Store(FillStats{FilledTotal: i, UnfilledTotal: i, SampleCount: i})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				v, ok := c.Load()
				if !ok {
					continue
				}
				if v.FilledTotal != v.UnfilledTotal || v.FilledTotal != v.SampleCount {
					t.Errorf("torn read: %+v", v)
					return
				}
			}
		}()
	}
	wg.Wait()
}
