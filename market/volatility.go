package market

import "math"

// DefaultVolatilityWindow is the number of reference prices the tracker keeps.
const DefaultVolatilityWindow = 300

// VolatilityTracker keeps the last Length reference prices, most recent first,
// and reports a window-scaled coefficient of variation once the window is full.
type VolatilityTracker struct {
	length int
	buf    []float64 // ring buffer, buf[head] is the most recent sample
	head   int
	count  int
}

// NewVolatilityTracker creates a tracker with a window of length prices.
func NewVolatilityTracker(length int) *VolatilityTracker {
	if length <= 0 {
		length = DefaultVolatilityWindow
	}
	return &VolatilityTracker{
		length: length,
		buf:    make([]float64, length),
	}
}

// Insert prepends price and evicts the oldest sample once the window overflows.
func (v *VolatilityTracker) Insert(price float64) {
	v.head = (v.head - 1 + v.length) % v.length
	v.buf[v.head] = price
	if v.count < v.length {
		v.count++
	}
}

// Compute returns (stddev/mean)*sqrt(L) over the window.
// The second return value is false until the window holds exactly L samples.
func (v *VolatilityTracker) Compute() (float64, bool) {
	if v.count != v.length || v.length < 2 {
		return 0, false
	}
	sum := 0.0
	for _, p := range v.buf {
		sum += p
	}
	mean := sum / float64(v.length)
	if mean == 0 {
		return 0, false
	}
	sumSquaredDiff := 0.0
	for _, p := range v.buf {
		diff := p - mean
		sumSquaredDiff += diff * diff
	}
	// sample standard deviation
	stddev := math.Sqrt(sumSquaredDiff / float64(v.length-1))
	return stddev / mean * math.Sqrt(float64(v.length)), true
}

// Len returns the number of samples currently held.
func (v *VolatilityTracker) Len() int {
	return v.count
}

// Length returns the configured window length L.
func (v *VolatilityTracker) Length() int {
	return v.length
}

// Ready reports whether Compute will return a value.
func (v *VolatilityTracker) Ready() bool {
	return v.count == v.length
}

// Prices returns a copy of the window, most recent first.
func (v *VolatilityTracker) Prices() []float64 {
	out := make([]float64, v.count)
	for i := range out {
		out[i] = v.buf[(v.head+i)%v.length]
	}
	return out
}
