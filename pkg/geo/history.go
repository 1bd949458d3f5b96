package geo

import "sync"

// HistoryBuffer maintains a fixed-capacity rolling window over a scalar
// series (speed, altitude). Oldest sample is evicted first.
type HistoryBuffer struct {
	mu       sync.RWMutex
	samples  []float64
	capacity int
}

// NewHistoryBuffer creates a buffer holding at most capacity samples.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryBuffer{
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest when the buffer is full.
func (b *HistoryBuffer) Push(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, v)
	if len(b.samples) > b.capacity {
		b.samples = b.samples[1:]
	}
}

// Len returns the number of stored samples.
func (b *HistoryBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Samples returns a copy of the stored samples, oldest first.
func (b *HistoryBuffer) Samples() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]float64, len(b.samples))
	copy(out, b.samples)
	return out
}

// Reset clears the buffer.
func (b *HistoryBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
}
