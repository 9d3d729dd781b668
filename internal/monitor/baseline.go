package monitor

import "sync"

// volumeBaseline tracks a rolling mean of recent window volumes so a sudden
// traffic collapse or spike can be flagged without any external baseline.
type volumeBaseline struct {
	mu      sync.Mutex
	history []float64
	size    int
}

func newVolumeBaseline(size int) *volumeBaseline {
	if size <= 0 {
		size = 24
	}
	return &volumeBaseline{size: size}
}

// Mean returns the rolling mean and whether enough history exists to use it.
func (b *volumeBaseline) Mean() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.history) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range b.history {
		sum += v
	}
	return sum / float64(len(b.history)), true
}

func (b *volumeBaseline) Observe(volume int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, float64(volume))
	if len(b.history) > b.size {
		b.history = b.history[len(b.history)-b.size:]
	}
}
