package metrics

// RollingMetric is a circular buffer of the most recent samples.
type RollingMetric struct {
	data   []float64
	index  int
	filled int
}

// Add a value, overwriting the oldest once the buffer is full, and return
// the mean of the samples held.
func (rm *RollingMetric) Add(value float64) float64 {
	dataLength := len(rm.data)
	if dataLength == 0 {
		return value
	}

	// simple index wrap-around technique
	if rm.index >= dataLength {
		rm.index = 0
	}
	rm.data[rm.index] = value
	rm.index++

	if rm.filled < dataLength {
		rm.filled++
	}

	return rm.Mean()
}

// Mean of the held samples, 0 when empty. A partly filled buffer is not
// diluted by its unused slots.
func (rm *RollingMetric) Mean() float64 {
	if rm.filled == 0 {
		return 0
	}

	var total float64
	for i := 0; i < rm.filled; i++ {
		total += rm.data[i]
	}
	return total / float64(rm.filled)
}

// Len is the number of samples currently held.
func (rm *RollingMetric) Len() int {
	return rm.filled
}

// NewRollingMetric creates a rolling metric holding up to size samples.
func NewRollingMetric(size int) *RollingMetric {
	if size < 1 {
		size = 1
	}
	return &RollingMetric{
		data: make([]float64, size),
	}
}
