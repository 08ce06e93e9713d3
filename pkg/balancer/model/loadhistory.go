package model

// LoadSample is one periodic measurement reported for a region, matching
// the counters a region server exposes: two monotonically increasing
// request counters and two point-in-time size gauges.
type LoadSample struct {
	ReadReqCount    int64
	WriteReqCount   int64
	MemStoreSizeMB  int32
	StorefileSizeMB int32
}

// LoadHistory is a bounded FIFO of the most recent LoadSamples for one
// region, oldest first. Capacity is fixed at construction
// (numRegionLoadsToRemember in the balancer configuration, default 15).
type LoadHistory struct {
	samples  []LoadSample
	capacity int
}

// NewLoadHistory returns an empty history with the given capacity.
func NewLoadHistory(capacity int) *LoadHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &LoadHistory{samples: make([]LoadSample, 0, capacity), capacity: capacity}
}

// Add appends a sample, evicting the oldest if at capacity.
func (h *LoadHistory) Add(s LoadSample) {
	if len(h.samples) == h.capacity {
		copy(h.samples, h.samples[1:])
		h.samples[len(h.samples)-1] = s
		return
	}
	h.samples = append(h.samples, s)
}

// Samples returns the samples oldest-first. The caller must not mutate
// the returned slice.
func (h *LoadHistory) Samples() []LoadSample {
	return h.samples
}

// Len returns the number of samples currently held.
func (h *LoadHistory) Len() int {
	return len(h.samples)
}

// ReadReqDiffMean returns the mean of the first differences of
// ReadReqCount across the held window. May be negative if a counter
// reset occurred within the window; callers apply their own floor.
func (h *LoadHistory) ReadReqDiffMean() float64 {
	return diffMean(h.samples, func(s LoadSample) float64 { return float64(s.ReadReqCount) })
}

// WriteReqDiffMean is the WriteReqCount analogue of ReadReqDiffMean.
func (h *LoadHistory) WriteReqDiffMean() float64 {
	return diffMean(h.samples, func(s LoadSample) float64 { return float64(s.WriteReqCount) })
}

// MemStoreDiffMean is the MemStoreSizeMB analogue of ReadReqDiffMean.
func (h *LoadHistory) MemStoreDiffMean() float64 {
	return diffMean(h.samples, func(s LoadSample) float64 { return float64(s.MemStoreSizeMB) })
}

// LatestStorefileSizeMB returns the most recent StorefileSizeMB sample,
// or 0 if there is no history yet. Unlike the request-rate stats this is
// not a rate: storefile size is used as an absolute per-server total.
func (h *LoadHistory) LatestStorefileSizeMB() float64 {
	if len(h.samples) == 0 {
		return 0
	}
	return float64(h.samples[len(h.samples)-1].StorefileSizeMB)
}

func diffMean(samples []LoadSample, extract func(LoadSample) float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	n := 0
	for i := 1; i < len(samples); i++ {
		sum += extract(samples[i]) - extract(samples[i-1])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
