package metrics

// HistorySnapshot is the JSON shape served to the dashboard charts. Optional
// series use *float64 so gaps (sensor unavailable) render as nulls, not zeros.
type HistorySnapshot struct {
	Timestamps []int64    `json:"timestamps"`
	CPUUsage   []float64  `json:"cpu_usage"`
	CPUTemp    []*float64 `json:"cpu_temp"`
	GPUUsage   []*float64 `json:"gpu_usage"`
	GPUTemp    []*float64 `json:"gpu_temp"`
	RAMUsage   []float64  `json:"ram_usage"`
	NetDown    []float64  `json:"net_down"`
	NetUp      []float64  `json:"net_up"`
}

// History keeps the last N samples for the dashboard sparklines. It is a
// plain bounded FIFO: the oldest sample is dropped once the cap is reached.
// Not safe for concurrent use; the sampler goroutine is the only writer and
// takes snapshots for readers.
type History struct {
	cap     int
	samples []Sample
}

// NewHistory creates a history bounded to size samples (minimum 1).
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{cap: size}
}

// Push appends a sample, evicting the oldest once full.
func (h *History) Push(s Sample) {
	if len(h.samples) == h.cap {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:h.cap-1]
	}
	h.samples = append(h.samples, s)
}

// Len returns the number of retained samples.
func (h *History) Len() int { return len(h.samples) }

// Snapshot converts the retained samples into column-oriented series.
// The returned slices are fresh allocations, safe to hand to another goroutine.
func (h *History) Snapshot() HistorySnapshot {
	n := len(h.samples)
	snap := HistorySnapshot{
		Timestamps: make([]int64, 0, n),
		CPUUsage:   make([]float64, 0, n),
		CPUTemp:    make([]*float64, 0, n),
		GPUUsage:   make([]*float64, 0, n),
		GPUTemp:    make([]*float64, 0, n),
		RAMUsage:   make([]float64, 0, n),
		NetDown:    make([]float64, 0, n),
		NetUp:      make([]float64, 0, n),
	}
	for _, s := range h.samples {
		snap.Timestamps = append(snap.Timestamps, s.Taken.Unix())
		snap.CPUUsage = append(snap.CPUUsage, s.CPU.Usage)
		snap.CPUTemp = append(snap.CPUTemp, copyOpt(s.CPU.Temp))
		snap.GPUUsage = append(snap.GPUUsage, copyOpt(s.GPU.Usage))
		snap.GPUTemp = append(snap.GPUTemp, copyOpt(s.GPU.Temp))
		snap.RAMUsage = append(snap.RAMUsage, s.RAM.UsagePercent)
		snap.NetDown = append(snap.NetDown, s.Network.DownloadKBps)
		snap.NetUp = append(snap.NetUp, s.Network.UploadKBps)
	}
	return snap
}

func copyOpt(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
