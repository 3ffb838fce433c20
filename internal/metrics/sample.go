// Package metrics defines the in-memory sample types shared by the sampler,
// the warning evaluator, and the HTTP layer. Optional sensors (temperature,
// voltage, GPU) are pointers: nil means the sensor is unavailable on this
// platform, which every consumer must treat as "no reading", never as zero.
package metrics

import "time"

// CPUMetrics is one CPU observation.
type CPUMetrics struct {
	Usage   float64  `json:"usage"` // percent 0-100
	Temp    *float64 `json:"temp"`  // °C, nil if no sensor
	Voltage *float64 `json:"voltage"`
	FreqGHz *float64 `json:"freq_ghz"`
	Cores   int      `json:"cores"`
	Threads int      `json:"threads"`
}

// GPUMetrics is one GPU observation. All fields are optional: a machine
// without a discrete GPU (or without nvidia-smi) reports nil across the board.
type GPUMetrics struct {
	Usage     *float64 `json:"usage"` // percent 0-100
	Temp      *float64 `json:"temp"`  // °C
	Name      string   `json:"name"`
	VRAMUsed  *float64 `json:"vram_used"`  // MiB
	VRAMTotal *float64 `json:"vram_total"` // MiB
}

// RAMMetrics is one memory observation.
type RAMMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	UsedGB       float64 `json:"used_gb"`
	TotalGB      float64 `json:"total_gb"`
	AvailableGB  float64 `json:"available_gb"`
}

// NetworkMetrics is one bandwidth observation, computed from counter deltas.
type NetworkMetrics struct {
	UploadKBps   float64 `json:"upload_kbps"`
	DownloadKBps float64 `json:"download_kbps"`
}

// Sample is one full observation handed to the warning evaluator each poll
// tick. It is never stored beyond the bounded history/rolling windows.
type Sample struct {
	CPU     CPUMetrics     `json:"cpu"`
	GPU     GPUMetrics     `json:"gpu"`
	RAM     RAMMetrics     `json:"ram"`
	Network NetworkMetrics `json:"network"`
	Taken   time.Time      `json:"-"`
}

// Float returns a pointer to v; convenience for building samples with
// optional sensor readings.
func Float(v float64) *float64 { return &v }
