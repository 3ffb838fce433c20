package thresholds

import "strings"

// cpuLimitEntry maps a lowercase CPU model-name fragment to its safe limits.
type cpuLimitEntry struct {
	pattern  string
	tempWarn float64
	tempCrit float64
	voltMin  float64
	voltMax  float64
}

// gpuLimitEntry maps a lowercase GPU model-name fragment to its thermal limits.
type gpuLimitEntry struct {
	pattern  string
	tempWarn float64
	tempCrit float64
}

// cpuLimitTable holds known CPU thermal/voltage limits (TJmax-derived).
// Matching is first-hit substring search, so entries are ordered most
// specific first within each family. Unknown parts fall through to the
// generic defaults.
var cpuLimitTable = []cpuLimitEntry{
	// AMD Ryzen 5000 series
	{"ryzen 7 5800x", 75, 90, 0.9, 1.45},
	{"ryzen 9 5900x", 75, 90, 0.9, 1.45},
	{"ryzen 9 5950x", 75, 90, 0.9, 1.45},
	{"ryzen 5 5600x", 75, 90, 0.9, 1.45},
	// AMD Ryzen 7000 series
	{"ryzen 9 7950x", 85, 95, 0.9, 1.35},
	{"ryzen 9 7900x", 85, 95, 0.9, 1.35},
	{"ryzen 7 7700x", 85, 95, 0.9, 1.35},
	// AMD Ryzen 3000 series
	{"ryzen 9 3900x", 70, 85, 0.9, 1.45},
	{"ryzen 7 3700x", 70, 85, 0.9, 1.45},
	// Intel 12th/13th gen
	{"i9-13900", 90, 100, 0.9, 1.52},
	{"i9-12900", 85, 100, 0.9, 1.52},
	{"i7-13700", 85, 100, 0.9, 1.52},
	{"i7-12700", 80, 100, 0.9, 1.52},
	{"i5-13600", 80, 100, 0.9, 1.52},
	// Intel 10th/11th gen
	{"i9-10900", 80, 100, 0.9, 1.52},
	{"i7-10700", 80, 100, 0.9, 1.52},
}

// gpuLimitTable holds known GPU thermal limits, ordered most specific first.
var gpuLimitTable = []gpuLimitEntry{
	// NVIDIA RTX 4000 series
	{"rtx 4090", 80, 90},
	{"rtx 4080", 80, 90},
	{"rtx 4070", 80, 90},
	{"rtx 4060", 80, 90},
	// NVIDIA RTX 3000 series
	{"rtx 3090", 80, 93},
	{"rtx 3080", 80, 93},
	{"rtx 3070", 80, 93},
	{"rtx 3060", 80, 93},
	// NVIDIA RTX 2000 series
	{"rtx 2080", 80, 94},
	{"rtx 2070", 80, 94},
	{"rtx 2060", 80, 94},
	// AMD RX 6000 series
	{"rx 6900", 80, 110},
	{"rx 6800", 80, 110},
	{"rx 6700", 80, 110},
	{"rx 6600", 80, 110},
	// AMD RX 7000 series
	{"rx 7900", 80, 110},
	{"rx 7800", 80, 110},
	{"rx 7700", 80, 110},
}

// Defaults returns the generic fallback profile used when hardware
// detection finds no table match.
func Defaults() *Profile {
	return &Profile{
		CPU: &CPULimits{
			TempWarn:        75,
			TempCrit:        90,
			VoltMin:         0.9,
			VoltMax:         1.45,
			UsageWarn:       85,
			UsageCrit:       95,
			UsageSustainSec: 30,
		},
		GPU: &GPULimits{
			TempWarn:        80,
			TempCrit:        95,
			UsageWarn:       90,
			UsageCrit:       98,
			UsageSustainSec: 30,
		},
		RAM: &RAMLimits{
			UsageWarn: 80,
			UsageCrit: 92,
		},
		Network: &NetworkLimits{
			SpikeMultiplier: 5.0,
			BaselineSamples: 12,
		},
		Voltage: &VoltageLimits{
			CPUMin: 0.9,
			CPUMax: 1.45,
		},
	}
}

// Detect derives a profile from the detected hardware names: generic
// defaults overridden with model-specific limits where a table fragment
// matches (case-insensitive substring, first hit wins). Unknown hardware is
// not an error — the generic profile is the intended fallback.
func Detect(cpuName, gpuName string) *Profile {
	p := Defaults()

	cpuLower := strings.ToLower(cpuName)
	for _, e := range cpuLimitTable {
		if strings.Contains(cpuLower, e.pattern) {
			p.CPU.TempWarn = e.tempWarn
			p.CPU.TempCrit = e.tempCrit
			p.CPU.VoltMin = e.voltMin
			p.CPU.VoltMax = e.voltMax
			p.Voltage.CPUMin = e.voltMin
			p.Voltage.CPUMax = e.voltMax
			break
		}
	}

	gpuLower := strings.ToLower(gpuName)
	for _, e := range gpuLimitTable {
		if strings.Contains(gpuLower, e.pattern) {
			p.GPU.TempWarn = e.tempWarn
			p.GPU.TempCrit = e.tempCrit
			break
		}
	}

	p.DetectedFrom = &Provenance{
		CPU: orUnknown(cpuName),
		GPU: orUnknown(gpuName),
	}
	return p
}

func orUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}
