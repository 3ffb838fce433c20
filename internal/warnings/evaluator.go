// Package warnings implements the threshold rule engine: it classifies live
// metric samples into warning/critical findings using instantaneous limits,
// rolling-average sustained-usage detection, and network baseline anomaly
// detection.
package warnings

import (
	"fmt"
	"time"

	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
	"github.com/kypin00-web/KAM-Sentinel/internal/thresholds"
)

// Severity levels. No third tier exists: network spikes only ever warn.
const (
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// netBaselineFloorKBps guards the spike rule: with a near-idle baseline the
// multiplier comparison would fire on any trivial burst, so baselines at or
// below this floor disable the rule.
const netBaselineFloorKBps = 10

// Warning is one active finding. Recomputed on every evaluation, never
// carried over between ticks; persistence is the caller's business.
type Warning struct {
	ID        string  `json:"id"`
	Level     string  `json:"level"`
	Component string  `json:"component"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// Evaluator holds the rolling state behind the sustained-usage and network
// baseline rules. It is a single-writer resource: exactly one sampling loop
// may call Evaluate. Concurrent readers get published output snapshots from
// the sampler instead of calling in here.
type Evaluator struct {
	pollSec      int
	cpuSustained window
	gpuSustained window
	netBaseline  window
}

// NewEvaluator creates an evaluator calibrated for the sampler's poll
// cadence. The sustained windows count samples, so the poll interval is what
// converts a configured duration into a window capacity. Intervals under one
// second are clamped to one.
func NewEvaluator(pollInterval time.Duration) *Evaluator {
	sec := int(pollInterval / time.Second)
	if sec < 1 {
		sec = 1
	}
	return &Evaluator{pollSec: sec}
}

// sustainSamples converts a configured sustain duration into a window
// capacity. Integer division, minimum 1 — a sustain shorter than the poll
// interval degrades to an instantaneous check.
func (e *Evaluator) sustainSamples(sustainSec float64) int {
	n := int(sustainSec) / e.pollSec
	if n < 1 {
		n = 1
	}
	return n
}

// Evaluate classifies one sample against the profile and returns every
// active warning, mutating the rolling windows as a side effect. The result
// order is fixed display order by category (temperatures, voltage, RAM,
// sustained usage, network), not severity order.
//
// Missing optional sensors (nil temp/voltage/GPU) skip their rules silently.
// The only error condition is a structurally incomplete profile, which is a
// caller configuration bug and is surfaced rather than swallowed.
func (e *Evaluator) Evaluate(p *thresholds.Profile, s metrics.Sample) ([]Warning, error) {
	if err := checkSections(p); err != nil {
		return nil, err
	}

	var out []Warning

	// CPU temperature, critical tier first; the tiers are mutually exclusive.
	if t := s.CPU.Temp; t != nil {
		if *t >= p.CPU.TempCrit {
			out = append(out, Warning{
				ID: "cpu_temp_crit", Level: LevelCritical, Component: "CPU",
				Message:   fmt.Sprintf("CPU temperature critical: %.1f°C (limit: %.1f°C)", *t, p.CPU.TempCrit),
				Value:     *t,
				Threshold: p.CPU.TempCrit,
			})
		} else if *t >= p.CPU.TempWarn {
			out = append(out, Warning{
				ID: "cpu_temp_warn", Level: LevelWarning, Component: "CPU",
				Message:   fmt.Sprintf("CPU temperature elevated: %.1f°C (warn: %.1f°C)", *t, p.CPU.TempWarn),
				Value:     *t,
				Threshold: p.CPU.TempWarn,
			})
		}
	}

	// GPU temperature.
	if t := s.GPU.Temp; t != nil {
		if *t >= p.GPU.TempCrit {
			out = append(out, Warning{
				ID: "gpu_temp_crit", Level: LevelCritical, Component: "GPU",
				Message:   fmt.Sprintf("GPU temperature critical: %.1f°C (limit: %.1f°C)", *t, p.GPU.TempCrit),
				Value:     *t,
				Threshold: p.GPU.TempCrit,
			})
		} else if *t >= p.GPU.TempWarn {
			out = append(out, Warning{
				ID: "gpu_temp_warn", Level: LevelWarning, Component: "GPU",
				Message:   fmt.Sprintf("GPU temperature elevated: %.1f°C (warn: %.1f°C)", *t, p.GPU.TempWarn),
				Value:     *t,
				Threshold: p.GPU.TempWarn,
			})
		}
	}

	// CPU voltage: two independent one-sided checks. Over-voltage is the
	// dangerous direction, hence critical; under-voltage only warns.
	if v := s.CPU.Voltage; v != nil {
		if *v > p.Voltage.CPUMax {
			out = append(out, Warning{
				ID: "cpu_volt_high", Level: LevelCritical, Component: "CPU Voltage",
				Message:   fmt.Sprintf("CPU voltage too high: %.3fV (max safe: %.2fV)", *v, p.Voltage.CPUMax),
				Value:     *v,
				Threshold: p.Voltage.CPUMax,
			})
		} else if *v < p.Voltage.CPUMin {
			out = append(out, Warning{
				ID: "cpu_volt_low", Level: LevelWarning, Component: "CPU Voltage",
				Message:   fmt.Sprintf("CPU voltage low: %.3fV (min: %.2fV)", *v, p.Voltage.CPUMin),
				Value:     *v,
				Threshold: p.Voltage.CPUMin,
			})
		}
	}

	// RAM usage.
	if ram := s.RAM.UsagePercent; ram >= p.RAM.UsageCrit {
		out = append(out, Warning{
			ID: "ram_crit", Level: LevelCritical, Component: "RAM",
			Message:   fmt.Sprintf("RAM usage critical: %.1f%% (limit: %.1f%%)", ram, p.RAM.UsageCrit),
			Value:     ram,
			Threshold: p.RAM.UsageCrit,
		})
	} else if ram >= p.RAM.UsageWarn {
		out = append(out, Warning{
			ID: "ram_warn", Level: LevelWarning, Component: "RAM",
			Message:   fmt.Sprintf("RAM usage high: %.1f%% (warn: %.1f%%)", ram, p.RAM.UsageWarn),
			Value:     ram,
			Threshold: p.RAM.UsageWarn,
		})
	}

	// CPU sustained usage. The window fills during cold start; no sustained
	// verdict is possible until it holds a full capacity of samples.
	cpuN := e.sustainSamples(p.CPU.UsageSustainSec)
	e.cpuSustained.push(s.CPU.Usage, cpuN)
	if e.cpuSustained.len() >= cpuN {
		avg := e.cpuSustained.mean()
		if avg >= p.CPU.UsageCrit {
			out = append(out, Warning{
				ID: "cpu_sustain_crit", Level: LevelCritical, Component: "CPU",
				Message:   fmt.Sprintf("CPU sustained at %.0f%% for %.0fs (limit: %.1f%%)", avg, p.CPU.UsageSustainSec, p.CPU.UsageCrit),
				Value:     avg,
				Threshold: p.CPU.UsageCrit,
			})
		} else if avg >= p.CPU.UsageWarn {
			out = append(out, Warning{
				ID: "cpu_sustain_warn", Level: LevelWarning, Component: "CPU",
				Message:   fmt.Sprintf("CPU sustained high usage: %.0f%% for %.0fs (warn: %.1f%%)", avg, p.CPU.UsageSustainSec, p.CPU.UsageWarn),
				Value:     avg,
				Threshold: p.CPU.UsageWarn,
			})
		}
	}

	// GPU sustained usage. A nil GPU reading is skipped entirely — it must
	// not disturb the window, or an unavailable sensor would dilute the
	// rolling average with phantom samples.
	if u := s.GPU.Usage; u != nil {
		gpuN := e.sustainSamples(p.GPU.UsageSustainSec)
		e.gpuSustained.push(*u, gpuN)
		if e.gpuSustained.len() >= gpuN {
			avg := e.gpuSustained.mean()
			if avg >= p.GPU.UsageCrit {
				out = append(out, Warning{
					ID: "gpu_sustain_crit", Level: LevelCritical, Component: "GPU",
					Message:   fmt.Sprintf("GPU sustained at %.0f%% for %.0fs (limit: %.1f%%)", avg, p.GPU.UsageSustainSec, p.GPU.UsageCrit),
					Value:     avg,
					Threshold: p.GPU.UsageCrit,
				})
			} else if avg >= p.GPU.UsageWarn {
				out = append(out, Warning{
					ID: "gpu_sustain_warn", Level: LevelWarning, Component: "GPU",
					Message:   fmt.Sprintf("GPU sustained high usage: %.0f%% for %.0fs (warn: %.1f%%)", avg, p.GPU.UsageSustainSec, p.GPU.UsageWarn),
					Value:     avg,
					Threshold: p.GPU.UsageWarn,
				})
			}
		}
	}

	// Network anomaly. The window keeps 3x the baseline size so older bursts
	// age out while a shorter trailing slice serves as "normal".
	down := s.Network.DownloadKBps
	baseN := int(p.Network.BaselineSamples)
	if baseN < 1 {
		baseN = 1
	}
	e.netBaseline.push(down, baseN*3)
	if e.netBaseline.len() >= baseN {
		baselineAvg := e.netBaseline.meanLast(baseN)
		mult := p.Network.SpikeMultiplier
		if baselineAvg > netBaselineFloorKBps && down > baselineAvg*mult {
			out = append(out, Warning{
				ID: "net_spike", Level: LevelWarning, Component: "Network",
				Message:   fmt.Sprintf("Network spike: %.1f KB/s (%.1fx above %.1f KB/s baseline)", down, mult, baselineAvg),
				Value:     down,
				Threshold: baselineAvg * mult,
			})
		}
	}

	return out, nil
}

// checkSections verifies structural completeness only. Value-level problems
// (inverted warn/crit pairs) are the profile store's concern at load/save
// time; a missing section here means the caller handed in a broken profile.
func checkSections(p *thresholds.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", thresholds.ErrInvalidProfile)
	}
	switch {
	case p.CPU == nil:
		return fmt.Errorf("%w: missing cpu section", thresholds.ErrInvalidProfile)
	case p.GPU == nil:
		return fmt.Errorf("%w: missing gpu section", thresholds.ErrInvalidProfile)
	case p.RAM == nil:
		return fmt.Errorf("%w: missing ram section", thresholds.ErrInvalidProfile)
	case p.Network == nil:
		return fmt.Errorf("%w: missing network section", thresholds.ErrInvalidProfile)
	case p.Voltage == nil:
		return fmt.Errorf("%w: missing voltage section", thresholds.ErrInvalidProfile)
	}
	return nil
}
