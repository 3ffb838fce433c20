// Package thresholds owns the warning threshold profile: hardware-aware
// defaults, JSON persistence with forward-compatible schema merging, and
// validated user updates.
package thresholds

import (
	"errors"
	"fmt"
)

// Sentinel errors. ErrInvalidProfile covers structural problems (missing
// section, inverted warn/crit pair); the others classify rejected updates
// and storage failures.
var (
	ErrInvalidProfile  = errors.New("invalid threshold profile")
	ErrUnknownSection  = errors.New("unknown threshold section")
	ErrUnknownKey      = errors.New("unknown threshold key")
	ErrValueOutOfRange = errors.New("threshold value out of range")
	ErrStorage         = errors.New("threshold storage failure")
)

// CPULimits configures CPU temperature, voltage and usage rules.
// Temperatures in °C, voltages in volts, usage in percent, sustain in seconds.
type CPULimits struct {
	TempWarn        float64 `json:"temp_warn"`
	TempCrit        float64 `json:"temp_crit"`
	VoltMin         float64 `json:"volt_min"`
	VoltMax         float64 `json:"volt_max"`
	UsageWarn       float64 `json:"usage_warn"`
	UsageCrit       float64 `json:"usage_crit"`
	UsageSustainSec float64 `json:"usage_sustain_sec"`
}

// GPULimits configures GPU temperature and usage rules.
type GPULimits struct {
	TempWarn        float64 `json:"temp_warn"`
	TempCrit        float64 `json:"temp_crit"`
	UsageWarn       float64 `json:"usage_warn"`
	UsageCrit       float64 `json:"usage_crit"`
	UsageSustainSec float64 `json:"usage_sustain_sec"`
}

// RAMLimits configures memory usage rules.
type RAMLimits struct {
	UsageWarn float64 `json:"usage_warn"`
	UsageCrit float64 `json:"usage_crit"`
}

// NetworkLimits configures download spike detection: alert when the current
// download rate exceeds SpikeMultiplier times the trailing baseline average
// of the last BaselineSamples readings.
type NetworkLimits struct {
	SpikeMultiplier float64 `json:"spike_multiplier"`
	BaselineSamples float64 `json:"baseline_samples"`
}

// VoltageLimits configures the safe CPU core voltage band.
type VoltageLimits struct {
	CPUMin float64 `json:"cpu_min"`
	CPUMax float64 `json:"cpu_max"`
}

// Provenance records which hardware names produced the detected defaults.
// Metadata only; never consulted during evaluation.
type Provenance struct {
	CPU string `json:"cpu"`
	GPU string `json:"gpu"`
}

// Profile is the full configured limit set, JSON-compatible with the
// persisted profiles/thresholds.json file. Sections are pointers so a
// structurally incomplete profile is representable (and rejected by
// Validate) rather than silently zero-valued.
type Profile struct {
	CPU          *CPULimits     `json:"cpu"`
	GPU          *GPULimits     `json:"gpu"`
	RAM          *RAMLimits     `json:"ram"`
	Network      *NetworkLimits `json:"network"`
	Voltage      *VoltageLimits `json:"voltage"`
	DetectedFrom *Provenance    `json:"_detected_from,omitempty"`
}

// Validate checks structural completeness and the warn<=crit invariants.
// An inverted pair would make the critical tier unreachable, so it is
// rejected on load and save rather than silently accepted.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidProfile)
	}
	switch {
	case p.CPU == nil:
		return fmt.Errorf("%w: missing cpu section", ErrInvalidProfile)
	case p.GPU == nil:
		return fmt.Errorf("%w: missing gpu section", ErrInvalidProfile)
	case p.RAM == nil:
		return fmt.Errorf("%w: missing ram section", ErrInvalidProfile)
	case p.Network == nil:
		return fmt.Errorf("%w: missing network section", ErrInvalidProfile)
	case p.Voltage == nil:
		return fmt.Errorf("%w: missing voltage section", ErrInvalidProfile)
	}
	if p.CPU.TempWarn > p.CPU.TempCrit {
		return fmt.Errorf("%w: cpu temp_warn %.1f > temp_crit %.1f", ErrInvalidProfile, p.CPU.TempWarn, p.CPU.TempCrit)
	}
	if p.CPU.UsageWarn > p.CPU.UsageCrit {
		return fmt.Errorf("%w: cpu usage_warn %.1f > usage_crit %.1f", ErrInvalidProfile, p.CPU.UsageWarn, p.CPU.UsageCrit)
	}
	if p.GPU.TempWarn > p.GPU.TempCrit {
		return fmt.Errorf("%w: gpu temp_warn %.1f > temp_crit %.1f", ErrInvalidProfile, p.GPU.TempWarn, p.GPU.TempCrit)
	}
	if p.GPU.UsageWarn > p.GPU.UsageCrit {
		return fmt.Errorf("%w: gpu usage_warn %.1f > usage_crit %.1f", ErrInvalidProfile, p.GPU.UsageWarn, p.GPU.UsageCrit)
	}
	if p.RAM.UsageWarn > p.RAM.UsageCrit {
		return fmt.Errorf("%w: ram usage_warn %.1f > usage_crit %.1f", ErrInvalidProfile, p.RAM.UsageWarn, p.RAM.UsageCrit)
	}
	if p.Voltage.CPUMin > p.Voltage.CPUMax {
		return fmt.Errorf("%w: voltage cpu_min %.2f > cpu_max %.2f", ErrInvalidProfile, p.Voltage.CPUMin, p.Voltage.CPUMax)
	}
	if p.Network.BaselineSamples < 1 {
		return fmt.Errorf("%w: network baseline_samples must be >= 1", ErrInvalidProfile)
	}
	return nil
}

// Clone returns a deep copy; Update works on a clone so a rejected patch
// never touches the live profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := &Profile{}
	if p.CPU != nil {
		v := *p.CPU
		out.CPU = &v
	}
	if p.GPU != nil {
		v := *p.GPU
		out.GPU = &v
	}
	if p.RAM != nil {
		v := *p.RAM
		out.RAM = &v
	}
	if p.Network != nil {
		v := *p.Network
		out.Network = &v
	}
	if p.Voltage != nil {
		v := *p.Voltage
		out.Voltage = &v
	}
	if p.DetectedFrom != nil {
		v := *p.DetectedFrom
		out.DetectedFrom = &v
	}
	return out
}
