package warnings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
	"github.com/kypin00-web/KAM-Sentinel/internal/thresholds"
	"github.com/kypin00-web/KAM-Sentinel/internal/warnings"
)

const pollInterval = 5 * time.Second

// quietSample reads well below every generic threshold.
func quietSample() metrics.Sample {
	return metrics.Sample{
		CPU:     metrics.CPUMetrics{Usage: 10, Temp: metrics.Float(40)},
		GPU:     metrics.GPUMetrics{Usage: metrics.Float(5), Temp: metrics.Float(40)},
		RAM:     metrics.RAMMetrics{UsagePercent: 30},
		Network: metrics.NetworkMetrics{DownloadKBps: 50},
	}
}

func ids(ws []warnings.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}

func TestQuietSampleYieldsNoWarnings(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	ws, err := e.Evaluate(thresholds.Defaults(), quietSample())
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestCPUTempCritical(t *testing.T) {
	// Generic defaults; hot CPU, everything else quiet.
	e := warnings.NewEvaluator(pollInterval)
	s := quietSample()
	s.CPU.Temp = metrics.Float(95)

	ws, err := e.Evaluate(thresholds.Defaults(), s)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "cpu_temp_crit", ws[0].ID)
	assert.Equal(t, warnings.LevelCritical, ws[0].Level)
	assert.Equal(t, 95.0, ws[0].Value)
	assert.Equal(t, 90.0, ws[0].Threshold)
	// The message carries both the observed value and the fired threshold.
	assert.Contains(t, ws[0].Message, "95.0")
	assert.Contains(t, ws[0].Message, "90.0")
}

func TestCriticalSuppressesWarningTier(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*metrics.Sample)
		critID string
		warnID string
	}{
		{"cpu temp", func(s *metrics.Sample) { s.CPU.Temp = metrics.Float(99) }, "cpu_temp_crit", "cpu_temp_warn"},
		{"gpu temp", func(s *metrics.Sample) { s.GPU.Temp = metrics.Float(99) }, "gpu_temp_crit", "gpu_temp_warn"},
		{"ram", func(s *metrics.Sample) { s.RAM.UsagePercent = 99 }, "ram_crit", "ram_warn"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := warnings.NewEvaluator(pollInterval)
			s := quietSample()
			tc.mutate(&s)
			ws, err := e.Evaluate(thresholds.Defaults(), s)
			require.NoError(t, err)
			assert.Contains(t, ids(ws), tc.critID)
			assert.NotContains(t, ids(ws), tc.warnID, "crit and warn tiers are mutually exclusive")
		})
	}
}

func TestWarningTierAtBoundary(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	s := quietSample()
	s.CPU.Temp = metrics.Float(75) // exactly temp_warn, below temp_crit

	ws, err := e.Evaluate(thresholds.Defaults(), s)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "cpu_temp_warn", ws[0].ID)
	assert.Equal(t, warnings.LevelWarning, ws[0].Level)
}

func TestVoltageAsymmetricSeverity(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)

	s := quietSample()
	s.CPU.Voltage = metrics.Float(1.50) // above cpu_max 1.45
	ws, err := e.Evaluate(thresholds.Defaults(), s)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "cpu_volt_high", ws[0].ID)
	assert.Equal(t, warnings.LevelCritical, ws[0].Level, "over-voltage is the dangerous direction")

	s = quietSample()
	s.CPU.Voltage = metrics.Float(0.7) // below cpu_min 0.9
	ws, err = e.Evaluate(thresholds.Defaults(), s)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "cpu_volt_low", ws[0].ID)
	assert.Equal(t, warnings.LevelWarning, ws[0].Level)
}

func TestNullSensorsSkipRules(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	s := metrics.Sample{
		CPU:     metrics.CPUMetrics{Usage: 10}, // no temp, no voltage
		GPU:     metrics.GPUMetrics{},          // no usage, no temp
		RAM:     metrics.RAMMetrics{UsagePercent: 30},
		Network: metrics.NetworkMetrics{DownloadKBps: 50},
	}
	ws, err := e.Evaluate(thresholds.Defaults(), s)
	require.NoError(t, err, "missing sensors must never be an error")
	assert.Empty(t, ws)
}

func TestSustainedWindowBoundary(t *testing.T) {
	// sustain 30s at 5s polls → capacity 6.
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()

	s := quietSample()
	s.CPU.Usage = 100

	for i := 0; i < 5; i++ {
		ws, err := e.Evaluate(p, s)
		require.NoError(t, err)
		assert.NotContains(t, ids(ws), "cpu_sustain_crit", "call %d: window not full yet", i+1)
	}
	ws, err := e.Evaluate(p, s)
	require.NoError(t, err)
	assert.Contains(t, ids(ws), "cpu_sustain_crit", "capacity-th sample crosses the mean threshold")
}

func TestSustainedTwelveTicks(t *testing.T) {
	// sustain 60s at 5s polls → capacity 12; usage 96 ≥ usage_crit 95.
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()
	p.CPU.UsageSustainSec = 60

	s := quietSample()
	s.CPU.Usage = 96

	for i := 0; i < 11; i++ {
		ws, err := e.Evaluate(p, s)
		require.NoError(t, err)
		assert.NotContains(t, ids(ws), "cpu_sustain_crit", "call %d", i+1)
	}
	ws, err := e.Evaluate(p, s)
	require.NoError(t, err)
	assert.Contains(t, ids(ws), "cpu_sustain_crit", "12th call fires")
}

func TestSustainedWarnBelowCrit(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()

	s := quietSample()
	s.CPU.Usage = 90 // between usage_warn 85 and usage_crit 95

	var last []warnings.Warning
	for i := 0; i < 6; i++ {
		var err error
		last, err = e.Evaluate(p, s)
		require.NoError(t, err)
	}
	assert.Contains(t, ids(last), "cpu_sustain_warn")
	assert.NotContains(t, ids(last), "cpu_sustain_crit")
}

func TestNilGPUDoesNotDisturbWindow(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()

	hot := quietSample()
	hot.GPU.Usage = metrics.Float(100)
	gone := quietSample()
	gone.GPU.Usage = nil

	// Interleave 5 hot readings with nil readings; the nils must not count
	// toward (or dilute) the 6-sample window.
	for i := 0; i < 5; i++ {
		_, err := e.Evaluate(p, hot)
		require.NoError(t, err)
		_, err = e.Evaluate(p, gone)
		require.NoError(t, err)
	}
	ws, err := e.Evaluate(p, hot)
	require.NoError(t, err)
	assert.Contains(t, ids(ws), "gpu_sustain_crit", "6 non-nil samples of 100%% fill the window")
}

func TestNetworkBaselineFloorGuard(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults() // baseline_samples 12, multiplier 5

	// Near-idle baseline (avg <= 10 KB/s): even a 100x burst stays silent.
	s := quietSample()
	s.Network.DownloadKBps = 0.5
	for i := 0; i < 12; i++ {
		_, err := e.Evaluate(p, s)
		require.NoError(t, err)
	}
	burst := quietSample()
	burst.Network.DownloadKBps = 50 // 100x the idle rate; avg incl. burst is still ~4.6
	ws, err := e.Evaluate(p, burst)
	require.NoError(t, err)
	assert.NotContains(t, ids(ws), "net_spike", "floor guard disables the rule on near-zero baselines")
}

func TestNetworkSpikeFires(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()

	s := quietSample()
	s.Network.DownloadKBps = 100
	for i := 0; i < 12; i++ {
		_, err := e.Evaluate(p, s)
		require.NoError(t, err)
	}

	burst := quietSample()
	burst.Network.DownloadKBps = 5000 // baseline ~100, threshold ~500
	ws, err := e.Evaluate(p, burst)
	require.NoError(t, err)
	require.Contains(t, ids(ws), "net_spike")
	for _, w := range ws {
		if w.ID == "net_spike" {
			assert.Equal(t, warnings.LevelWarning, w.Level, "network has no critical tier")
			assert.Equal(t, 5000.0, w.Value)
			assert.InDelta(t, 2541.0, w.Threshold, 100, "threshold = baseline avg (incl. burst) x multiplier")
		}
	}
}

func TestResultOrderIsDisplayOrder(t *testing.T) {
	// Fire every category at once and check category order: CPU temp, GPU
	// temp, voltage, RAM, CPU sustained, GPU sustained, network.
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()

	loud := metrics.Sample{
		CPU:     metrics.CPUMetrics{Usage: 100, Temp: metrics.Float(99), Voltage: metrics.Float(1.6)},
		GPU:     metrics.GPUMetrics{Usage: metrics.Float(100), Temp: metrics.Float(99)},
		RAM:     metrics.RAMMetrics{UsagePercent: 99},
		Network: metrics.NetworkMetrics{DownloadKBps: 100},
	}
	// Fill the sustained windows (capacity 6) and the network baseline
	// (12 samples at a steady 100 KB/s) before the tick under test, so every
	// rule can fire at once; the download burst arrives only on that tick.
	for i := 0; i < 12; i++ {
		_, err := e.Evaluate(p, loud)
		require.NoError(t, err)
	}
	final := loud
	final.Network.DownloadKBps = 5000
	ws, err := e.Evaluate(p, final)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cpu_temp_crit", "gpu_temp_crit", "cpu_volt_high", "ram_crit",
		"cpu_sustain_crit", "gpu_sustain_crit", "net_spike",
	}, ids(ws))
}

func TestStructurallyInvalidProfile(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)

	_, err := e.Evaluate(nil, quietSample())
	require.ErrorIs(t, err, thresholds.ErrInvalidProfile)

	p := thresholds.Defaults()
	p.Voltage = nil
	_, err = e.Evaluate(p, quietSample())
	require.ErrorIs(t, err, thresholds.ErrInvalidProfile)
}

func TestSustainShorterThanPollDegradesToInstant(t *testing.T) {
	e := warnings.NewEvaluator(pollInterval)
	p := thresholds.Defaults()
	p.CPU.UsageSustainSec = 1 // below the 5s poll interval → capacity 1

	s := quietSample()
	s.CPU.Usage = 100
	ws, err := e.Evaluate(p, s)
	require.NoError(t, err)
	assert.Contains(t, ids(ws), "cpu_sustain_crit", "single sample fills a capacity-1 window")
}
