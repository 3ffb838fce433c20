// Package sampler implements the hardware polling subsystem: a gopsutil
// collector, a background nvidia-smi monitor, and the single-goroutine
// sampling loop that feeds the warning evaluator.
package sampler

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
)

// Collector gathers one metrics.Sample per call. Network bandwidth is
// delta-based, so the first call after construction reports zero; callers
// prime it with a throwaway Collect before the real loop starts.
type Collector struct {
	gpu *gpuMonitor

	mu          sync.Mutex
	prevRx      uint64
	prevTx      uint64
	prevTime    time.Time
	initialized bool

	cores   int
	threads int
}

// NewCollector creates a ready-to-use Collector sharing the given GPU monitor.
func NewCollector(gpu *gpuMonitor) *Collector {
	c := &Collector{gpu: gpu}
	if n, err := cpu.Counts(false); err == nil {
		c.cores = n
	}
	if n, err := cpu.Counts(true); err == nil {
		c.threads = n
	}
	return c
}

// Collect gathers the current sample. Optional sensors that fail to read
// come back nil; only a total CPU/RAM probe failure degrades to zeros.
func (c *Collector) Collect() metrics.Sample {
	s := metrics.Sample{Taken: time.Now()}

	// Non-blocking delta measurement: percent since the previous call.
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPU.Usage = pcts[0]
	}
	s.CPU.Temp = cpuTemp()
	s.CPU.Voltage = cpuVoltage()
	s.CPU.FreqGHz = cpuFreq()
	s.CPU.Cores = c.cores
	s.CPU.Threads = c.threads

	if vm, err := mem.VirtualMemory(); err == nil {
		s.RAM.UsagePercent = vm.UsedPercent
		s.RAM.UsedGB = float64(vm.Used) / (1 << 30)
		s.RAM.TotalGB = float64(vm.Total) / (1 << 30)
		s.RAM.AvailableGB = float64(vm.Available) / (1 << 30)
	}

	s.GPU = c.gpu.Latest()

	up, down := c.netBandwidth()
	s.Network.UploadKBps = up
	s.Network.DownloadKBps = down

	return s
}

// netBandwidth computes KB/s since the last call using IOCounters deltas.
func (c *Collector) netBandwidth() (upKBps, downKBps float64) {
	stats, err := psnet.IOCounters(false) // aggregate all interfaces
	if err != nil || len(stats) == 0 {
		return 0, 0
	}
	now := time.Now()
	curRx := stats[0].BytesRecv
	curTx := stats[0].BytesSent

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		upKBps, downKBps = bandwidthDelta(c.prevTx, curTx, c.prevRx, curRx, now.Sub(c.prevTime))
	}

	c.prevRx = curRx
	c.prevTx = curTx
	c.prevTime = now
	c.initialized = true
	return
}

// bandwidthDelta converts two counter readings into KB/s. Counter resets
// (reboot, interface re-enumeration) clamp to zero instead of going negative.
func bandwidthDelta(prevTx, curTx, prevRx, curRx uint64, elapsed time.Duration) (upKBps, downKBps float64) {
	sec := elapsed.Seconds()
	if sec <= 0 {
		return 0, 0
	}
	if curTx >= prevTx {
		upKBps = float64(curTx-prevTx) / sec / 1024
	}
	if curRx >= prevRx {
		downKBps = float64(curRx-prevRx) / sec / 1024
	}
	return
}

// cpuTemp returns the first plausible temperature sensor reading, or nil.
// Readings outside (0, 120)°C are sensor glitches and are skipped.
func cpuTemp() *float64 {
	temps, err := sensors.SensorsTemperatures()
	if err != nil {
		return nil
	}
	for _, t := range temps {
		if t.Temperature > 0 && t.Temperature < 120 {
			v := t.Temperature
			return &v
		}
	}
	return nil
}

// cpuVoltage reads the CPU core voltage from linux hwmon (label "vcore",
// millivolts). Other platforms report nil: the voltage rules simply stay
// inapplicable there.
func cpuVoltage() *float64 {
	hwmons, err := filepath.Glob("/sys/class/hwmon/hwmon*")
	if err != nil {
		return nil
	}
	for _, dir := range hwmons {
		labels, _ := filepath.Glob(filepath.Join(dir, "in*_label"))
		for _, labelPath := range labels {
			raw, err := os.ReadFile(labelPath)
			if err != nil {
				continue
			}
			if !strings.Contains(strings.ToLower(strings.TrimSpace(string(raw))), "vcore") {
				continue
			}
			inputPath := strings.TrimSuffix(labelPath, "_label") + "_input"
			rawV, err := os.ReadFile(inputPath)
			if err != nil {
				continue
			}
			mv, err := strconv.ParseFloat(strings.TrimSpace(string(rawV)), 64)
			if err != nil {
				continue
			}
			v := mv / 1000
			return &v
		}
	}
	return nil
}

func cpuFreq() *float64 {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 || infos[0].Mhz <= 0 {
		return nil
	}
	v := infos[0].Mhz / 1000
	return &v
}
