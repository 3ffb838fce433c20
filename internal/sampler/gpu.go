package sampler

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kypin00-web/KAM-Sentinel/internal/logger"
	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
)

// gpuRefreshInterval: nvidia-smi forks a process (tens of ms), so it runs on
// its own timer off the evaluation path and the collector only ever reads
// the cached result.
const gpuRefreshInterval = 10 * time.Second

// gpuMonitor keeps the latest GPU reading refreshed by a background
// goroutine. On machines without nvidia-smi the cached value stays all-nil,
// which downstream rules treat as "sensor unavailable".
type gpuMonitor struct {
	mu     sync.RWMutex
	latest metrics.GPUMetrics

	failureLogged bool
}

// NewGPUMonitor performs one synchronous probe so the first samples already
// carry GPU data, then refreshes in the background until ctx is done.
func NewGPUMonitor(ctx context.Context) *gpuMonitor {
	m := &gpuMonitor{}
	m.refresh(ctx)
	go m.loop(ctx)
	return m
}

// Latest returns the cached reading.
func (m *gpuMonitor) Latest() metrics.GPUMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *gpuMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(gpuRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *gpuMonitor) refresh(ctx context.Context) {
	g, err := queryGPU(ctx)
	if err != nil {
		// Expected on GPU-less machines; log the first failure only so a
		// missing binary doesn't spam the log every cycle.
		m.mu.Lock()
		if !m.failureLogged {
			logger.Debug().Err(err).Msg("gpu stats unavailable")
			m.failureLogged = true
		}
		m.latest = metrics.GPUMetrics{Name: "N/A"}
		m.mu.Unlock()
		return
	}
	m.mu.Lock()
	m.latest = g
	m.failureLogged = false
	m.mu.Unlock()
}

// queryGPU shells out to nvidia-smi for the first GPU's live stats.
func queryGPU(ctx context.Context) (metrics.GPUMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu,temperature.gpu,name,memory.used,memory.total",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return metrics.GPUMetrics{}, err
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return metrics.GPUMetrics{}, errShortOutput
	}

	g := metrics.GPUMetrics{Name: strings.TrimSpace(fields[2])}
	g.Usage = parseField(fields[0])
	g.Temp = parseField(fields[1])
	g.VRAMUsed = parseField(fields[3])
	g.VRAMTotal = parseField(fields[4])
	return g, nil
}

var errShortOutput = errors.New("nvidia-smi: short output")

// parseField converts one nvidia-smi CSV field; "[N/A]" and garbage are nil.
func parseField(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}
