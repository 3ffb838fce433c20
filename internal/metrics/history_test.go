package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
)

func sampleAt(usage float64, ts int64) metrics.Sample {
	return metrics.Sample{
		CPU:   metrics.CPUMetrics{Usage: usage},
		Taken: time.Unix(ts, 0),
	}
}

func TestHistoryBounded(t *testing.T) {
	h := metrics.NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(sampleAt(float64(i), int64(i)))
	}
	assert.Equal(t, 3, h.Len())

	snap := h.Snapshot()
	assert.Equal(t, []float64{2, 3, 4}, snap.CPUUsage, "oldest samples evicted first")
	assert.Equal(t, []int64{2, 3, 4}, snap.Timestamps)
}

func TestHistoryMinimumSize(t *testing.T) {
	h := metrics.NewHistory(0)
	h.Push(sampleAt(1, 1))
	h.Push(sampleAt(2, 2))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, []float64{2}, h.Snapshot().CPUUsage)
}

func TestSnapshotPreservesGaps(t *testing.T) {
	h := metrics.NewHistory(4)

	withTemp := sampleAt(10, 1)
	withTemp.CPU.Temp = metrics.Float(55)
	h.Push(withTemp)
	h.Push(sampleAt(20, 2)) // no temp sensor this tick

	snap := h.Snapshot()
	require.Len(t, snap.CPUTemp, 2)
	require.NotNil(t, snap.CPUTemp[0])
	assert.Equal(t, 55.0, *snap.CPUTemp[0])
	assert.Nil(t, snap.CPUTemp[1], "missing readings stay null, never zero")
}

func TestSnapshotIsDetached(t *testing.T) {
	h := metrics.NewHistory(4)
	s := sampleAt(10, 1)
	s.GPU.Temp = metrics.Float(60)
	h.Push(s)

	snap := h.Snapshot()
	*snap.GPUTemp[0] = 999
	snap.CPUUsage[0] = 999

	again := h.Snapshot()
	assert.Equal(t, 60.0, *again.GPUTemp[0], "snapshots must not alias history storage")
	assert.Equal(t, 10.0, again.CPUUsage[0])
}

func TestSnapshotEmpty(t *testing.T) {
	snap := metrics.NewHistory(5).Snapshot()
	assert.Empty(t, snap.Timestamps)
	assert.Empty(t, snap.CPUUsage)
}
