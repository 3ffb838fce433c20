package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/kypin00-web/KAM-Sentinel/internal/logger"
	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
	"github.com/kypin00-web/KAM-Sentinel/internal/thresholds"
	"github.com/kypin00-web/KAM-Sentinel/internal/warnings"
)

// LogEntry pairs a sample with the warnings it fired, for batched persistence.
type LogEntry struct {
	Sample   metrics.Sample
	Warnings []warnings.Warning
}

// MetricSource yields one sample per call. Satisfied by *Collector; the
// sampler only cares that something hands it fresh readings.
type MetricSource interface {
	Collect() metrics.Sample
}

// Recorder is the persistence collaborator. The sampler buffers entries and
// hands over whole batches so disk writes never happen on every tick.
type Recorder interface {
	RecordBatch(entries []LogEntry) error
	// SaveBaselineOnce persists a first-run baseline snapshot; a no-op if a
	// baseline already exists.
	SaveBaselineOnce(s metrics.Sample) error
}

// Stats is the published output snapshot: the latest sample, its active
// warnings, and the chart history. Immutable once published — HTTP handlers
// read it without coordinating with the sampling loop.
type Stats struct {
	CPU       metrics.CPUMetrics      `json:"cpu"`
	RAM       metrics.RAMMetrics      `json:"ram"`
	GPU       metrics.GPUMetrics      `json:"gpu"`
	Network   metrics.NetworkMetrics  `json:"network"`
	Warnings  []warnings.Warning      `json:"warnings"`
	History   metrics.HistorySnapshot `json:"history"`
	Timestamp int64                   `json:"timestamp"`
}

// Sampler drives the whole pipeline from a single goroutine: collect,
// record history, evaluate warnings, publish a snapshot, batch-persist.
// The evaluator's rolling windows are only ever touched from Run, which is
// what makes them safe without their own lock.
type Sampler struct {
	collector MetricSource
	evaluator *warnings.Evaluator
	profiles  *thresholds.Manager
	history   *metrics.History
	recorder  Recorder

	interval  time.Duration
	batchSize int
	buffer    []LogEntry

	mu     sync.RWMutex
	latest *Stats
}

// New wires a sampler. recorder may be nil to disable persistence.
func New(collector MetricSource, profiles *thresholds.Manager, recorder Recorder,
	interval time.Duration, historySize, batchSize int,
) *Sampler {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Sampler{
		collector: collector,
		evaluator: warnings.NewEvaluator(interval),
		profiles:  profiles,
		history:   metrics.NewHistory(historySize),
		recorder:  recorder,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Latest returns the most recent published snapshot, or nil while warming up.
func (s *Sampler) Latest() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Run executes the sampling loop until ctx is done, then flushes any
// buffered log entries. The first tick runs immediately so /api/stats is
// served as soon as the process is up.
func (s *Sampler) Run(ctx context.Context) {
	// Prime the delta-based probes (cpu.Percent, net counters); the first
	// reading after construction is always zero.
	s.collector.Collect()

	first := s.tick()
	if s.recorder != nil && first != nil {
		if err := s.recorder.SaveBaselineOnce(*first); err != nil {
			logger.Warn().Err(err).Msg("saving baseline snapshot")
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-ctx.Done():
			s.flush()
			logger.Info().Msg("sampler stopped")
			return
		}
	}
}

// tick runs one full poll cycle and returns the collected sample.
func (s *Sampler) tick() *metrics.Sample {
	sample := s.collector.Collect()
	s.history.Push(sample)

	active, err := s.evaluator.Evaluate(s.profiles.Current(), sample)
	if err != nil {
		// Structural profile problem: a wiring bug, not a runtime condition.
		logger.Error().Err(err).Msg("warning evaluation failed")
		return &sample
	}
	for _, w := range active {
		logger.Debug().Str("id", w.ID).Str("level", w.Level).Msg(w.Message)
	}

	s.publish(sample, active)

	if s.recorder != nil {
		s.buffer = append(s.buffer, LogEntry{Sample: sample, Warnings: active})
		if len(s.buffer) >= s.batchSize {
			s.flush()
		}
	}
	return &sample
}

func (s *Sampler) publish(sample metrics.Sample, active []warnings.Warning) {
	stats := &Stats{
		CPU:       sample.CPU,
		RAM:       sample.RAM,
		GPU:       sample.GPU,
		Network:   sample.Network,
		Warnings:  active,
		History:   s.history.Snapshot(),
		Timestamp: sample.Taken.Unix(),
	}
	s.mu.Lock()
	s.latest = stats
	s.mu.Unlock()
}

func (s *Sampler) flush() {
	if s.recorder == nil || len(s.buffer) == 0 {
		return
	}
	if err := s.recorder.RecordBatch(s.buffer); err != nil {
		logger.Warn().Err(err).Int("entries", len(s.buffer)).Msg("persisting sample batch")
	}
	s.buffer = s.buffer[:0]
}
