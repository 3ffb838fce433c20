package server

// Database layer: GORM with SQLite behind the Store used by the sampler
// (batched metric logging, baseline) and the API handlers (event queries).

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kypin00-web/KAM-Sentinel/internal/logger"
	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
	"github.com/kypin00-web/KAM-Sentinel/internal/models"
	"github.com/kypin00-web/KAM-Sentinel/internal/sampler"
	"github.com/kypin00-web/KAM-Sentinel/internal/sysinfo"
)

// Store wraps the database handle with the persistence operations the rest
// of the process needs. It implements sampler.Recorder.
type Store struct {
	db *gorm.DB

	system          *sysinfo.Info
	metricRetention int
	eventRetention  int
}

// OpenStore opens (or creates) the SQLite database and runs AutoMigrate.
func OpenStore(path string, system *sysinfo.Info, metricRetention, eventRetention int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&models.MetricLog{}, &models.WarningEvent{}, &models.Baseline{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	logger.Info().Str("path", path).Msg("database opened")
	return &Store{
		db:              db,
		system:          system,
		metricRetention: metricRetention,
		eventRetention:  eventRetention,
	}, nil
}

// RecordBatch persists a batch of sampled entries and their fired warnings
// in one transaction, then prunes both tables to their retention bounds.
func (s *Store) RecordBatch(entries []sampler.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]models.MetricLog, 0, len(entries))
	var events []models.WarningEvent
	for _, e := range entries {
		rows = append(rows, models.MetricLog{
			CPUUsage:     e.Sample.CPU.Usage,
			CPUTemp:      e.Sample.CPU.Temp,
			CPUVoltage:   e.Sample.CPU.Voltage,
			GPUUsage:     e.Sample.GPU.Usage,
			GPUTemp:      e.Sample.GPU.Temp,
			RAMUsage:     e.Sample.RAM.UsagePercent,
			NetDownKBps:  e.Sample.Network.DownloadKBps,
			NetUpKBps:    e.Sample.Network.UploadKBps,
			WarningCount: len(e.Warnings),
			SampledAt:    e.Sample.Taken,
		})
		for _, w := range e.Warnings {
			events = append(events, models.WarningEvent{
				WarningID: w.ID,
				Level:     w.Level,
				Component: w.Component,
				Message:   w.Message,
				Value:     w.Value,
				Threshold: w.Threshold,
				FiredAt:   e.Sample.Taken,
			})
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing sample batch: %w", err)
	}

	s.prune()
	return nil
}

// prune deletes rows beyond the newest-N retention bounds. Best-effort:
// failures are logged, never fatal to the poll loop.
func (s *Store) prune() {
	if s.metricRetention > 0 {
		if err := deleteBeyond(s.db, &models.MetricLog{}, s.metricRetention); err != nil {
			logger.Warn().Err(err).Msg("pruning metric log")
		}
	}
	if s.eventRetention > 0 {
		if err := deleteBeyond(s.db, &models.WarningEvent{}, s.eventRetention); err != nil {
			logger.Warn().Err(err).Msg("pruning warning events")
		}
	}
}

func deleteBeyond(db *gorm.DB, model any, keep int) error {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		return err
	}
	if count <= int64(keep) {
		return nil
	}
	// Delete everything older than the keep-th newest row.
	var cutoff struct{ ID uint }
	if err := db.Model(model).Order("id desc").Offset(keep - 1).Limit(1).
		Select("id").Scan(&cutoff).Error; err != nil {
		return err
	}
	return db.Unscoped().Where("id < ?", cutoff.ID).Delete(model).Error
}

// SaveBaselineOnce persists the first-run baseline snapshot. Subsequent
// calls (and restarts) are no-ops: the baseline captures the machine as it
// was when monitoring first began and is never overwritten.
func (s *Store) SaveBaselineOnce(sample metrics.Sample) error {
	var count int64
	if err := s.db.Model(&models.Baseline{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	sysBlob, err := json.Marshal(s.system)
	if err != nil {
		return err
	}
	sampleBlob, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	b := models.Baseline{
		SystemInfo:     string(sysBlob),
		InitialMetrics: string(sampleBlob),
		SavedAt:        time.Now(),
	}
	if err := s.db.Create(&b).Error; err != nil {
		return err
	}
	logger.Info().Msg("baseline snapshot saved")
	return nil
}

// GetBaseline returns the stored baseline, or gorm.ErrRecordNotFound.
func (s *Store) GetBaseline() (*models.Baseline, error) {
	var b models.Baseline
	if err := s.db.First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// RecentEvents returns the newest warning events, newest first.
func (s *Store) RecentEvents(limit int) ([]models.WarningEvent, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var events []models.WarningEvent
	err := s.db.Order("fired_at desc").Limit(limit).Find(&events).Error
	return events, err
}
