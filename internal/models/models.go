// Package models defines GORM data models for KAM Sentinel.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MetricLog stores one sampled snapshot. Rows are written in batches by the
// sampler and pruned to a configured retention, replacing file-based session
// logs with their rotation dance.
type MetricLog struct {
	gorm.Model

	CPUUsage   float64  `json:"cpu_usage"` // percent 0-100
	CPUTemp    *float64 `json:"cpu_temp"`  // °C, nil when no sensor
	CPUVoltage *float64 `json:"cpu_voltage"`
	GPUUsage   *float64 `json:"gpu_usage"`
	GPUTemp    *float64 `json:"gpu_temp"`
	RAMUsage   float64  `json:"ram_usage"`

	NetDownKBps float64 `json:"net_down_kbps"`
	NetUpKBps   float64 `json:"net_up_kbps"`

	WarningCount int       `json:"warning_count"`
	SampledAt    time.Time `gorm:"index" json:"sampled_at"`
}

// WarningEvent records one fired warning for the events API.
type WarningEvent struct {
	gorm.Model

	WarningID string  `gorm:"index" json:"warning_id"` // e.g. cpu_temp_crit
	Level     string  `gorm:"index" json:"level"`      // warning | critical
	Component string  `json:"component"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`

	FiredAt time.Time `gorm:"index" json:"fired_at"`
}

// Baseline is the write-once first-run snapshot: the system inventory plus
// the initial metric readings, kept as the reference point for "how did this
// machine look when monitoring started".
type Baseline struct {
	gorm.Model

	SystemInfo     string    `json:"system_info"`     // JSON blob of sysinfo.Info
	InitialMetrics string    `json:"initial_metrics"` // JSON blob of the first sample
	SavedAt        time.Time `json:"saved_at"`
}
