package model

import "time"

// MetricSnapshot is one point-in-time utilization sample for a server.
// Snapshots are append-only: they are never updated after insert and are
// removed only when the owning server row is deleted.
type MetricSnapshot struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ServerID       int64     `gorm:"column:server_id;not null;index:idx_snapshot_server_ts" json:"server_id"`
	Timestamp      time.Time `gorm:"column:timestamp;not null;index:idx_snapshot_server_ts" json:"timestamp"`
	CPUPercent     float64   `gorm:"column:cpu_percent;not null;default:0" json:"cpu_percent"`
	MemoryPercent  float64   `gorm:"column:memory_percent;not null;default:0" json:"memory_percent"`
	DiskPercent    float64   `gorm:"column:disk_percent;not null;default:0" json:"disk_percent"`
	NetworkInMbps  float64   `gorm:"column:network_in_mbps;not null;default:0" json:"network_in_mbps"`
	NetworkOutMbps float64   `gorm:"column:network_out_mbps;not null;default:0" json:"network_out_mbps"`
	LoadAvg1m      *float64  `gorm:"column:load_avg_1m" json:"load_avg_1m"`
}

// TableName returns the table name for MetricSnapshot
func (MetricSnapshot) TableName() string {
	return "metric_snapshots"
}
