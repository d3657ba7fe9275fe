package model

import (
	"time"

	"infrascope/internal/model"
)

// RunningService is a process, container or listening port observed on a
// server at last report time. The set for a server always reflects the most
// recent agent report only.
type RunningService struct {
	ID           int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ServerID     int64             `gorm:"column:server_id;not null;index" json:"server_id"`
	ServiceType  model.ServiceType `gorm:"column:service_type;size:16;not null" json:"service_type"`
	Name         string            `gorm:"column:name;size:255;not null" json:"name"`
	Port         *int              `gorm:"column:port" json:"port"`
	Status       string            `gorm:"column:status;size:32;not null;default:running" json:"status"`
	CPUPercent   *float64          `gorm:"column:cpu_percent" json:"cpu_percent"`
	MemoryMB     *float64          `gorm:"column:memory_mb" json:"memory_mb"`
	DiscoveredAt time.Time         `gorm:"column:discovered_at;not null" json:"discovered_at"`
	LastSeenAt   time.Time         `gorm:"column:last_seen_at;not null" json:"last_seen_at"`
}

// TableName returns the table name for RunningService
func (RunningService) TableName() string {
	return "running_services"
}
