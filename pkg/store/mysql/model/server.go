package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"infrascope/internal/model"
)

// LabelMap stores free-form key/value labels as a JSON column.
type LabelMap map[string]string

// Value implements driver.Valuer
func (m LabelMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *LabelMap) Scan(value interface{}) error {
	if value == nil {
		*m = LabelMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported label column type %T", value)
	}
	if len(data) == 0 {
		*m = LabelMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Server is one inventory record per physical or virtual machine.
//
// ExternalID is the stable identifier assigned by the upstream source
// (cloud server id, robot server number, or agent-<ip> for auto-registered
// hosts). It is unique and never changes once assigned.
type Server struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ExternalID     string             `gorm:"column:external_id;size:64;not null;uniqueIndex" json:"external_id"`
	Name           string             `gorm:"column:name;size:255;not null" json:"name"`
	ServerType     string             `gorm:"column:server_type;size:64;not null" json:"server_type"`
	Source         model.ServerSource `gorm:"column:source;size:16;not null;index" json:"source"`
	Status         string             `gorm:"column:status;size:32;not null;default:running" json:"status"`
	Datacenter     string             `gorm:"column:datacenter;size:64;not null;default:''" json:"datacenter"`
	IPv4           string             `gorm:"column:ipv4;size:45;not null;default:'';index" json:"ipv4"`
	Cores          int                `gorm:"column:cores;not null;default:0" json:"cores"`
	MemoryGB       float64            `gorm:"column:memory_gb;not null;default:0" json:"memory_gb"`
	DiskGB         int                `gorm:"column:disk_gb;not null;default:0" json:"disk_gb"`
	MonthlyCostEUR float64            `gorm:"column:monthly_cost_eur;not null;default:0" json:"monthly_cost_eur"`
	Labels         LabelMap           `gorm:"column:labels;type:json" json:"labels"`
	ProjectName    *string            `gorm:"column:project_name;size:255" json:"project_name"`
	CreatedAt      time.Time          `gorm:"column:created_at;not null" json:"created_at"`
	LastSeenAt     time.Time          `gorm:"column:last_seen_at;not null" json:"last_seen_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName returns the table name for Server
func (Server) TableName() string {
	return "servers"
}
