package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"infrascope/internal/model"
)

// ServerIDList stores the server ids a recommendation concerns as JSON.
type ServerIDList []int64

// Value implements driver.Valuer
func (l ServerIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *ServerIDList) Scan(value interface{}) error {
	if value == nil {
		*l = ServerIDList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported server id column type %T", value)
	}
	if len(data) == 0 {
		*l = ServerIDList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// ConsolidationRecommendation is one proposed cost-saving action.
//
// Monthly savings are always current minus projected and never negative at
// creation. Accepted or dismissed rows survive regeneration cycles; only
// pending rows are replaced.
type ConsolidationRecommendation struct {
	ID                  int64                      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GroupName           string                     `gorm:"column:group_name;size:255;not null" json:"group_name"`
	ServerIDs           ServerIDList               `gorm:"column:server_ids;type:json;not null" json:"server_ids"`
	TargetServerType    string                     `gorm:"column:target_server_type;size:64;not null" json:"target_server_type"`
	CurrentTotalCostEUR float64                    `gorm:"column:current_total_cost_eur;not null" json:"current_total_cost_eur"`
	ProjectedCostEUR    float64                    `gorm:"column:projected_cost_eur;not null" json:"projected_cost_eur"`
	MonthlySavingsEUR   float64                    `gorm:"column:monthly_savings_eur;not null" json:"monthly_savings_eur"`
	Rationale           string                     `gorm:"column:rationale;type:text;not null" json:"rationale"`
	Confidence          model.Confidence           `gorm:"column:confidence;size:16;not null;default:medium" json:"confidence"`
	Status              model.RecommendationStatus `gorm:"column:status;size:16;not null;default:pending;index" json:"status"`
	CreatedAt           time.Time                  `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName returns the table name for ConsolidationRecommendation
func (ConsolidationRecommendation) TableName() string {
	return "consolidation_recommendations"
}
