package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/store/mysql"
)

// CostBreakdown is one aggregation bucket in a cost overview
type CostBreakdown struct {
	Category string  `json:"category"`
	CostEUR  float64 `json:"cost_eur"`
	Count    int     `json:"count"`
}

// CostOverview aggregates current monthly spend across the inventory
type CostOverview struct {
	TotalMonthlyEUR     float64         `json:"total_monthly_eur"`
	CloudCostEUR        float64         `json:"cloud_cost_eur"`
	DedicatedCostEUR    float64         `json:"dedicated_cost_eur"`
	PotentialSavingsEUR float64         `json:"potential_savings_eur"`
	ServerCount         int64           `json:"server_count"`
	ByDatacenter        []CostBreakdown `json:"by_datacenter"`
	ByProject           []CostBreakdown `json:"by_project"`
}

// CostHistoryPoint is one month of projected spend
type CostHistoryPoint struct {
	Month        string  `json:"month"`
	TotalEUR     float64 `json:"total_eur"`
	CloudEUR     float64 `json:"cloud_eur"`
	DedicatedEUR float64 `json:"dedicated_eur"`
}

// CostService answers cost overview and history queries
type CostService struct {
	servers         serverRepository
	recommendations recommendationRepository
}

// NewCostService creates a cost service
func NewCostService(servers serverRepository, recommendations recommendationRepository) *CostService {
	return &CostService{
		servers:         servers,
		recommendations: recommendations,
	}
}

// Overview aggregates all server costs with breakdowns by source,
// datacenter and project, plus pending recommendation savings.
func (s *CostService) Overview(ctx context.Context) (*CostOverview, error) {
	bySource, err := s.servers.CostBySource(ctx)
	if err != nil {
		return nil, err
	}

	var cloudCost, dedicatedCost float64
	for _, row := range bySource {
		switch model.ServerSource(row.Category) {
		case model.SourceCloud:
			cloudCost = row.CostEUR
		case model.SourceDedicated:
			dedicatedCost = row.CostEUR
		}
	}

	count, err := s.servers.Count(ctx)
	if err != nil {
		return nil, err
	}

	byDatacenter, err := s.costBreakdown(ctx, s.servers.CostByDatacenter, "unknown")
	if err != nil {
		return nil, err
	}
	byProject, err := s.costBreakdown(ctx, s.servers.CostByProject, "unassigned")
	if err != nil {
		return nil, err
	}

	savings, err := s.recommendations.SumPendingSavings(ctx)
	if err != nil {
		return nil, err
	}

	return &CostOverview{
		TotalMonthlyEUR:     round2(cloudCost + dedicatedCost),
		CloudCostEUR:        round2(cloudCost),
		DedicatedCostEUR:    round2(dedicatedCost),
		PotentialSavingsEUR: round2(savings),
		ServerCount:         count,
		ByDatacenter:        byDatacenter,
		ByProject:           byProject,
	}, nil
}

// History projects monthly spend for the last 12 months from the current
// inventory. Servers only contribute to months after their creation date,
// so the curve reflects inventory growth rather than real billing data.
func (s *CostService) History(ctx context.Context) ([]*CostHistoryPoint, error) {
	servers, err := s.servers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	now := time.Now().UTC()
	history := make([]*CostHistoryPoint, 0, 12)

	for monthsAgo := 11; monthsAgo >= 0; monthsAgo-- {
		year, month := now.Year(), int(now.Month())-monthsAgo
		for month <= 0 {
			month += 12
			year--
		}

		monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

		var cloudEUR, dedicatedEUR float64
		for _, srv := range servers {
			if srv.CreatedAt.After(monthStart) {
				continue
			}
			if srv.Source == model.SourceCloud {
				cloudEUR += srv.MonthlyCostEUR
			} else {
				dedicatedEUR += srv.MonthlyCostEUR
			}
		}

		history = append(history, &CostHistoryPoint{
			Month:        fmt.Sprintf("%d-%02d", year, month),
			TotalEUR:     round2(cloudEUR + dedicatedEUR),
			CloudEUR:     round2(cloudEUR),
			DedicatedEUR: round2(dedicatedEUR),
		})
	}

	return history, nil
}

func (s *CostService) costBreakdown(ctx context.Context, fetch func(context.Context) ([]*mysql.CostBreakdownRow, error), emptyLabel string) ([]CostBreakdown, error) {
	rows, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	breakdown := make([]CostBreakdown, 0, len(rows))
	for _, row := range rows {
		category := row.Category
		if category == "" {
			category = emptyLabel
		}
		breakdown = append(breakdown, CostBreakdown{
			Category: category,
			CostEUR:  round2(row.CostEUR),
			Count:    row.Count,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].CostEUR > breakdown[j].CostEUR
	})
	return breakdown, nil
}
