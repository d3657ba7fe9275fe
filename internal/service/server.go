package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/store/mysql"
	storemodel "infrascope/pkg/store/mysql/model"
)

// ErrServerNotFound is returned when a queried server id does not exist
var ErrServerNotFound = errors.New("server not found")

// MetricSummary combines the latest snapshot with 30-day aggregates
type MetricSummary struct {
	CPUPercent     float64               `json:"cpu_percent"`
	MemoryPercent  float64               `json:"memory_percent"`
	DiskPercent    float64               `json:"disk_percent"`
	NetworkInMbps  float64               `json:"network_in_mbps"`
	NetworkOutMbps float64               `json:"network_out_mbps"`
	Tier           model.UtilizationTier `json:"utilization_tier"`
	AvgCPU30d      float64               `json:"avg_cpu_30d"`
	AvgMemory30d   float64               `json:"avg_memory_30d"`
	PeakCPU30d     float64               `json:"peak_cpu_30d"`
	PeakMemory30d  float64               `json:"peak_memory_30d"`
}

// ServerItem is one inventory entry with its metric summary. Metrics is nil
// for servers that have never reported a snapshot.
type ServerItem struct {
	*storemodel.Server
	Metrics *MetricSummary `json:"metrics"`
}

// ListFilter narrows and orders a server listing
type ListFilter struct {
	Source string
	Status string
	Search string
	SortBy string
}

// HealthStatus summarizes store freshness for the health endpoint
type HealthStatus struct {
	ServerCount    int64
	LastCollection *time.Time
}

// ServerService answers inventory queries
type ServerService struct {
	servers   serverRepository
	snapshots snapshotRepository
	services  serviceRepository
}

// NewServerService creates a server query service
func NewServerService(servers serverRepository, snapshots snapshotRepository, services serviceRepository) *ServerService {
	return &ServerService{
		servers:   servers,
		snapshots: snapshots,
		services:  services,
	}
}

// ListServers returns the filtered inventory with metric summaries
func (s *ServerService) ListServers(ctx context.Context, filter ListFilter) ([]*ServerItem, error) {
	servers, err := s.servers.List(ctx, mysql.ServerFilter{
		Source: filter.Source,
		Status: filter.Status,
		Search: filter.Search,
	})
	if err != nil {
		return nil, err
	}

	items := make([]*ServerItem, 0, len(servers))
	for _, srv := range servers {
		summary, err := s.buildMetricSummary(ctx, srv.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, &ServerItem{Server: srv, Metrics: summary})
	}

	sortServerItems(items, filter.SortBy)
	return items, nil
}

// GetServer returns one server with its metric summary
func (s *ServerService) GetServer(ctx context.Context, id int64) (*ServerItem, error) {
	srv, err := s.servers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if srv == nil {
		return nil, ErrServerNotFound
	}

	summary, err := s.buildMetricSummary(ctx, srv.ID)
	if err != nil {
		return nil, err
	}
	return &ServerItem{Server: srv, Metrics: summary}, nil
}

// GetServerMetrics returns the snapshot series for a server over a period
// of "7d", "30d" or "90d" (default 30d), oldest first.
func (s *ServerService) GetServerMetrics(ctx context.Context, id int64, period string) ([]*storemodel.MetricSnapshot, error) {
	srv, err := s.servers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if srv == nil {
		return nil, ErrServerNotFound
	}

	return s.snapshots.ListSince(ctx, id, periodCutoff(period))
}

// GetServerServices returns the services last reported on a server
func (s *ServerService) GetServerServices(ctx context.Context, id int64) ([]*storemodel.RunningService, error) {
	srv, err := s.servers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if srv == nil {
		return nil, ErrServerNotFound
	}

	return s.services.ListByServer(ctx, id)
}

// Health reports inventory size and the most recent snapshot time
func (s *ServerService) Health(ctx context.Context) (*HealthStatus, error) {
	count, err := s.servers.Count(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.snapshots.LatestTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	return &HealthStatus{ServerCount: count, LastCollection: last}, nil
}

func (s *ServerService) buildMetricSummary(ctx context.Context, serverID int64) (*MetricSummary, error) {
	latest, err := s.snapshots.Latest(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot for server %d: %w", serverID, err)
	}
	if latest == nil {
		return nil, nil
	}

	cutoff := time.Now().UTC().Add(-analysisWindow)
	agg, err := s.snapshots.Aggregates(ctx, serverID, cutoff)
	if err != nil {
		return nil, err
	}

	return &MetricSummary{
		CPUPercent:     latest.CPUPercent,
		MemoryPercent:  latest.MemoryPercent,
		DiskPercent:    latest.DiskPercent,
		NetworkInMbps:  latest.NetworkInMbps,
		NetworkOutMbps: latest.NetworkOutMbps,
		Tier:           ClassifyTier(agg.AvgCPU),
		AvgCPU30d:      round1(agg.AvgCPU),
		AvgMemory30d:   round1(agg.AvgMemory),
		PeakCPU30d:     round1(agg.PeakCPU),
		PeakMemory30d:  round1(agg.PeakMemory),
	}, nil
}

func sortServerItems(items []*ServerItem, sortBy string) {
	switch sortBy {
	case "cost":
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].MonthlyCostEUR > items[j].MonthlyCostEUR
		})
	case "cpu":
		sort.SliceStable(items, func(i, j int) bool {
			return itemCPU(items[i]) > itemCPU(items[j])
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
	}
}

func itemCPU(item *ServerItem) float64 {
	if item.Metrics == nil {
		return 0
	}
	return item.Metrics.CPUPercent
}

func periodCutoff(period string) time.Time {
	days := 30
	switch period {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}
	return time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
