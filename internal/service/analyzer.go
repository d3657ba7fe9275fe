package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/logger"
)

// analysisWindow is how far back utilization statistics reach
const analysisWindow = 30 * 24 * time.Hour

// ServerStats holds aggregate utilization statistics for one server
type ServerStats struct {
	ServerID      int64                 `json:"server_id"`
	AvgCPU30d     float64               `json:"avg_cpu_30d"`
	AvgMemory30d  float64               `json:"avg_memory_30d"`
	PeakCPU30d    float64               `json:"peak_cpu_30d"`
	PeakMemory30d float64               `json:"peak_memory_30d"`
	Tier          model.UtilizationTier `json:"utilization_tier"`
}

// ClassifyTier buckets a 30-day average CPU into a utilization tier
func ClassifyTier(avgCPU float64) model.UtilizationTier {
	switch {
	case avgCPU < 5:
		return model.TierIdle
	case avgCPU < 20:
		return model.TierLow
	case avgCPU < 60:
		return model.TierModerate
	case avgCPU < 85:
		return model.TierHigh
	default:
		return model.TierCritical
	}
}

// AnalyzerService computes utilization statistics from stored snapshots
type AnalyzerService struct {
	servers   serverRepository
	snapshots snapshotRepository
}

// NewAnalyzerService creates an analyzer service
func NewAnalyzerService(servers serverRepository, snapshots snapshotRepository) *AnalyzerService {
	return &AnalyzerService{
		servers:   servers,
		snapshots: snapshots,
	}
}

// AnalyzeServer computes 30-day statistics for one server. Returns nil when
// the server has no samples in the window.
func (s *AnalyzerService) AnalyzeServer(ctx context.Context, serverID int64) (*ServerStats, error) {
	cutoff := time.Now().UTC().Add(-analysisWindow)

	agg, err := s.snapshots.Aggregates(ctx, serverID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate snapshots for server %d: %w", serverID, err)
	}
	if agg.SampleCount == 0 {
		return nil, nil
	}

	avgCPU := round2(agg.AvgCPU)
	return &ServerStats{
		ServerID:      serverID,
		AvgCPU30d:     avgCPU,
		AvgMemory30d:  round2(agg.AvgMemory),
		PeakCPU30d:    round2(agg.PeakCPU),
		PeakMemory30d: round2(agg.PeakMemory),
		Tier:          ClassifyTier(avgCPU),
	}, nil
}

// AnalyzeAll computes statistics for every server in the inventory. Servers
// without samples in the window get zeroed stats with tier idle.
func (s *AnalyzerService) AnalyzeAll(ctx context.Context) ([]*ServerStats, error) {
	servers, err := s.servers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	stats := make([]*ServerStats, 0, len(servers))
	for _, srv := range servers {
		st, err := s.AnalyzeServer(ctx, srv.ID)
		if err != nil {
			return nil, err
		}
		if st == nil {
			st = &ServerStats{
				ServerID: srv.ID,
				Tier:     model.TierIdle,
			}
		}
		stats = append(stats, st)
	}

	logger.InfoCtx(ctx, "analyzed %d servers: %s", len(stats), tierSummary(stats))
	return stats, nil
}

func tierSummary(stats []*ServerStats) string {
	counts := make(map[model.UtilizationTier]int)
	for _, st := range stats {
		counts[st.Tier]++
	}
	parts := make([]string, 0, len(counts))
	for tier, count := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", tier, count))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
