package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"infrascope/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// SnapshotRepository handles metric snapshot persistence in MySQL.
// Snapshots are append-only; there is intentionally no update method.
type SnapshotRepository struct {
	ds *Datastore
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(ds *Datastore) *SnapshotRepository {
	return &SnapshotRepository{ds: ds}
}

// Insert appends one snapshot
func (r *SnapshotRepository) Insert(ctx context.Context, snapshot *model.MetricSnapshot) error {
	return r.ds.DB(ctx).Create(snapshot).Error
}

// InsertBatch appends many snapshots at once (demo seeding)
func (r *SnapshotRepository) InsertBatch(ctx context.Context, snapshots []*model.MetricSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.ds.DB(ctx).CreateInBatches(snapshots, 200).Error
}

// Latest retrieves the most recent snapshot for a server.
// Returns (nil, nil) when the server has no snapshots.
func (r *SnapshotRepository) Latest(ctx context.Context, serverID int64) (*model.MetricSnapshot, error) {
	var snapshot model.MetricSnapshot
	err := r.ds.DB(ctx).
		Where("server_id = ?", serverID).
		Order("timestamp DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot for server %d: %w", serverID, err)
	}
	return &snapshot, nil
}

// ListSince retrieves snapshots for a server newer than the cutoff,
// ordered by timestamp ascending
func (r *SnapshotRepository) ListSince(ctx context.Context, serverID int64, cutoff time.Time) ([]*model.MetricSnapshot, error) {
	var snapshots []*model.MetricSnapshot
	err := r.ds.DB(ctx).
		Where("server_id = ? AND timestamp >= ?", serverID, cutoff).
		Order("timestamp ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for server %d: %w", serverID, err)
	}
	return snapshots, nil
}

// UsageAggregates are rolling statistics over a snapshot window
type UsageAggregates struct {
	SampleCount int64
	AvgCPU      float64
	AvgMemory   float64
	PeakCPU     float64
	PeakMemory  float64
}

// Aggregates computes avg/max CPU and memory for a server since the cutoff
func (r *SnapshotRepository) Aggregates(ctx context.Context, serverID int64, cutoff time.Time) (*UsageAggregates, error) {
	var row struct {
		SampleCount int64
		AvgCPU      float64
		AvgMemory   float64
		PeakCPU     float64
		PeakMemory  float64
	}
	err := r.ds.DB(ctx).
		Model(&model.MetricSnapshot{}).
		Select("COUNT(*) as sample_count, " +
			"COALESCE(AVG(cpu_percent), 0) as avg_cpu, " +
			"COALESCE(AVG(memory_percent), 0) as avg_memory, " +
			"COALESCE(MAX(cpu_percent), 0) as peak_cpu, " +
			"COALESCE(MAX(memory_percent), 0) as peak_memory").
		Where("server_id = ? AND timestamp >= ?", serverID, cutoff).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate snapshots for server %d: %w", serverID, err)
	}
	return &UsageAggregates{
		SampleCount: row.SampleCount,
		AvgCPU:      row.AvgCPU,
		AvgMemory:   row.AvgMemory,
		PeakCPU:     row.PeakCPU,
		PeakMemory:  row.PeakMemory,
	}, nil
}

// LatestTimestamp returns the newest snapshot timestamp across all servers.
// Returns (nil, nil) when no snapshots exist.
func (r *SnapshotRepository) LatestTimestamp(ctx context.Context) (*time.Time, error) {
	var snapshot model.MetricSnapshot
	err := r.ds.DB(ctx).Order("timestamp DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot timestamp: %w", err)
	}
	return &snapshot.Timestamp, nil
}
