package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"infrascope/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// ServerRepository handles server inventory persistence in MySQL
type ServerRepository struct {
	ds *Datastore
}

// NewServerRepository creates a new server repository
func NewServerRepository(ds *Datastore) *ServerRepository {
	return &ServerRepository{ds: ds}
}

// Create inserts a new server row
func (r *ServerRepository) Create(ctx context.Context, server *model.Server) error {
	return r.ds.DB(ctx).Create(server).Error
}

// Update saves all fields of an existing server row
func (r *ServerRepository) Update(ctx context.Context, server *model.Server) error {
	return r.ds.DB(ctx).Save(server).Error
}

// GetByID retrieves a server by primary key.
// Returns (nil, nil) when no row exists.
func (r *ServerRepository) GetByID(ctx context.Context, id int64) (*model.Server, error) {
	var server model.Server
	err := r.ds.DB(ctx).Where("id = ?", id).First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server %d: %w", id, err)
	}
	return &server, nil
}

// GetByExternalID retrieves a server by its stable external identifier.
// Returns (nil, nil) when no row exists.
func (r *ServerRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Server, error) {
	var server model.Server
	err := r.ds.DB(ctx).Where("external_id = ?", externalID).First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server by external id %s: %w", externalID, err)
	}
	return &server, nil
}

// GetByIP retrieves a server by its primary IPv4 address.
// Returns (nil, nil) when no row exists.
func (r *ServerRepository) GetByIP(ctx context.Context, ipv4 string) (*model.Server, error) {
	var server model.Server
	err := r.ds.DB(ctx).Where("ipv4 = ?", ipv4).First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server by ip %s: %w", ipv4, err)
	}
	return &server, nil
}

// ServerFilter narrows List results
type ServerFilter struct {
	Source string
	Status string
	Search string // substring match on name
}

// List retrieves servers matching the filter
func (r *ServerRepository) List(ctx context.Context, filter ServerFilter) ([]*model.Server, error) {
	var servers []*model.Server

	query := r.ds.DB(ctx).Model(&model.Server{})
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+strings.ReplaceAll(filter.Search, "%", "\\%")+"%")
	}

	if err := query.Find(&servers).Error; err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// ListAll retrieves the full inventory
func (r *ServerRepository) ListAll(ctx context.Context) ([]*model.Server, error) {
	return r.List(ctx, ServerFilter{})
}

// Count returns the number of inventory rows
func (r *ServerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.ds.DB(ctx).Model(&model.Server{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return count, nil
}

// CostBreakdownRow is one aggregation bucket of monthly cost
type CostBreakdownRow struct {
	Category string
	CostEUR  float64
	Count    int
}

// CostBySource sums monthly cost per source
func (r *ServerRepository) CostBySource(ctx context.Context) ([]*CostBreakdownRow, error) {
	return r.costGroupedBy(ctx, "source")
}

// CostByDatacenter sums monthly cost per datacenter
func (r *ServerRepository) CostByDatacenter(ctx context.Context) ([]*CostBreakdownRow, error) {
	return r.costGroupedBy(ctx, "datacenter")
}

// CostByProject sums monthly cost per project
func (r *ServerRepository) CostByProject(ctx context.Context) ([]*CostBreakdownRow, error) {
	return r.costGroupedBy(ctx, "project_name")
}

func (r *ServerRepository) costGroupedBy(ctx context.Context, column string) ([]*CostBreakdownRow, error) {
	var rows []*CostBreakdownRow
	err := r.ds.DB(ctx).
		Model(&model.Server{}).
		Select(fmt.Sprintf("COALESCE(%s, '') as category, COALESCE(SUM(monthly_cost_eur), 0) as cost_eur, COUNT(*) as count", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cost by %s: %w", column, err)
	}
	return rows, nil
}
