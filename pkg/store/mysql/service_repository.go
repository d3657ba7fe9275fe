package mysql

import (
	"context"
	"fmt"

	"infrascope/pkg/store/mysql/model"
)

// ServiceRepository handles running service persistence in MySQL
type ServiceRepository struct {
	ds *Datastore
}

// NewServiceRepository creates a new running service repository
func NewServiceRepository(ds *Datastore) *ServiceRepository {
	return &ServiceRepository{ds: ds}
}

// ListByServer retrieves the current service set for a server, by name
func (r *ServiceRepository) ListByServer(ctx context.Context, serverID int64) ([]*model.RunningService, error) {
	var services []*model.RunningService
	err := r.ds.DB(ctx).
		Where("server_id = ?", serverID).
		Order("name ASC").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list services for server %d: %w", serverID, err)
	}
	return services, nil
}

// ReplaceForServer swaps the stored service set for a server with the given
// one. Callers run this inside a datastore transaction so the delete and the
// inserts commit together.
func (r *ServiceRepository) ReplaceForServer(ctx context.Context, serverID int64, services []*model.RunningService) error {
	if err := r.ds.DB(ctx).
		Where("server_id = ?", serverID).
		Delete(&model.RunningService{}).Error; err != nil {
		return fmt.Errorf("failed to clear services for server %d: %w", serverID, err)
	}
	for _, svc := range services {
		svc.ServerID = serverID
		if err := r.ds.DB(ctx).Create(svc).Error; err != nil {
			return fmt.Errorf("failed to insert service %s for server %d: %w", svc.Name, serverID, err)
		}
	}
	return nil
}
