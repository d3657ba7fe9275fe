package mysql

import "infrascope/pkg/store/mysql/model"

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	Server         *ServerRepository
	Snapshot       *SnapshotRepository
	Service        *ServiceRepository
	Recommendation *RecommendationRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}

	return &Repository{
		ds:             ds,
		Server:         NewServerRepository(ds),
		Snapshot:       NewSnapshotRepository(ds),
		Service:        NewServiceRepository(ds),
		Recommendation: NewRecommendationRepository(ds),
	}, nil
}

// Migrate creates or updates the schema for all tables
func (r *Repository) Migrate() error {
	return r.ds.GetDB().AutoMigrate(
		&model.Server{},
		&model.MetricSnapshot{},
		&model.RunningService{},
		&model.ConsolidationRecommendation{},
	)
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
