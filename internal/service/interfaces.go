package service

import (
	"context"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/hetzner"
	"infrascope/pkg/store/mysql"
	storemodel "infrascope/pkg/store/mysql/model"
)

type serverRepository interface {
	Create(ctx context.Context, server *storemodel.Server) error
	Update(ctx context.Context, server *storemodel.Server) error
	GetByID(ctx context.Context, id int64) (*storemodel.Server, error)
	GetByExternalID(ctx context.Context, externalID string) (*storemodel.Server, error)
	GetByIP(ctx context.Context, ipv4 string) (*storemodel.Server, error)
	List(ctx context.Context, filter mysql.ServerFilter) ([]*storemodel.Server, error)
	ListAll(ctx context.Context) ([]*storemodel.Server, error)
	Count(ctx context.Context) (int64, error)
	CostBySource(ctx context.Context) ([]*mysql.CostBreakdownRow, error)
	CostByDatacenter(ctx context.Context) ([]*mysql.CostBreakdownRow, error)
	CostByProject(ctx context.Context) ([]*mysql.CostBreakdownRow, error)
}

type snapshotRepository interface {
	Insert(ctx context.Context, snapshot *storemodel.MetricSnapshot) error
	InsertBatch(ctx context.Context, snapshots []*storemodel.MetricSnapshot) error
	Latest(ctx context.Context, serverID int64) (*storemodel.MetricSnapshot, error)
	ListSince(ctx context.Context, serverID int64, cutoff time.Time) ([]*storemodel.MetricSnapshot, error)
	Aggregates(ctx context.Context, serverID int64, cutoff time.Time) (*mysql.UsageAggregates, error)
	LatestTimestamp(ctx context.Context) (*time.Time, error)
}

type serviceRepository interface {
	ListByServer(ctx context.Context, serverID int64) ([]*storemodel.RunningService, error)
	ReplaceForServer(ctx context.Context, serverID int64, services []*storemodel.RunningService) error
}

type recommendationRepository interface {
	Create(ctx context.Context, rec *storemodel.ConsolidationRecommendation) error
	GetByID(ctx context.Context, id int64) (*storemodel.ConsolidationRecommendation, error)
	List(ctx context.Context, status model.RecommendationStatus) ([]*storemodel.ConsolidationRecommendation, error)
	UpdateStatus(ctx context.Context, id int64, status model.RecommendationStatus) error
	DeletePending(ctx context.Context) error
	SumPendingSavings(ctx context.Context) (float64, error)
}

type txRunner interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type cloudAPI interface {
	ListServers(ctx context.Context) ([]*hetzner.CloudServer, error)
	ListServerTypes(ctx context.Context) ([]*hetzner.ServerType, error)
	GetServerMetrics(ctx context.Context, serverID int64, metricType string, start, end time.Time) (*hetzner.MetricsResponse, error)
}

type robotAPI interface {
	ListServers(ctx context.Context) ([]*hetzner.RobotServer, error)
}

// compile-time assertions

var (
	_ serverRepository         = (*mysql.ServerRepository)(nil)
	_ snapshotRepository       = (*mysql.SnapshotRepository)(nil)
	_ serviceRepository        = (*mysql.ServiceRepository)(nil)
	_ recommendationRepository = (*mysql.RecommendationRepository)(nil)
	_ txRunner                 = (*mysql.Datastore)(nil)
	_ cloudAPI                 = (*hetzner.CloudClient)(nil)
	_ robotAPI                 = (*hetzner.RobotClient)(nil)
)
