package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrascope/internal/model"
	"infrascope/pkg/hetzner"
)

type fakeCloudAPI struct {
	servers     []*hetzner.CloudServer
	serverTypes []*hetzner.ServerType
	metrics     map[string]*hetzner.MetricsResponse
	listErr     error
}

func (f *fakeCloudAPI) ListServers(_ context.Context) ([]*hetzner.CloudServer, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.servers, nil
}

func (f *fakeCloudAPI) ListServerTypes(_ context.Context) ([]*hetzner.ServerType, error) {
	return f.serverTypes, nil
}

func (f *fakeCloudAPI) GetServerMetrics(_ context.Context, _ int64, metricType string, _, _ time.Time) (*hetzner.MetricsResponse, error) {
	resp, ok := f.metrics[metricType]
	if !ok {
		return nil, errors.New("no metrics")
	}
	return resp, nil
}

type fakeRobotAPI struct {
	servers []*hetzner.RobotServer
	listErr error
}

func (f *fakeRobotAPI) ListServers(_ context.Context) ([]*hetzner.RobotServer, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.servers, nil
}

func metricsWith(series map[string][]float64) *hetzner.MetricsResponse {
	ts := make(map[string]hetzner.TimeSeries, len(series))
	for name, values := range series {
		points := make([][]interface{}, 0, len(values))
		for i, v := range values {
			points = append(points, []interface{}{float64(1754006400 + i*60), v})
		}
		ts[name] = hetzner.TimeSeries{Values: points}
	}
	return &hetzner.MetricsResponse{Metrics: hetzner.Metrics{TimeSeries: ts}}
}

func demoCloudServer() *hetzner.CloudServer {
	return &hetzner.CloudServer{
		ID:     101,
		Name:   "web-1",
		Status: "running",
		ServerType: hetzner.ServerType{
			Name: "cx31", Cores: 4, Memory: 8, Disk: 80,
			Prices: []hetzner.Price{{Location: "fsn1", PriceMonthly: hetzner.PriceAmount{Gross: "10.49"}}},
		},
		Datacenter: hetzner.Datacenter{Name: "fsn1-dc14"},
		PublicNet:  hetzner.PublicNet{IPv4: hetzner.IPAddress{IP: "1.2.3.4"}},
		Labels:     map[string]string{"env": "prod"},
	}
}

func TestCollectCloud_UpsertAndCPUNormalization(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()
	snapshots := newFakeSnapshotRepo()

	cloud := &fakeCloudAPI{
		servers: []*hetzner.CloudServer{demoCloudServer()},
		metrics: map[string]*hetzner.MetricsResponse{
			// Summed across 4 cores: 350 / 4 = 87.5
			"cpu": metricsWith(map[string][]float64{"cpu": {350, 350}}),
		},
	}

	collector := NewCollectorService(servers, snapshots, newFakeServiceRepo(), cloud, nil)
	require.NoError(t, collector.RunCollection(ctx))

	srv, err := servers.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, srv)
	assert.Equal(t, "web-1", srv.Name)
	assert.Equal(t, model.SourceCloud, srv.Source)
	assert.Equal(t, 4, srv.Cores)
	assert.InDelta(t, 10.49, srv.MonthlyCostEUR, 0.001)

	latest, err := snapshots.Latest(ctx, srv.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 87.5, latest.CPUPercent, 0.001)

	// Second run must update in place, not duplicate
	cloud.servers[0].Name = "web-1-renamed"
	require.NoError(t, collector.RunCollection(ctx))

	count, err := servers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	srv, err = servers.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "web-1-renamed", srv.Name)
}

func TestCollectCloud_NoSamplesNoSnapshot(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()
	snapshots := newFakeSnapshotRepo()

	cloud := &fakeCloudAPI{
		servers: []*hetzner.CloudServer{demoCloudServer()},
		metrics: map[string]*hetzner.MetricsResponse{
			"cpu": metricsWith(map[string][]float64{"cpu": {}}),
		},
	}

	collector := NewCollectorService(servers, snapshots, newFakeServiceRepo(), cloud, nil)
	require.NoError(t, collector.RunCollection(ctx))

	srv, err := servers.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, srv)

	latest, err := snapshots.Latest(ctx, srv.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCollectCloud_DiskAndNetworkSeries(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()
	snapshots := newFakeSnapshotRepo()

	cloud := &fakeCloudAPI{
		servers: []*hetzner.CloudServer{demoCloudServer()},
		metrics: map[string]*hetzner.MetricsResponse{
			"cpu": metricsWith(map[string][]float64{"cpu": {40}}),
			"disk": metricsWith(map[string][]float64{
				"disk.0.iops.read":       {55},
				"disk.0.bandwidth.read":  {999999},
				"disk.0.bandwidth.write": {999999},
			}),
			"network": metricsWith(map[string][]float64{
				// 1e6 bytes/s is 8 Mbps
				"network.0.in":  {1e6},
				"network.0.out": {5e5},
			}),
		},
	}

	collector := NewCollectorService(servers, snapshots, newFakeServiceRepo(), cloud, nil)
	require.NoError(t, collector.RunCollection(ctx))

	srv, err := servers.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	latest, err := snapshots.Latest(ctx, srv.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)

	assert.InDelta(t, 40.0, latest.CPUPercent, 0.001)
	assert.InDelta(t, 55.0, latest.DiskPercent, 0.001, "bandwidth series must be excluded")
	assert.InDelta(t, 8.0, latest.NetworkInMbps, 0.001)
	assert.InDelta(t, 4.0, latest.NetworkOutMbps, 0.001)
}

func TestCollectDedicated_Upsert(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()

	robot := &fakeRobotAPI{servers: []*hetzner.RobotServer{{
		ServerIP:     "88.1.2.3",
		ServerNumber: 321,
		ServerName:   "storage-1",
		Product:      "AX41-NVMe",
		DC:           "FSN1-DC14",
		Status:       "ready",
	}}}

	cloud := &fakeCloudAPI{listErr: errors.New("cloud down")}
	collector := NewCollectorService(servers, newFakeSnapshotRepo(), newFakeServiceRepo(), cloud, robot)

	// Cloud failure must not block dedicated collection
	require.NoError(t, collector.RunCollection(ctx))

	srv, err := servers.GetByExternalID(ctx, "321")
	require.NoError(t, err)
	require.NotNil(t, srv)
	assert.Equal(t, "storage-1", srv.Name)
	assert.Equal(t, model.SourceDedicated, srv.Source)
	assert.Equal(t, "AX41-NVMe", srv.ServerType)
	assert.Equal(t, "88.1.2.3", srv.IPv4)
}

func TestCollectDedicated_SkippedWithoutClient(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()

	cloud := &fakeCloudAPI{}
	collector := NewCollectorService(servers, newFakeSnapshotRepo(), newFakeServiceRepo(), cloud, nil)
	require.NoError(t, collector.RunCollection(ctx))

	count, err := servers.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()
	snapshots := newFakeSnapshotRepo()
	services := newFakeServiceRepo()

	collector := NewCollectorService(servers, snapshots, services, &fakeCloudAPI{}, nil)
	require.NoError(t, collector.SeedDemoData(ctx))

	count, err := servers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoServers)), count)

	srv, err := servers.GetByExternalID(ctx, "demo-1")
	require.NoError(t, err)
	require.NotNil(t, srv)

	series, err := snapshots.ListSince(ctx, srv.ID, time.Now().UTC().Add(-31*24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, 30*24)

	svcList, err := services.ListByServer(ctx, srv.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, svcList)

	// Seeding twice must not duplicate the inventory
	require.NoError(t, collector.SeedDemoData(ctx))
	count, err = servers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoServers)), count)
}
