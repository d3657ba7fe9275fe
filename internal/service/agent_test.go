package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrascope/internal/model"
	storemodel "infrascope/pkg/store/mysql/model"
)

func newAgentFixture() (*AgentService, *fakeServerRepo, *fakeSnapshotRepo, *fakeServiceRepo) {
	servers := newFakeServerRepo()
	snapshots := newFakeSnapshotRepo()
	services := newFakeServiceRepo()
	agent := NewAgentService(servers, snapshots, services, fakeTxRunner{}, "test-secret")
	return agent, servers, snapshots, services
}

func validReport() *AgentReport {
	port := 5432
	cpu := 12.5
	return &AgentReport{
		Hostname:      "db-1",
		ServerIP:      "88.10.20.30",
		CPUPercent:    42.0,
		MemoryPercent: 61.5,
		DiskPercent:   70.2,
		Services: []AgentServiceEntry{
			{Name: "postgresql", ServiceType: "systemd", Port: &port, CPUPercent: &cpu},
		},
		Secret: "test-secret",
	}
}

func TestProcessReport_InvalidSecretNoMutation(t *testing.T) {
	ctx := context.Background()
	agent, servers, snapshots, _ := newAgentFixture()

	report := validReport()
	report.Secret = "wrong"

	err := agent.ProcessReport(ctx, report)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	count, _ := servers.Count(ctx)
	assert.Zero(t, count)
	last, _ := snapshots.LatestTimestamp(ctx)
	assert.Nil(t, last)
}

func TestProcessReport_AutoRegistersServer(t *testing.T) {
	ctx := context.Background()
	agent, servers, snapshots, services := newAgentFixture()

	require.NoError(t, agent.ProcessReport(ctx, validReport()))

	srv, err := servers.GetByIP(ctx, "88.10.20.30")
	require.NoError(t, err)
	require.NotNil(t, srv)
	assert.Equal(t, "agent-88.10.20.30", srv.ExternalID)
	assert.Equal(t, "db-1", srv.Name)
	assert.Equal(t, model.SourceDedicated, srv.Source)
	assert.Equal(t, model.ServerStatusRunning, srv.Status)

	latest, err := snapshots.Latest(ctx, srv.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 42.0, latest.CPUPercent)
	assert.Equal(t, 61.5, latest.MemoryPercent)

	svcList, err := services.ListByServer(ctx, srv.ID)
	require.NoError(t, err)
	require.Len(t, svcList, 1)
	assert.Equal(t, "postgresql", svcList[0].Name)
	assert.Equal(t, model.ServiceSystemd, svcList[0].ServiceType)
}

func TestProcessReport_UpdatesKnownServerAndReplacesServices(t *testing.T) {
	ctx := context.Background()
	agent, servers, snapshots, services := newAgentFixture()

	existing := &storemodel.Server{
		ExternalID: "321",
		Name:       "old-name",
		Source:     model.SourceDedicated,
		Status:     model.ServerStatusRunning,
		IPv4:       "88.10.20.30",
		LastSeenAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, servers.Create(ctx, existing))
	require.NoError(t, services.ReplaceForServer(ctx, existing.ID, []*storemodel.RunningService{
		{ServerID: existing.ID, Name: "stale-svc", ServiceType: model.ServiceDocker},
	}))

	require.NoError(t, agent.ProcessReport(ctx, validReport()))

	srv, err := servers.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "db-1", srv.Name, "hostname from the report wins")
	assert.Equal(t, "321", srv.ExternalID, "external id must not change")

	count, _ := servers.Count(ctx)
	assert.Equal(t, int64(1), count)

	svcList, err := services.ListByServer(ctx, existing.ID)
	require.NoError(t, err)
	require.Len(t, svcList, 1)
	assert.Equal(t, "postgresql", svcList[0].Name, "old service set is replaced wholesale")

	series, err := snapshots.ListSince(ctx, existing.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestProcessReport_UnknownServiceTypeDefaultsToDocker(t *testing.T) {
	ctx := context.Background()
	agent, servers, _, services := newAgentFixture()

	report := validReport()
	report.Services = []AgentServiceEntry{{Name: "mystery", ServiceType: "weird"}}
	require.NoError(t, agent.ProcessReport(ctx, report))

	srv, err := servers.GetByIP(ctx, report.ServerIP)
	require.NoError(t, err)
	svcList, err := services.ListByServer(ctx, srv.ID)
	require.NoError(t, err)
	require.Len(t, svcList, 1)
	assert.Equal(t, model.ServiceDocker, svcList[0].ServiceType)
	assert.Equal(t, model.ServerStatusRunning, svcList[0].Status)
}
