package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/logger"
	storemodel "infrascope/pkg/store/mysql/model"
)

// demoSeed keeps generated data reproducible across restarts
const demoSeed = 42

type demoServerSpec struct {
	name    string
	srvType string
	dc      string
	project string
	cpuBase float64
	cpuVar  float64
	memBase float64
	memVar  float64
}

var demoServers = []demoServerSpec{
	{"api-prod", "cx41", "fsn1-dc14", "main-api", 45, 20, 60, 15},
	{"web-prod", "cx31", "fsn1-dc14", "website", 25, 15, 40, 10},
	{"db-master", "cpx41", "fsn1-dc14", "main-api", 55, 25, 75, 10},
	{"staging-1", "cx21", "nbg1-dc3", "staging", 3, 4, 15, 10},
	{"staging-2", "cx21", "nbg1-dc3", "staging", 2, 3, 12, 8},
	{"dev-backend", "cx21", "nbg1-dc3", "dev", 4, 5, 20, 10},
	{"monitoring", "cpx21", "fsn1-dc14", "infra", 30, 10, 50, 10},
	{"ci-runner", "cpx31", "fsn1-dc14", "infra", 15, 60, 35, 30},
	{"old-site", "cx21", "hel1-dc2", "legacy", 1, 1, 8, 3},
	{"cache-prod", "cpx21", "fsn1-dc14", "main-api", 20, 10, 65, 10},
	{"worker-1", "cx31", "fsn1-dc14", "main-api", 35, 20, 45, 15},
	{"analytics", "ax41-nvme", "fsn1-dc14", "analytics", 40, 30, 50, 20},
}

type demoSpec struct {
	cores    int
	memoryGB float64
	diskGB   int
}

var demoSpecs = map[string]demoSpec{
	"cx11":      {1, 2.0, 20},
	"cx21":      {2, 4.0, 40},
	"cx31":      {4, 8.0, 80},
	"cx41":      {8, 16.0, 160},
	"cpx11":     {2, 2.0, 40},
	"cpx21":     {3, 4.0, 80},
	"cpx31":     {4, 8.0, 160},
	"cpx41":     {8, 16.0, 240},
	"ccx13":     {2, 8.0, 80},
	"ccx23":     {4, 16.0, 160},
	"ccx33":     {8, 32.0, 240},
	"ax41-nvme": {6, 64.0, 512},
}

var demoPrices = map[string]float64{
	"cx11":      3.29,
	"cx21":      5.39,
	"cx31":      10.49,
	"cx41":      17.49,
	"cpx11":     3.85,
	"cpx21":     7.19,
	"cpx31":     13.49,
	"cpx41":     24.49,
	"ccx13":     12.49,
	"ccx23":     22.49,
	"ccx33":     42.49,
	"ax41-nvme": 46.41,
}

type demoService struct {
	name    string
	svcType model.ServiceType
	port    int
	cpu     float64
	mem     float64
}

var demoServices = map[string][]demoService{
	"api-prod": {
		{"api-gateway", model.ServiceDocker, 8080, 12.0, 256.0},
		{"api-backend", model.ServiceDocker, 8081, 18.0, 512.0},
		{"nginx", model.ServiceSystemd, 443, 2.0, 64.0},
	},
	"web-prod": {
		{"frontend-ssr", model.ServiceDocker, 3000, 8.0, 256.0},
		{"nginx", model.ServiceSystemd, 443, 1.5, 48.0},
	},
	"db-master": {
		{"postgresql", model.ServiceSystemd, 5432, 35.0, 2048.0},
		{"pgbouncer", model.ServiceDocker, 6432, 3.0, 64.0},
	},
	"staging-1": {
		{"staging-api", model.ServiceDocker, 8080, 1.0, 128.0},
	},
	"staging-2": {
		{"staging-frontend", model.ServiceDocker, 3000, 0.5, 96.0},
	},
	"dev-backend": {
		{"dev-api", model.ServiceDocker, 8080, 2.0, 192.0},
		{"dev-db", model.ServiceDocker, 5432, 1.0, 128.0},
	},
	"monitoring": {
		{"prometheus", model.ServiceDocker, 9090, 10.0, 512.0},
		{"grafana", model.ServiceDocker, 3000, 5.0, 256.0},
		{"alertmanager", model.ServiceDocker, 9093, 1.0, 64.0},
	},
	"ci-runner": {
		{"gitlab-runner", model.ServiceDocker, 0, 10.0, 512.0},
		{"docker-in-docker", model.ServiceDocker, 2376, 5.0, 256.0},
	},
	"old-site": {
		{"apache2", model.ServiceSystemd, 80, 0.3, 48.0},
		{"mysql", model.ServiceSystemd, 3306, 0.5, 96.0},
	},
	"cache-prod": {
		{"redis", model.ServiceDocker, 6379, 8.0, 1024.0},
		{"memcached", model.ServiceDocker, 11211, 4.0, 512.0},
	},
	"worker-1": {
		{"celery-worker", model.ServiceDocker, 0, 20.0, 384.0},
		{"celery-beat", model.ServiceDocker, 0, 2.0, 64.0},
	},
	"analytics": {
		{"clickhouse", model.ServiceDocker, 8123, 25.0, 4096.0},
		{"metabase", model.ServiceDocker, 3000, 8.0, 512.0},
	},
}

// SeedDemoData populates the store with a realistic inventory and 30 days of
// hourly metrics. It only runs against an empty inventory.
func (c *CollectorService) SeedDemoData(ctx context.Context) error {
	count, err := c.servers.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.DebugCtx(ctx, "demo data already seeded, skipping")
		return nil
	}

	logger.InfoCtx(ctx, "seeding demo data (%d servers, 30 days of metrics)", len(demoServers))

	now := time.Now().UTC()
	rng := rand.New(rand.NewSource(demoSeed))

	for idx, spec := range demoServers {
		n := idx + 1
		specs, ok := demoSpecs[spec.srvType]
		if !ok {
			specs = demoSpec{2, 4.0, 40}
		}
		price, ok := demoPrices[spec.srvType]
		if !ok {
			price = 5.0
		}

		source := model.SourceCloud
		if len(spec.srvType) > 2 && spec.srvType[:2] == "ax" {
			source = model.SourceDedicated
		}

		project := spec.project
		srv := &storemodel.Server{
			ExternalID:     fmt.Sprintf("demo-%d", n),
			Name:           spec.name,
			ServerType:     spec.srvType,
			Source:         source,
			Status:         model.ServerStatusRunning,
			Datacenter:     spec.dc,
			IPv4:           fmt.Sprintf("10.0.%d.%d", n/256, n%256),
			Cores:          specs.cores,
			MemoryGB:       specs.memoryGB,
			DiskGB:         specs.diskGB,
			MonthlyCostEUR: price,
			Labels:         storemodel.LabelMap{"env": project, "managed-by": "infrascope"},
			ProjectName:    &project,
			CreatedAt:      now.Add(-90 * 24 * time.Hour),
			LastSeenAt:     now,
		}
		if err := c.servers.Create(ctx, srv); err != nil {
			return err
		}

		if err := c.snapshots.InsertBatch(ctx, demoSnapshots(srv, spec, now, rng)); err != nil {
			return err
		}

		if err := c.services.ReplaceForServer(ctx, srv.ID, demoRunningServices(srv, now)); err != nil {
			return err
		}
	}

	logger.InfoCtx(ctx, "demo data seeding complete")
	return nil
}

// demoSnapshots builds 30 days of hourly samples with business-hours and
// sinusoidal patterns so the data looks organic.
func demoSnapshots(srv *storemodel.Server, spec demoServerSpec, now time.Time, rng *rand.Rand) []*storemodel.MetricSnapshot {
	const hours = 30 * 24

	snapshots := make([]*storemodel.MetricSnapshot, 0, hours)
	for h := 0; h < hours; h++ {
		ts := now.Add(-time.Duration(hours-h) * time.Hour)
		hour := ts.Hour()
		weekday := ts.Weekday()

		var timeFactor float64
		switch {
		case hour >= 8 && hour <= 18 && weekday >= time.Monday && weekday <= time.Friday:
			timeFactor = 1.2
		case hour <= 5:
			timeFactor = 0.6
		default:
			timeFactor = 0.9
		}

		sinFactor := 1.0 + 0.1*math.Sin(2*math.Pi*float64(h)/24)

		cpuPct := clamp(spec.cpuBase*timeFactor*sinFactor+rng.NormFloat64()*spec.cpuVar*0.3, 0, 100)
		memPct := clamp(spec.memBase*(0.95+0.1*sinFactor)+rng.NormFloat64()*spec.memVar*0.2, 0, 100)
		diskPct := clamp(30+0.02*float64(h)+rng.NormFloat64(), 0, 95)
		netIn := math.Max(0, 2.0*timeFactor+rng.NormFloat64()*0.5)
		netOut := math.Max(0, 1.5*timeFactor+rng.NormFloat64()*0.4)
		loadAvg := math.Max(0, cpuPct/100*float64(srv.Cores)+rng.NormFloat64()*0.3)
		loadAvg = round2(loadAvg)

		snapshots = append(snapshots, &storemodel.MetricSnapshot{
			ServerID:       srv.ID,
			Timestamp:      ts,
			CPUPercent:     round2(cpuPct),
			MemoryPercent:  round2(memPct),
			DiskPercent:    round2(diskPct),
			NetworkInMbps:  round2(netIn),
			NetworkOutMbps: round2(netOut),
			LoadAvg1m:      &loadAvg,
		})
	}
	return snapshots
}

func demoRunningServices(srv *storemodel.Server, now time.Time) []*storemodel.RunningService {
	entries := demoServices[srv.Name]
	services := make([]*storemodel.RunningService, 0, len(entries))
	for _, entry := range entries {
		cpu, mem := entry.cpu, entry.mem
		svc := &storemodel.RunningService{
			ServerID:     srv.ID,
			ServiceType:  entry.svcType,
			Name:         entry.name,
			Status:       model.ServerStatusRunning,
			CPUPercent:   &cpu,
			MemoryMB:     &mem,
			DiscoveredAt: now.Add(-30 * 24 * time.Hour),
			LastSeenAt:   now,
		}
		if entry.port > 0 {
			port := entry.port
			svc.Port = &port
		}
		services = append(services, svc)
	}
	return services
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
