package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/store/mysql"
	storemodel "infrascope/pkg/store/mysql/model"
)

// in-memory repository fakes shared by the service tests

type fakeServerRepo struct {
	servers map[int64]*storemodel.Server
	nextID  int64
}

func newFakeServerRepo() *fakeServerRepo {
	return &fakeServerRepo{servers: make(map[int64]*storemodel.Server)}
}

func (f *fakeServerRepo) Create(_ context.Context, server *storemodel.Server) error {
	f.nextID++
	server.ID = f.nextID
	f.servers[server.ID] = server
	return nil
}

func (f *fakeServerRepo) Update(_ context.Context, server *storemodel.Server) error {
	f.servers[server.ID] = server
	return nil
}

func (f *fakeServerRepo) GetByID(_ context.Context, id int64) (*storemodel.Server, error) {
	return f.servers[id], nil
}

func (f *fakeServerRepo) GetByExternalID(_ context.Context, externalID string) (*storemodel.Server, error) {
	for _, srv := range f.servers {
		if srv.ExternalID == externalID {
			return srv, nil
		}
	}
	return nil, nil
}

func (f *fakeServerRepo) GetByIP(_ context.Context, ipv4 string) (*storemodel.Server, error) {
	for _, srv := range f.servers {
		if srv.IPv4 == ipv4 {
			return srv, nil
		}
	}
	return nil, nil
}

func (f *fakeServerRepo) List(ctx context.Context, filter mysql.ServerFilter) ([]*storemodel.Server, error) {
	all, _ := f.ListAll(ctx)
	var out []*storemodel.Server
	for _, srv := range all {
		if filter.Source != "" && string(srv.Source) != filter.Source {
			continue
		}
		if filter.Status != "" && srv.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(srv.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, srv)
	}
	return out, nil
}

func (f *fakeServerRepo) ListAll(_ context.Context) ([]*storemodel.Server, error) {
	ids := make([]int64, 0, len(f.servers))
	for id := range f.servers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*storemodel.Server, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.servers[id])
	}
	return out, nil
}

func (f *fakeServerRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.servers)), nil
}

func (f *fakeServerRepo) CostBySource(ctx context.Context) ([]*mysql.CostBreakdownRow, error) {
	return f.costGroupedBy(ctx, func(srv *storemodel.Server) string { return string(srv.Source) })
}

func (f *fakeServerRepo) CostByDatacenter(ctx context.Context) ([]*mysql.CostBreakdownRow, error) {
	return f.costGroupedBy(ctx, func(srv *storemodel.Server) string { return srv.Datacenter })
}

func (f *fakeServerRepo) CostByProject(ctx context.Context) ([]*mysql.CostBreakdownRow, error) {
	return f.costGroupedBy(ctx, func(srv *storemodel.Server) string {
		if srv.ProjectName == nil {
			return ""
		}
		return *srv.ProjectName
	})
}

func (f *fakeServerRepo) costGroupedBy(_ context.Context, key func(*storemodel.Server) string) ([]*mysql.CostBreakdownRow, error) {
	byKey := make(map[string]*mysql.CostBreakdownRow)
	for _, srv := range f.servers {
		k := key(srv)
		row, ok := byKey[k]
		if !ok {
			row = &mysql.CostBreakdownRow{Category: k}
			byKey[k] = row
		}
		row.CostEUR += srv.MonthlyCostEUR
		row.Count++
	}
	out := make([]*mysql.CostBreakdownRow, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

type fakeSnapshotRepo struct {
	byServer map[int64][]*storemodel.MetricSnapshot
	nextID   int64
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{byServer: make(map[int64][]*storemodel.MetricSnapshot)}
}

func (f *fakeSnapshotRepo) Insert(_ context.Context, snapshot *storemodel.MetricSnapshot) error {
	f.nextID++
	snapshot.ID = f.nextID
	f.byServer[snapshot.ServerID] = append(f.byServer[snapshot.ServerID], snapshot)
	return nil
}

func (f *fakeSnapshotRepo) InsertBatch(ctx context.Context, snapshots []*storemodel.MetricSnapshot) error {
	for _, s := range snapshots {
		if err := f.Insert(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSnapshotRepo) Latest(_ context.Context, serverID int64) (*storemodel.MetricSnapshot, error) {
	var latest *storemodel.MetricSnapshot
	for _, s := range f.byServer[serverID] {
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}
	return latest, nil
}

func (f *fakeSnapshotRepo) ListSince(_ context.Context, serverID int64, cutoff time.Time) ([]*storemodel.MetricSnapshot, error) {
	var out []*storemodel.MetricSnapshot
	for _, s := range f.byServer[serverID] {
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeSnapshotRepo) Aggregates(_ context.Context, serverID int64, cutoff time.Time) (*mysql.UsageAggregates, error) {
	agg := &mysql.UsageAggregates{}
	var sumCPU, sumMem float64
	for _, s := range f.byServer[serverID] {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		agg.SampleCount++
		sumCPU += s.CPUPercent
		sumMem += s.MemoryPercent
		if s.CPUPercent > agg.PeakCPU {
			agg.PeakCPU = s.CPUPercent
		}
		if s.MemoryPercent > agg.PeakMemory {
			agg.PeakMemory = s.MemoryPercent
		}
	}
	if agg.SampleCount > 0 {
		agg.AvgCPU = sumCPU / float64(agg.SampleCount)
		agg.AvgMemory = sumMem / float64(agg.SampleCount)
	}
	return agg, nil
}

func (f *fakeSnapshotRepo) LatestTimestamp(_ context.Context) (*time.Time, error) {
	var latest *time.Time
	for _, snapshots := range f.byServer {
		for _, s := range snapshots {
			if latest == nil || s.Timestamp.After(*latest) {
				ts := s.Timestamp
				latest = &ts
			}
		}
	}
	return latest, nil
}

type fakeServiceRepo struct {
	byServer map[int64][]*storemodel.RunningService
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{byServer: make(map[int64][]*storemodel.RunningService)}
}

func (f *fakeServiceRepo) ListByServer(_ context.Context, serverID int64) ([]*storemodel.RunningService, error) {
	out := append([]*storemodel.RunningService(nil), f.byServer[serverID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeServiceRepo) ReplaceForServer(_ context.Context, serverID int64, services []*storemodel.RunningService) error {
	f.byServer[serverID] = services
	return nil
}

type fakeRecommendationRepo struct {
	recs   map[int64]*storemodel.ConsolidationRecommendation
	nextID int64
}

func newFakeRecommendationRepo() *fakeRecommendationRepo {
	return &fakeRecommendationRepo{recs: make(map[int64]*storemodel.ConsolidationRecommendation)}
}

func (f *fakeRecommendationRepo) Create(_ context.Context, rec *storemodel.ConsolidationRecommendation) error {
	f.nextID++
	rec.ID = f.nextID
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeRecommendationRepo) GetByID(_ context.Context, id int64) (*storemodel.ConsolidationRecommendation, error) {
	return f.recs[id], nil
}

func (f *fakeRecommendationRepo) List(_ context.Context, status model.RecommendationStatus) ([]*storemodel.ConsolidationRecommendation, error) {
	var out []*storemodel.ConsolidationRecommendation
	for _, rec := range f.recs {
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthlySavingsEUR > out[j].MonthlySavingsEUR })
	return out, nil
}

func (f *fakeRecommendationRepo) UpdateStatus(_ context.Context, id int64, status model.RecommendationStatus) error {
	if rec, ok := f.recs[id]; ok {
		rec.Status = status
	}
	return nil
}

func (f *fakeRecommendationRepo) DeletePending(_ context.Context) error {
	for id, rec := range f.recs {
		if rec.Status == model.RecommendationPending {
			delete(f.recs, id)
		}
	}
	return nil
}

func (f *fakeRecommendationRepo) SumPendingSavings(_ context.Context) (float64, error) {
	var total float64
	for _, rec := range f.recs {
		if rec.Status == model.RecommendationPending {
			total += rec.MonthlySavingsEUR
		}
	}
	return total, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
