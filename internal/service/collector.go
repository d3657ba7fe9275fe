package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/hetzner"
	"infrascope/pkg/logger"
	storemodel "infrascope/pkg/store/mysql/model"
)

const (
	// metricsWindow is how far back the collector samples cloud metrics
	metricsWindow = 10 * time.Minute

	// priceLocation is the reference location for server type pricing
	priceLocation = "fsn1"
)

// CollectorService syncs server inventory and metrics from the cloud and
// robot APIs into the local store.
type CollectorService struct {
	servers   serverRepository
	snapshots snapshotRepository
	services  serviceRepository
	cloud     cloudAPI
	robot     robotAPI
}

// NewCollectorService creates a collector. cloud and robot may each be nil
// when the corresponding credentials are not configured, the source is then
// skipped.
func NewCollectorService(servers serverRepository, snapshots snapshotRepository, services serviceRepository, cloud cloudAPI, robot robotAPI) *CollectorService {
	return &CollectorService{
		servers:   servers,
		snapshots: snapshots,
		services:  services,
		cloud:     cloud,
		robot:     robot,
	}
}

// RunCollection runs one full collection cycle. A failure in one source does
// not prevent the other from running.
func (c *CollectorService) RunCollection(ctx context.Context) error {
	logger.InfoCtx(ctx, "starting collection cycle")

	if err := c.collectCloudServers(ctx); err != nil {
		logger.WarnCtx(ctx, "cloud server collection failed: %v", err)
	}
	if err := c.collectDedicatedServers(ctx); err != nil {
		logger.WarnCtx(ctx, "dedicated server collection failed: %v", err)
	}

	logger.InfoCtx(ctx, "collection cycle complete")
	return nil
}

func (c *CollectorService) collectCloudServers(ctx context.Context) error {
	if c.cloud == nil {
		logger.DebugCtx(ctx, "cloud api token not configured, skipping cloud collection")
		return nil
	}

	raw, err := c.cloud.ListServers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch cloud servers: %w", err)
	}

	priceMap := c.buildCloudPriceMap(ctx)
	now := time.Now().UTC()

	for _, rs := range raw {
		externalID := fmt.Sprintf("%d", rs.ID)
		monthlyCost := extractMonthlyPrice(&rs.ServerType, priceMap)

		srv, err := c.servers.GetByExternalID(ctx, externalID)
		if err != nil {
			return err
		}

		if srv == nil {
			srv = &storemodel.Server{
				ExternalID:     externalID,
				Name:           rs.Name,
				ServerType:     rs.ServerType.Name,
				Source:         model.SourceCloud,
				Status:         rs.Status,
				Datacenter:     rs.Datacenter.Name,
				IPv4:           rs.PublicNet.IPv4.IP,
				Cores:          rs.ServerType.Cores,
				MemoryGB:       rs.ServerType.Memory,
				DiskGB:         rs.ServerType.Disk,
				MonthlyCostEUR: monthlyCost,
				Labels:         storemodel.LabelMap(rs.Labels),
				CreatedAt:      now,
				LastSeenAt:     now,
			}
			if err := c.servers.Create(ctx, srv); err != nil {
				return err
			}
		} else {
			srv.Name = rs.Name
			srv.ServerType = rs.ServerType.Name
			srv.Status = rs.Status
			srv.Datacenter = rs.Datacenter.Name
			srv.IPv4 = rs.PublicNet.IPv4.IP
			srv.Cores = rs.ServerType.Cores
			srv.MemoryGB = rs.ServerType.Memory
			srv.DiskGB = rs.ServerType.Disk
			srv.MonthlyCostEUR = monthlyCost
			srv.Labels = storemodel.LabelMap(rs.Labels)
			srv.LastSeenAt = now
			if err := c.servers.Update(ctx, srv); err != nil {
				return err
			}
		}

		c.collectCloudMetrics(ctx, srv, rs.ID)
	}

	logger.InfoCtx(ctx, "cloud server collection complete (%d servers)", len(raw))
	return nil
}

// collectCloudMetrics samples the recent metrics window for one server and
// stores a snapshot. A server yielding no CPU samples gets no snapshot.
func (c *CollectorService) collectCloudMetrics(ctx context.Context, srv *storemodel.Server, cloudID int64) {
	now := time.Now().UTC()
	start := now.Add(-metricsWindow)

	cpuResp, err := c.cloud.GetServerMetrics(ctx, cloudID, "cpu", start, now)
	if err != nil {
		logger.DebugCtx(ctx, "failed to fetch metrics for cloud server %s: %v", srv.ExternalID, err)
		return
	}

	var cpuValues []float64
	for _, series := range cpuResp.Metrics.TimeSeries {
		cpuValues = append(cpuValues, series.FloatValues()...)
	}
	if len(cpuValues) == 0 {
		return
	}

	avgCPU := mean(cpuValues)
	// The cloud API reports CPU summed across cores, normalize to 0-100
	if srv.Cores > 0 && avgCPU > 100 {
		avgCPU = avgCPU / float64(srv.Cores)
	}
	if avgCPU > 100 {
		avgCPU = 100
	}

	var diskPct float64
	if diskResp, err := c.cloud.GetServerMetrics(ctx, cloudID, "disk", start, now); err == nil {
		for name, series := range diskResp.Metrics.TimeSeries {
			if strings.Contains(name, "bandwidth.read") || strings.Contains(name, "bandwidth.write") {
				continue
			}
			if vals := series.FloatValues(); len(vals) > 0 {
				if avg := mean(vals); avg > diskPct {
					diskPct = avg
				}
			}
		}
	}

	var netIn, netOut float64
	if netResp, err := c.cloud.GetServerMetrics(ctx, cloudID, "network", start, now); err == nil {
		for name, series := range netResp.Metrics.TimeSeries {
			vals := series.FloatValues()
			if len(vals) == 0 {
				continue
			}
			// Series values are bytes per second
			mbps := mean(vals) * 8 / 1e6
			if strings.Contains(name, "in") {
				netIn = mbps
			} else if strings.Contains(name, "out") {
				netOut = mbps
			}
		}
	}

	snapshot := &storemodel.MetricSnapshot{
		ServerID:       srv.ID,
		Timestamp:      now,
		CPUPercent:     round2(avgCPU),
		DiskPercent:    round2(diskPct),
		NetworkInMbps:  round4(netIn),
		NetworkOutMbps: round4(netOut),
	}
	if err := c.snapshots.Insert(ctx, snapshot); err != nil {
		logger.WarnCtx(ctx, "failed to store snapshot for server %s: %v", srv.ExternalID, err)
	}
}

func (c *CollectorService) collectDedicatedServers(ctx context.Context) error {
	if c.robot == nil {
		logger.DebugCtx(ctx, "robot credentials not configured, skipping dedicated collection")
		return nil
	}

	raw, err := c.robot.ListServers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch dedicated servers: %w", err)
	}

	now := time.Now().UTC()

	for _, rs := range raw {
		externalID := fmt.Sprintf("%d", rs.ServerNumber)
		if rs.ServerNumber == 0 {
			externalID = rs.ServerIP
		}

		srv, err := c.servers.GetByExternalID(ctx, externalID)
		if err != nil {
			return err
		}

		if srv == nil {
			name := rs.ServerName
			if name == "" {
				name = "dedicated-" + externalID
			}
			srv = &storemodel.Server{
				ExternalID: externalID,
				Name:       name,
				ServerType: rs.Product,
				Source:     model.SourceDedicated,
				Status:     rs.Status,
				Datacenter: rs.DC,
				IPv4:       rs.ServerIP,
				Labels:     storemodel.LabelMap{},
				CreatedAt:  now,
				LastSeenAt: now,
			}
			if srv.Status == "" {
				srv.Status = model.ServerStatusRunning
			}
			if err := c.servers.Create(ctx, srv); err != nil {
				return err
			}
		} else {
			if rs.ServerName != "" {
				srv.Name = rs.ServerName
			}
			srv.ServerType = rs.Product
			if rs.Status != "" {
				srv.Status = rs.Status
			}
			srv.Datacenter = rs.DC
			srv.IPv4 = rs.ServerIP
			srv.LastSeenAt = now
			if err := c.servers.Update(ctx, srv); err != nil {
				return err
			}
		}
	}

	logger.InfoCtx(ctx, "dedicated server collection complete (%d servers)", len(raw))
	return nil
}

// buildCloudPriceMap maps server type names to monthly gross EUR prices
func (c *CollectorService) buildCloudPriceMap(ctx context.Context) map[string]float64 {
	types, err := c.cloud.ListServerTypes(ctx)
	if err != nil {
		logger.DebugCtx(ctx, "could not fetch server types for pricing: %v", err)
		return map[string]float64{}
	}

	priceMap := make(map[string]float64, len(types))
	for _, st := range types {
		for _, price := range st.Prices {
			if price.Location == priceLocation {
				if v := price.PriceMonthly.GrossFloat(); v > 0 {
					priceMap[st.Name] = v
				}
				break
			}
		}
	}
	return priceMap
}

// extractMonthlyPrice prefers the inline price entries, falling back to the
// type price map
func extractMonthlyPrice(st *hetzner.ServerType, priceMap map[string]float64) float64 {
	for _, price := range st.Prices {
		if v := price.PriceMonthly.GrossFloat(); v > 0 {
			return v
		}
	}
	return priceMap[st.Name]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
