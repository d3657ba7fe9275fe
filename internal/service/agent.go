package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/logger"
	storemodel "infrascope/pkg/store/mysql/model"
)

// ErrInvalidSecret is returned when an agent report carries a wrong secret
var ErrInvalidSecret = errors.New("invalid agent secret")

// AgentServiceEntry is one service observed by the host agent
type AgentServiceEntry struct {
	Name        string   `json:"name" binding:"required"`
	ServiceType string   `json:"service_type" binding:"required"`
	Port        *int     `json:"port"`
	Status      string   `json:"status"`
	CPUPercent  *float64 `json:"cpu_percent"`
	MemoryMB    *float64 `json:"memory_mb"`
}

// AgentReport is a metrics and service report from a host agent
type AgentReport struct {
	Hostname       string              `json:"hostname" binding:"required"`
	ServerIP       string              `json:"server_ip" binding:"required"`
	CPUPercent     float64             `json:"cpu_percent"`
	MemoryPercent  float64             `json:"memory_percent"`
	DiskPercent    float64             `json:"disk_percent"`
	NetworkInMbps  float64             `json:"network_in_mbps"`
	NetworkOutMbps float64             `json:"network_out_mbps"`
	LoadAvg1m      *float64            `json:"load_avg_1m"`
	Services       []AgentServiceEntry `json:"services"`
	Secret         string              `json:"secret" binding:"required"`
}

// AgentService ingests reports pushed by agents on dedicated servers
type AgentService struct {
	servers   serverRepository
	snapshots snapshotRepository
	services  serviceRepository
	ds        txRunner
	secret    string
}

// NewAgentService creates an agent ingestion service
func NewAgentService(servers serverRepository, snapshots snapshotRepository, services serviceRepository, ds txRunner, secret string) *AgentService {
	return &AgentService{
		servers:   servers,
		snapshots: snapshots,
		services:  services,
		ds:        ds,
		secret:    secret,
	}
}

// ProcessReport validates and stores one agent report. The server upsert,
// snapshot insert and service replacement commit as a single transaction.
func (s *AgentService) ProcessReport(ctx context.Context, report *AgentReport) error {
	if report.Secret != s.secret {
		return ErrInvalidSecret
	}

	now := time.Now().UTC()

	return s.ds.ExecTx(ctx, func(ctx context.Context) error {
		srv, err := s.servers.GetByIP(ctx, report.ServerIP)
		if err != nil {
			return err
		}

		if srv == nil {
			// Auto-register as a dedicated server
			srv = &storemodel.Server{
				ExternalID: "agent-" + report.ServerIP,
				Name:       report.Hostname,
				ServerType: "dedicated",
				Source:     model.SourceDedicated,
				Status:     model.ServerStatusRunning,
				IPv4:       report.ServerIP,
				Labels:     storemodel.LabelMap{},
				CreatedAt:  now,
				LastSeenAt: now,
			}
			if err := s.servers.Create(ctx, srv); err != nil {
				return fmt.Errorf("failed to register agent server: %w", err)
			}
			logger.InfoCtx(ctx, "registered new agent server %s (%s)", report.Hostname, report.ServerIP)
		} else {
			srv.Name = report.Hostname
			srv.LastSeenAt = now
			if err := s.servers.Update(ctx, srv); err != nil {
				return err
			}
		}

		snapshot := &storemodel.MetricSnapshot{
			ServerID:       srv.ID,
			Timestamp:      now,
			CPUPercent:     report.CPUPercent,
			MemoryPercent:  report.MemoryPercent,
			DiskPercent:    report.DiskPercent,
			NetworkInMbps:  report.NetworkInMbps,
			NetworkOutMbps: report.NetworkOutMbps,
			LoadAvg1m:      report.LoadAvg1m,
		}
		if err := s.snapshots.Insert(ctx, snapshot); err != nil {
			return err
		}

		services := make([]*storemodel.RunningService, 0, len(report.Services))
		for _, entry := range report.Services {
			status := entry.Status
			if status == "" {
				status = model.ServerStatusRunning
			}
			services = append(services, &storemodel.RunningService{
				ServerID:     srv.ID,
				ServiceType:  parseServiceType(entry.ServiceType),
				Name:         entry.Name,
				Port:         entry.Port,
				Status:       status,
				CPUPercent:   entry.CPUPercent,
				MemoryMB:     entry.MemoryMB,
				DiscoveredAt: now,
				LastSeenAt:   now,
			})
		}
		return s.services.ReplaceForServer(ctx, srv.ID, services)
	})
}

func parseServiceType(raw string) model.ServiceType {
	switch model.ServiceType(raw) {
	case model.ServiceDocker, model.ServiceSystemd, model.ServicePort:
		return model.ServiceType(raw)
	default:
		return model.ServiceDocker
	}
}
