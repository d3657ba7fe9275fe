package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"infrascope/internal/model"
	"infrascope/pkg/logger"
	storemodel "infrascope/pkg/store/mysql/model"
)

// Approximate Hetzner Cloud pricing in EUR per month
var priceMap = map[string]float64{
	"cx11":  3.29,
	"cx21":  5.39,
	"cx31":  10.49,
	"cx41":  17.49,
	"cpx11": 3.85,
	"cpx21": 7.19,
	"cpx31": 13.49,
	"cpx41": 24.49,
	"ccx13": 12.49,
	"ccx23": 22.49,
	"ccx33": 42.49,
}

// downgradeMap maps each type to the next smaller one in its family
var downgradeMap = map[string]string{
	"cx41":  "cx31",
	"cx31":  "cx21",
	"cx21":  "cx11",
	"cpx41": "cpx31",
	"cpx31": "cpx21",
	"cpx21": "cpx11",
	"ccx33": "ccx23",
	"ccx23": "ccx13",
}

// typeCores is a simplified core count per type
var typeCores = map[string]int{
	"cx11":  1,
	"cx21":  2,
	"cx31":  4,
	"cx41":  8,
	"cpx11": 2,
	"cpx21": 3,
	"cpx31": 4,
	"cpx41": 8,
	"ccx13": 2,
	"ccx23": 4,
	"ccx33": 8,
}

var stagingPattern = regexp.MustCompile(`(?i)(staging|dev|test)`)

var (
	// ErrRecommendationNotFound is returned for unknown recommendation ids
	ErrRecommendationNotFound = errors.New("recommendation not found")

	// ErrInvalidStatus is returned for unknown status filter values
	ErrInvalidStatus = errors.New("invalid recommendation status")
)

// RecommenderService generates consolidation recommendations from the
// current inventory and utilization analysis.
type RecommenderService struct {
	servers         serverRepository
	recommendations recommendationRepository
	analyzer        *AnalyzerService
	ds              txRunner
}

// NewRecommenderService creates a recommender service
func NewRecommenderService(servers serverRepository, recommendations recommendationRepository, analyzer *AnalyzerService, ds txRunner) *RecommenderService {
	return &RecommenderService{
		servers:         servers,
		recommendations: recommendations,
		analyzer:        analyzer,
		ds:              ds,
	}
}

// GenerateRecommendations runs all rules and persists the results. Pending
// recommendations are replaced wholesale so the list always reflects the
// latest analysis; accepted and dismissed ones are left intact.
func (s *RecommenderService) GenerateRecommendations(ctx context.Context) ([]*storemodel.ConsolidationRecommendation, error) {
	logger.InfoCtx(ctx, "generating consolidation recommendations")

	stats, err := s.analyzer.AnalyzeAll(ctx)
	if err != nil {
		return nil, err
	}
	statsByID := make(map[int64]*ServerStats, len(stats))
	for _, st := range stats {
		statsByID[st.ServerID] = st
	}

	servers, err := s.servers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	serverByID := make(map[int64]*storemodel.Server, len(servers))
	for _, srv := range servers {
		serverByID[srv.ID] = srv
	}

	var newRecs []*storemodel.ConsolidationRecommendation
	newRecs = append(newRecs, findIdleServers(serverByID, statsByID)...)
	newRecs = append(newRecs, findStagingConsolidation(serverByID, statsByID)...)
	newRecs = append(newRecs, findRightsizingCandidates(serverByID, statsByID)...)

	err = s.ds.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.recommendations.DeletePending(ctx); err != nil {
			return err
		}
		for _, rec := range newRecs {
			if err := s.recommendations.Create(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "created %d new recommendations", len(newRecs))
	return newRecs, nil
}

// ListRecommendations returns recommendations ordered by savings. status
// may be empty or one of pending, accepted, dismissed.
func (s *RecommenderService) ListRecommendations(ctx context.Context, status string) ([]*storemodel.ConsolidationRecommendation, error) {
	parsed, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.recommendations.List(ctx, parsed)
}

// Accept marks a recommendation as accepted for tracking
func (s *RecommenderService) Accept(ctx context.Context, id int64) (*storemodel.ConsolidationRecommendation, error) {
	return s.setStatus(ctx, id, model.RecommendationAccepted)
}

// Dismiss marks a recommendation as dismissed
func (s *RecommenderService) Dismiss(ctx context.Context, id int64) (*storemodel.ConsolidationRecommendation, error) {
	return s.setStatus(ctx, id, model.RecommendationDismissed)
}

func (s *RecommenderService) setStatus(ctx context.Context, id int64, status model.RecommendationStatus) (*storemodel.ConsolidationRecommendation, error) {
	rec, err := s.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecommendationNotFound
	}

	if err := s.recommendations.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	rec.Status = status
	return rec, nil
}

func parseStatus(status string) (model.RecommendationStatus, error) {
	switch model.RecommendationStatus(status) {
	case "", model.RecommendationPending, model.RecommendationAccepted, model.RecommendationDismissed:
		return model.RecommendationStatus(status), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}

// findIdleServers recommends downsizing or consolidating servers whose
// 30-day average CPU stays under 5 percent.
func findIdleServers(serverByID map[int64]*storemodel.Server, statsByID map[int64]*ServerStats) []*storemodel.ConsolidationRecommendation {
	var recs []*storemodel.ConsolidationRecommendation
	now := time.Now().UTC()

	for _, sid := range sortedStatIDs(statsByID) {
		stats := statsByID[sid]
		if stats.Tier != model.TierIdle {
			continue
		}

		srv := serverByID[sid]
		if srv == nil || srv.Status != model.ServerStatusRunning {
			continue
		}
		if srv.MonthlyCostEUR <= 0 {
			continue
		}

		currentType := strings.ToLower(srv.ServerType)
		smallerType, hasSmaller := downgradeMap[currentType]

		var targetCost, savings float64
		var targetLabel, rationale string
		if hasSmaller {
			targetCost = priceMap[smallerType]
			savings = srv.MonthlyCostEUR - targetCost
			targetLabel = smallerType
			rationale = fmt.Sprintf(
				"This server is barely using its resources, averaging just %.1f%% CPU over 30 days "+
					"(peak %.1f%%). Downgrading from %s to %s would save EUR %.2f/mo. Alternatively, "+
					"its workloads could be consolidated onto another server to free up this instance entirely.",
				stats.AvgCPU30d, stats.PeakCPU30d, srv.ServerType, smallerType, savings)
		} else {
			targetCost = 0
			savings = srv.MonthlyCostEUR
			targetLabel = "downsize / consolidate"
			rationale = fmt.Sprintf(
				"This server is barely using its resources, averaging just %.1f%% CPU over 30 days "+
					"(peak %.1f%%). Its workloads could likely be consolidated onto another server, "+
					"saving the full EUR %.2f/mo. Review what's running on it to decide the best path.",
				stats.AvgCPU30d, stats.PeakCPU30d, srv.MonthlyCostEUR)
		}

		recs = append(recs, &storemodel.ConsolidationRecommendation{
			GroupName:           "Underutilized: " + srv.Name,
			ServerIDs:           storemodel.ServerIDList{srv.ID},
			TargetServerType:    targetLabel,
			CurrentTotalCostEUR: srv.MonthlyCostEUR,
			ProjectedCostEUR:    targetCost,
			MonthlySavingsEUR:   savings,
			Rationale:           rationale,
			Confidence:          model.ConfidenceHigh,
			Status:              model.RecommendationPending,
			CreatedAt:           now,
		})
	}

	return recs
}

// findStagingConsolidation recommends merging staging, dev and test servers
// onto a single right-sized instance when at least two exist.
func findStagingConsolidation(serverByID map[int64]*storemodel.Server, statsByID map[int64]*ServerStats) []*storemodel.ConsolidationRecommendation {
	var staging []*storemodel.Server
	for _, sid := range sortedServerIDs(serverByID) {
		srv := serverByID[sid]
		if srv.Status != model.ServerStatusRunning {
			continue
		}
		if isStagingServer(srv) {
			staging = append(staging, srv)
		}
	}

	if len(staging) < 2 {
		return nil
	}

	var totalCost, combinedPeakCPU float64
	serverIDs := make(storemodel.ServerIDList, 0, len(staging))
	names := make([]string, 0, len(staging))
	for _, srv := range staging {
		totalCost += srv.MonthlyCostEUR
		serverIDs = append(serverIDs, srv.ID)
		names = append(names, srv.Name)
		if stats := statsByID[srv.ID]; stats != nil {
			combinedPeakCPU += stats.PeakCPU30d
		}
	}

	targetType := pickTargetTypeForCombinedLoad(combinedPeakCPU, staging)
	targetCost, ok := priceMap[targetType]
	if !ok {
		targetCost = totalCost * 0.5
	}
	savings := totalCost - targetCost
	if savings <= 0 {
		return nil
	}

	rec := &storemodel.ConsolidationRecommendation{
		GroupName:           "Staging/dev server consolidation",
		ServerIDs:           serverIDs,
		TargetServerType:    targetType,
		CurrentTotalCostEUR: round2(totalCost),
		ProjectedCostEUR:    round2(targetCost),
		MonthlySavingsEUR:   round2(savings),
		Rationale: fmt.Sprintf(
			"These non-production servers (%s) cost a combined EUR %.2f/mo but their total peak CPU "+
				"is only %.1f%%. They could share a single %s (EUR %.2f/mo) with room to spare, "+
				"saving EUR %.2f/mo.",
			strings.Join(names, ", "), totalCost, combinedPeakCPU, targetType, targetCost, savings),
		Confidence: model.ConfidenceMedium,
		Status:     model.RecommendationPending,
		CreatedAt:  time.Now().UTC(),
	}
	return []*storemodel.ConsolidationRecommendation{rec}
}

// findRightsizingCandidates recommends downgrading servers whose 30-day peak
// CPU never reaches 30 percent. Idle servers are covered by the idle rule.
func findRightsizingCandidates(serverByID map[int64]*storemodel.Server, statsByID map[int64]*ServerStats) []*storemodel.ConsolidationRecommendation {
	var recs []*storemodel.ConsolidationRecommendation
	now := time.Now().UTC()

	for _, sid := range sortedStatIDs(statsByID) {
		stats := statsByID[sid]
		if stats.PeakCPU30d >= 30 || stats.Tier == model.TierIdle {
			continue
		}

		srv := serverByID[sid]
		if srv == nil || srv.Status != model.ServerStatusRunning {
			continue
		}

		currentType := strings.ToLower(srv.ServerType)
		smallerType, ok := downgradeMap[currentType]
		if !ok {
			continue
		}

		currentCost := srv.MonthlyCostEUR
		if currentCost <= 0 {
			currentCost = priceMap[currentType]
		}
		targetCost, ok := priceMap[smallerType]
		if !ok {
			targetCost = currentCost
		}
		savings := currentCost - targetCost
		if savings <= 0 {
			continue
		}

		recs = append(recs, &storemodel.ConsolidationRecommendation{
			GroupName:           "Right-size: " + srv.Name,
			ServerIDs:           storemodel.ServerIDList{srv.ID},
			TargetServerType:    smallerType,
			CurrentTotalCostEUR: round2(currentCost),
			ProjectedCostEUR:    round2(targetCost),
			MonthlySavingsEUR:   round2(savings),
			Rationale: fmt.Sprintf(
				"'%s' peaks at only %.1f%% CPU (avg %.1f%%) on a %s. A %s can comfortably handle "+
					"this workload and would save EUR %.2f/mo while still leaving plenty of headroom "+
					"for traffic spikes.",
				srv.Name, stats.PeakCPU30d, stats.AvgCPU30d, currentType, smallerType, savings),
			Confidence: model.ConfidenceMedium,
			Status:     model.RecommendationPending,
			CreatedAt:  now,
		})
	}

	return recs
}

// isStagingServer matches staging/dev/test in the name, project or labels
func isStagingServer(srv *storemodel.Server) bool {
	if stagingPattern.MatchString(srv.Name) {
		return true
	}
	if srv.ProjectName != nil && stagingPattern.MatchString(*srv.ProjectName) {
		return true
	}
	for _, v := range srv.Labels {
		if stagingPattern.MatchString(v) {
			return true
		}
	}
	return false
}

// pickTargetTypeForCombinedLoad chooses the cheapest type whose cores keep
// the combined peak at or below 70 percent utilization.
func pickTargetTypeForCombinedLoad(combinedPeakCPU float64, servers []*storemodel.Server) string {
	totalCores := 0
	for _, srv := range servers {
		totalCores += srv.Cores
	}
	if totalCores == 0 {
		totalCores = 1
	}

	effectiveCores := (combinedPeakCPU / 100.0) * float64(totalCores)
	targetCores := effectiveCores / 0.7
	if targetCores < 1 {
		targetCores = 1
	}

	type candidate struct {
		name  string
		price float64
	}
	candidates := make([]candidate, 0, len(priceMap))
	for name, price := range priceMap {
		candidates = append(candidates, candidate{name, price})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].price != candidates[j].price {
			return candidates[i].price < candidates[j].price
		}
		return candidates[i].name < candidates[j].name
	})

	for _, c := range candidates {
		cores := typeCores[c.name]
		if cores == 0 {
			cores = 1
		}
		if float64(cores) >= targetCores {
			return c.name
		}
	}

	// Nothing big enough, fall back to the largest type
	return candidates[len(candidates)-1].name
}

func sortedStatIDs(statsByID map[int64]*ServerStats) []int64 {
	ids := make([]int64, 0, len(statsByID))
	for id := range statsByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedServerIDs(serverByID map[int64]*storemodel.Server) []int64 {
	ids := make([]int64, 0, len(serverByID))
	for id := range serverByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
