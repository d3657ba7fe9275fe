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

func TestCostOverview(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()
	recs := newFakeRecommendationRepo()

	mainAPI := "main-api"
	require.NoError(t, servers.Create(ctx, &storemodel.Server{
		Name: "api-prod", Source: model.SourceCloud, Datacenter: "fsn1-dc14",
		ProjectName: &mainAPI, MonthlyCostEUR: 17.49,
	}))
	require.NoError(t, servers.Create(ctx, &storemodel.Server{
		Name: "storage-1", Source: model.SourceDedicated, Datacenter: "fsn1-dc14",
		MonthlyCostEUR: 46.41,
	}))

	require.NoError(t, recs.Create(ctx, &storemodel.ConsolidationRecommendation{
		Status: model.RecommendationPending, MonthlySavingsEUR: 7.0,
	}))
	require.NoError(t, recs.Create(ctx, &storemodel.ConsolidationRecommendation{
		Status: model.RecommendationDismissed, MonthlySavingsEUR: 100.0,
	}))

	cost := NewCostService(servers, recs)
	overview, err := cost.Overview(ctx)

	require.NoError(t, err)
	assert.InDelta(t, 63.90, overview.TotalMonthlyEUR, 0.001)
	assert.InDelta(t, 17.49, overview.CloudCostEUR, 0.001)
	assert.InDelta(t, 46.41, overview.DedicatedCostEUR, 0.001)
	assert.InDelta(t, 7.0, overview.PotentialSavingsEUR, 0.001, "only pending savings count")
	assert.Equal(t, int64(2), overview.ServerCount)

	require.Len(t, overview.ByDatacenter, 1)
	assert.Equal(t, "fsn1-dc14", overview.ByDatacenter[0].Category)
	assert.Equal(t, 2, overview.ByDatacenter[0].Count)

	require.Len(t, overview.ByProject, 2)
	categories := []string{overview.ByProject[0].Category, overview.ByProject[1].Category}
	assert.Contains(t, categories, "main-api")
	assert.Contains(t, categories, "unassigned")
}

func TestCostHistory_CreationDateCutoff(t *testing.T) {
	ctx := context.Background()
	servers := newFakeServerRepo()

	now := time.Now().UTC()
	require.NoError(t, servers.Create(ctx, &storemodel.Server{
		Name: "veteran", Source: model.SourceCloud, MonthlyCostEUR: 10.0,
		CreatedAt: now.Add(-400 * 24 * time.Hour),
	}))
	require.NoError(t, servers.Create(ctx, &storemodel.Server{
		Name: "newcomer", Source: model.SourceDedicated, MonthlyCostEUR: 40.0,
		CreatedAt: now,
	}))

	cost := NewCostService(servers, newFakeRecommendationRepo())
	history, err := cost.History(ctx)

	require.NoError(t, err)
	require.Len(t, history, 12)

	// Oldest month: only the veteran existed
	assert.InDelta(t, 10.0, history[0].TotalEUR, 0.001)
	assert.InDelta(t, 10.0, history[0].CloudEUR, 0.001)
	assert.Zero(t, history[0].DedicatedEUR)

	// Months are labeled YYYY-MM ending at the current month
	assert.Equal(t, now.Format("2006-01"), history[11].Month)

	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i].TotalEUR, history[i-1].TotalEUR,
			"projected spend never shrinks going forward")
	}
}
