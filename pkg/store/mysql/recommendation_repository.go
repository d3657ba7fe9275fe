package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"infrascope/internal/model"
	storemodel "infrascope/pkg/store/mysql/model"
)

// RecommendationRepository handles consolidation recommendation persistence
type RecommendationRepository struct {
	ds *Datastore
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(ds *Datastore) *RecommendationRepository {
	return &RecommendationRepository{ds: ds}
}

// Create stores a new recommendation
func (r *RecommendationRepository) Create(ctx context.Context, rec *storemodel.ConsolidationRecommendation) error {
	if err := r.ds.DB(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

// GetByID retrieves a recommendation by primary key, nil if missing
func (r *RecommendationRepository) GetByID(ctx context.Context, id int64) (*storemodel.ConsolidationRecommendation, error) {
	var rec storemodel.ConsolidationRecommendation
	err := r.ds.DB(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recommendation %d: %w", id, err)
	}
	return &rec, nil
}

// List retrieves recommendations ordered by savings, optionally filtered by status
func (r *RecommendationRepository) List(ctx context.Context, status model.RecommendationStatus) ([]*storemodel.ConsolidationRecommendation, error) {
	query := r.ds.DB(ctx).Model(&storemodel.ConsolidationRecommendation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var recs []*storemodel.ConsolidationRecommendation
	if err := query.Order("monthly_savings_eur DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

// UpdateStatus changes a recommendation's status
func (r *RecommendationRepository) UpdateStatus(ctx context.Context, id int64, status model.RecommendationStatus) error {
	err := r.ds.DB(ctx).
		Model(&storemodel.ConsolidationRecommendation{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update recommendation %d status: %w", id, err)
	}
	return nil
}

// DeletePending removes all pending recommendations. Accepted and dismissed
// rows are kept as a decision record.
func (r *RecommendationRepository) DeletePending(ctx context.Context) error {
	err := r.ds.DB(ctx).
		Where("status = ?", model.RecommendationPending).
		Delete(&storemodel.ConsolidationRecommendation{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete pending recommendations: %w", err)
	}
	return nil
}

// SumPendingSavings returns the total monthly savings across pending recommendations
func (r *RecommendationRepository) SumPendingSavings(ctx context.Context) (float64, error) {
	var total float64
	err := r.ds.DB(ctx).
		Model(&storemodel.ConsolidationRecommendation{}).
		Where("status = ?", model.RecommendationPending).
		Select("COALESCE(SUM(monthly_savings_eur), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum pending savings: %w", err)
	}
	return total, nil
}
