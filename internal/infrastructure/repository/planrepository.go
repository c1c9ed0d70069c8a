package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/infrastructure/persistence/mappers"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
	"github.com/postline-io/postline/internal/shared/db"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	var model models.PlanModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("plan not found")
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return mappers.PlanToDomain(&model)
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]*subscription.Plan, error) {
	var planModels []models.PlanModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("is_active = ?", true).
		Order("price_monthly ASC").
		Find(&planModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := make([]*subscription.Plan, 0, len(planModels))
	for i := range planModels {
		p, err := mappers.PlanToDomain(&planModels[i])
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}
