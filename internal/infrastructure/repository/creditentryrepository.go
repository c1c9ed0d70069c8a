package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/infrastructure/persistence/mappers"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
	"github.com/postline-io/postline/internal/shared/db"
)

type CreditEntryRepository struct {
	db *gorm.DB
}

func NewCreditEntryRepository(db *gorm.DB) *CreditEntryRepository {
	return &CreditEntryRepository{db: db}
}

func (r *CreditEntryRepository) Append(ctx context.Context, e *credit.Entry) error {
	model := mappers.CreditEntryToModel(e)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append credit entry: %w", err)
	}

	e.SetID(model.ID)
	return nil
}

func (r *CreditEntryRepository) CurrentBalance(ctx context.Context, userID uint) (int64, error) {
	return r.balance(ctx, userID, false)
}

func (r *CreditEntryRepository) CurrentBalanceForUpdate(ctx context.Context, userID uint) (int64, error) {
	return r.balance(ctx, userID, true)
}

func (r *CreditEntryRepository) balance(ctx context.Context, userID uint, forUpdate bool) (int64, error) {
	conn := db.GetTxFromContext(ctx, r.db)
	if forUpdate {
		conn = conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.CreditEntryModel
	err := conn.
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read credit balance: %w", err)
	}
	return model.BalanceAfter, nil
}

func (r *CreditEntryRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*credit.Entry, int64, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var total int64
	if err := conn.Model(&models.CreditEntryModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count credit entries: %w", err)
	}

	var entryModels []models.CreditEntryModel
	if err := conn.
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entryModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list credit entries: %w", err)
	}

	entries := make([]*credit.Entry, 0, len(entryModels))
	for i := range entryModels {
		entries = append(entries, mappers.CreditEntryToDomain(&entryModels[i]))
	}
	return entries, total, nil
}

func (r *CreditEntryRepository) GetByReferenceID(ctx context.Context, referenceID string) (*credit.Entry, error) {
	var model models.CreditEntryModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("reference_id = ?", referenceID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("credit entry not found")
		}
		return nil, fmt.Errorf("failed to get credit entry by reference: %w", err)
	}

	return mappers.CreditEntryToDomain(&model), nil
}
