package mappers

import (
	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
)

func CreditEntryToModel(e *credit.Entry) *models.CreditEntryModel {
	return &models.CreditEntryModel{
		ID:           e.ID(),
		UserID:       e.UserID(),
		EntryType:    string(e.Type()),
		Amount:       e.Amount(),
		BalanceAfter: e.BalanceAfter(),
		Reason:       e.Reason(),
		ReferenceID:  e.ReferenceID(),
		CreatedAt:    e.CreatedAt(),
	}
}

func CreditEntryToDomain(model *models.CreditEntryModel) *credit.Entry {
	return credit.ReconstructEntry(
		model.ID,
		model.UserID,
		credit.EntryType(model.EntryType),
		model.Amount, model.BalanceAfter,
		model.Reason,
		model.ReferenceID,
		model.CreatedAt,
	)
}
