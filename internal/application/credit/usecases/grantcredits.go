package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type GrantCreditsCommand struct {
	UserID uint
	Amount int64
	Reason string
	// ReferenceID makes a grant idempotent: a second grant with the same
	// reference returns the original entry.
	ReferenceID string
}

type GrantCreditsResult struct {
	Entry *credit.Entry
	// Replayed is true when the reference matched an existing grant.
	Replayed bool
}

type GrantCreditsUseCase struct {
	entryRepo credit.EntryRepository
	txManager db.Transactor
	logger    logger.Interface
}

func NewGrantCreditsUseCase(entryRepo credit.EntryRepository, txManager db.Transactor, logger logger.Interface) *GrantCreditsUseCase {
	return &GrantCreditsUseCase{entryRepo: entryRepo, txManager: txManager, logger: logger}
}

func (uc *GrantCreditsUseCase) Execute(ctx context.Context, cmd GrantCreditsCommand) (*GrantCreditsResult, error) {
	if cmd.Amount <= 0 {
		return nil, errors.NewValidationError("grant amount must be positive")
	}

	if cmd.ReferenceID != "" {
		if existing, err := uc.entryRepo.GetByReferenceID(ctx, cmd.ReferenceID); err == nil && existing != nil {
			return &GrantCreditsResult{Entry: existing, Replayed: true}, nil
		}
	}

	var entry *credit.Entry
	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		balance, err := uc.entryRepo.CurrentBalanceForUpdate(txCtx, cmd.UserID)
		if err != nil {
			return err
		}

		var refID *string
		if cmd.ReferenceID != "" {
			refID = &cmd.ReferenceID
		}
		entry, err = credit.NewGrant(cmd.UserID, cmd.Amount, balance, cmd.Reason, refID)
		if err != nil {
			return err
		}
		return uc.entryRepo.Append(txCtx, entry)
	})
	if err != nil {
		uc.logger.Errorw("failed to grant credits", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to grant credits")
	}

	uc.logger.Infow("credits granted",
		"user_id", cmd.UserID, "amount", cmd.Amount, "balance_after", entry.BalanceAfter())
	return &GrantCreditsResult{Entry: entry}, nil
}
