package usecases

import (
	"context"
	stderrors "errors"

	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type ConsumeCreditsCommand struct {
	UserID      uint
	Amount      int64
	Reason      string
	ReferenceID string
}

type ConsumeCreditsResult struct {
	Entry *credit.Entry
}

type ConsumeCreditsUseCase struct {
	entryRepo credit.EntryRepository
	txManager db.Transactor
	logger    logger.Interface
}

func NewConsumeCreditsUseCase(entryRepo credit.EntryRepository, txManager db.Transactor, logger logger.Interface) *ConsumeCreditsUseCase {
	return &ConsumeCreditsUseCase{entryRepo: entryRepo, txManager: txManager, logger: logger}
}

// Execute spends credits. The balance read and the append run in one
// transaction with a row lock, so concurrent consumes cannot both pass the
// non-negative check.
func (uc *ConsumeCreditsUseCase) Execute(ctx context.Context, cmd ConsumeCreditsCommand) (*ConsumeCreditsResult, error) {
	if cmd.Amount <= 0 {
		return nil, errors.NewValidationError("consume amount must be positive")
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
		entry, err = credit.NewConsume(cmd.UserID, cmd.Amount, balance, cmd.Reason, refID)
		if err != nil {
			return err
		}
		return uc.entryRepo.Append(txCtx, entry)
	})
	if err != nil {
		if stderrors.Is(err, credit.ErrInsufficientBalance) {
			return nil, errors.NewValidationError("insufficient credit balance")
		}
		uc.logger.Errorw("failed to consume credits", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to consume credits")
	}

	uc.logger.Infow("credits consumed",
		"user_id", cmd.UserID, "amount", cmd.Amount, "balance_after", entry.BalanceAfter())
	return &ConsumeCreditsResult{Entry: entry}, nil
}
