package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type GetBalanceCommand struct {
	UserID   uint
	Page     int
	PageSize int
}

type GetBalanceResult struct {
	Balance int64
	Entries []*credit.Entry
	Total   int64
}

type GetBalanceUseCase struct {
	entryRepo credit.EntryRepository
	logger    logger.Interface
}

func NewGetBalanceUseCase(entryRepo credit.EntryRepository, logger logger.Interface) *GetBalanceUseCase {
	return &GetBalanceUseCase{entryRepo: entryRepo, logger: logger}
}

func (uc *GetBalanceUseCase) Execute(ctx context.Context, cmd GetBalanceCommand) (*GetBalanceResult, error) {
	balance, err := uc.entryRepo.CurrentBalance(ctx, cmd.UserID)
	if err != nil {
		uc.logger.Errorw("failed to read credit balance", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to read credit balance")
	}

	page := cmd.Page
	if page < 1 {
		page = 1
	}
	pageSize := cmd.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := uc.entryRepo.ListByUserID(ctx, cmd.UserID, page, pageSize)
	if err != nil {
		uc.logger.Errorw("failed to list credit entries", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to list credit entries")
	}

	return &GetBalanceResult{Balance: balance, Entries: entries, Total: total}, nil
}
