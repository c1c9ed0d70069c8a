package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	creditUsecases "github.com/postline-io/postline/internal/application/credit/usecases"
	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/shared/logger"
	"github.com/postline-io/postline/internal/shared/utils"
)

type CreditHandler struct {
	grantUC   *creditUsecases.GrantCreditsUseCase
	consumeUC *creditUsecases.ConsumeCreditsUseCase
	balanceUC *creditUsecases.GetBalanceUseCase
	logger    logger.Interface
}

func NewCreditHandler(
	grantUC *creditUsecases.GrantCreditsUseCase,
	consumeUC *creditUsecases.ConsumeCreditsUseCase,
	balanceUC *creditUsecases.GetBalanceUseCase,
	logger logger.Interface,
) *CreditHandler {
	return &CreditHandler{
		grantUC:   grantUC,
		consumeUC: consumeUC,
		balanceUC: balanceUC,
		logger:    logger,
	}
}

type CreditEntryResponse struct {
	ID           uint    `json:"id"`
	Type         string  `json:"type"`
	Amount       int64   `json:"amount"`
	BalanceAfter int64   `json:"balance_after"`
	Reason       string  `json:"reason,omitempty"`
	ReferenceID  *string `json:"reference_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// @Summary		Credit balance
// @Description	Current balance with the paginated ledger, newest entries first
// @Tags			credits
// @Produce		json
// @Security		Bearer
// @Param			page		query		int	false	"Page number"
// @Param			page_size	query		int	false	"Page size"
// @Success		200			{object}	utils.APIResponse
// @Router			/payment/credits [get]
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	result, err := h.balanceUC.Execute(c.Request.Context(), creditUsecases.GetBalanceCommand{
		UserID:   userID.(uint),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	})
	if err != nil {
		h.logger.Errorw("failed to get credit balance", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	entries := make([]CreditEntryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, entryToResponse(e))
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"balance": result.Balance,
		"entries": entries,
		"total":   result.Total,
	})
}

type GrantCreditsRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Reason      string `json:"reason" binding:"required"`
	ReferenceID string `json:"reference_id"`
}

// @Summary		Grant credits
// @Description	Append a grant entry. A reference_id makes the grant idempotent.
// @Tags			credits
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			grant	body		GrantCreditsRequest	true	"Grant data"
// @Success		200		{object}	utils.APIResponse{data=CreditEntryResponse}
// @Router			/payment/credits/grant [post]
func (h *CreditHandler) GrantCredits(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	result, err := h.grantUC.Execute(c.Request.Context(), creditUsecases.GrantCreditsCommand{
		UserID:      userID.(uint),
		Amount:      req.Amount,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		h.logger.Warnw("failed to grant credits", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	message := "credits granted"
	if result.Replayed {
		message = "grant already recorded"
	}
	utils.SuccessResponse(c, http.StatusOK, message, entryToResponse(result.Entry))
}

type ConsumeCreditsRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Reason      string `json:"reason" binding:"required"`
	ReferenceID string `json:"reference_id"`
}

// @Summary		Consume credits
// @Description	Append a consume entry. Fails when the balance is insufficient.
// @Tags			credits
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			consume	body		ConsumeCreditsRequest	true	"Consume data"
// @Success		200		{object}	utils.APIResponse{data=CreditEntryResponse}
// @Failure		400		{object}	utils.APIResponse
// @Router			/payment/credits/consume [post]
func (h *CreditHandler) ConsumeCredits(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req ConsumeCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	result, err := h.consumeUC.Execute(c.Request.Context(), creditUsecases.ConsumeCreditsCommand{
		UserID:      userID.(uint),
		Amount:      req.Amount,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		h.logger.Warnw("failed to consume credits", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "credits consumed", entryToResponse(result.Entry))
}

func entryToResponse(e *credit.Entry) CreditEntryResponse {
	return CreditEntryResponse{
		ID:           e.ID(),
		Type:         string(e.Type()),
		Amount:       e.Amount(),
		BalanceAfter: e.BalanceAfter(),
		Reason:       e.Reason(),
		ReferenceID:  e.ReferenceID(),
		CreatedAt:    e.CreatedAt().Format(time.RFC3339),
	}
}
