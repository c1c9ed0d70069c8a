package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	paymentUsecases "github.com/postline-io/postline/internal/application/payment/usecases"
	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
	"github.com/postline-io/postline/internal/shared/utils"
)

type PaymentHandler struct {
	createMethodUC *paymentUsecases.CreatePaymentMethodUseCase
	processUC      *paymentUsecases.ProcessPaymentUseCase
	refundUC       *paymentUsecases.RefundPaymentUseCase
	listUC         *paymentUsecases.ListPaymentsUseCase
	logger         logger.Interface
}

func NewPaymentHandler(
	createMethodUC *paymentUsecases.CreatePaymentMethodUseCase,
	processUC *paymentUsecases.ProcessPaymentUseCase,
	refundUC *paymentUsecases.RefundPaymentUseCase,
	listUC *paymentUsecases.ListPaymentsUseCase,
	logger logger.Interface,
) *PaymentHandler {
	return &PaymentHandler{
		createMethodUC: createMethodUC,
		processUC:      processUC,
		refundUC:       refundUC,
		listUC:         listUC,
		logger:         logger,
	}
}

type CreatePaymentMethodRequest struct {
	Provider  string `json:"provider" binding:"required,oneof=stripe payme click"`
	Token     string `json:"token" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

type PaymentMethodResponse struct {
	ID        uint   `json:"id"`
	Provider  string `json:"provider"`
	Type      string `json:"type"`
	LastFour  string `json:"last_four,omitempty"`
	Brand     string `json:"brand,omitempty"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// @Summary		Register payment method
// @Description	Exchange a provider token for a stored payment method
// @Tags			payments
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			method	body		CreatePaymentMethodRequest	true	"Payment method data"
// @Success		201		{object}	utils.APIResponse{data=PaymentMethodResponse}
// @Failure		400		{object}	utils.APIResponse
// @Router			/payment/methods [post]
func (h *PaymentHandler) CreatePaymentMethod(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req CreatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	cmd := paymentUsecases.CreatePaymentMethodCommand{
		UserID:    userID.(uint),
		Provider:  req.Provider,
		Token:     req.Token,
		Email:     req.Email,
		Name:      req.Name,
		IsDefault: req.IsDefault,
	}

	result, err := h.createMethodUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("failed to create payment method", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, methodToResponse(result.Method), "payment method registered")
}

type ProcessPaymentRequest struct {
	MethodID      uint   `json:"method_id" binding:"required"`
	AmountInCents int64  `json:"amount_in_cents" binding:"required,gt=0"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
}

type PaymentResponse struct {
	ID             uint    `json:"id"`
	OrderNo        string  `json:"order_no"`
	Provider       string  `json:"provider"`
	Status         string  `json:"status"`
	AmountInCents  int64   `json:"amount_in_cents"`
	Currency       string  `json:"currency"`
	Description    string  `json:"description,omitempty"`
	FailureCode    *string `json:"failure_code,omitempty"`
	FailureMessage *string `json:"failure_message,omitempty"`
	RefundID       *string `json:"refund_id,omitempty"`
	PaidAt         *string `json:"paid_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	Replayed       bool    `json:"replayed,omitempty"`
}

// @Summary		Process payment
// @Description	Charge a stored payment method. The Idempotency-Key header is required; retries with the same key replay the original outcome.
// @Tags			payments
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			Idempotency-Key	header		string					true	"Client idempotency key"
// @Param			payment			body		ProcessPaymentRequest	true	"Charge data"
// @Success		200				{object}	utils.APIResponse{data=PaymentResponse}
// @Failure		400				{object}	utils.APIResponse
// @Failure		409				{object}	utils.APIResponse
// @Failure		422				{object}	utils.APIResponse
// @Router			/payment/process [post]
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("Idempotency-Key header is required"))
		return
	}

	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	cmd := paymentUsecases.ProcessPaymentCommand{
		UserID:         userID.(uint),
		MethodID:       req.MethodID,
		AmountInCents:  req.AmountInCents,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	}

	result, err := h.processUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("payment processing failed",
			"error", err, "user_id", userID, "idempotency_key", idempotencyKey)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := paymentToResponse(result.Payment)
	resp.Replayed = result.Replayed
	utils.SuccessResponse(c, http.StatusOK, "payment processed", resp)
}

type RefundPaymentRequest struct {
	Reason string `json:"reason"`
}

// @Summary		Refund payment
// @Description	Refund a succeeded payment in full. Refunding the latest subscription payment cancels the subscription.
// @Tags			payments
// @Produce		json
// @Security		Bearer
// @Param			id		path		int						true	"Payment ID"
// @Param			refund	body		RefundPaymentRequest	false	"Refund data"
// @Success		200		{object}	utils.APIResponse{data=PaymentResponse}
// @Router			/payment/payments/{id}/refund [post]
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	paymentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	cmd := paymentUsecases.RefundPaymentCommand{
		UserID:    userID.(uint),
		PaymentID: paymentID,
		Reason:    req.Reason,
	}

	result, err := h.refundUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("refund failed", "error", err, "payment_id", paymentID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := paymentToResponse(result.Payment)
	utils.SuccessResponse(c, http.StatusOK, "payment refunded", gin.H{
		"payment":               resp,
		"subscription_canceled": result.SubscriptionCanceled,
	})
}

// @Summary		Payment history
// @Description	List the authenticated user's payments, newest first
// @Tags			payments
// @Produce		json
// @Security		Bearer
// @Param			page		query		int	false	"Page number"
// @Param			page_size	query		int	false	"Page size"
// @Success		200			{object}	utils.APIResponse{data=utils.ListResponse}
// @Router			/payment/history [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	cmd := paymentUsecases.ListPaymentsCommand{
		UserID:   userID.(uint),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	result, err := h.listUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Errorw("failed to list payments", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	items := make([]PaymentResponse, 0, len(result.Payments))
	for _, p := range result.Payments {
		items = append(items, paymentToResponse(p))
	}

	utils.ListSuccessResponse(c, items, result.Total, result.Page, result.PageSize)
}

func paymentToResponse(p *payment.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID(),
		OrderNo:        p.OrderNo(),
		Provider:       p.Provider().String(),
		Status:         p.Status().String(),
		AmountInCents:  p.Amount().AmountInCents(),
		Currency:       p.Amount().Currency(),
		Description:    p.Description(),
		FailureCode:    p.FailureCode(),
		FailureMessage: p.FailureMessage(),
		RefundID:       p.RefundID(),
		CreatedAt:      p.CreatedAt().Format(time.RFC3339),
	}
	if paidAt := p.PaidAt(); paidAt != nil {
		s := paidAt.Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}

func methodToResponse(m *payment.PaymentMethod) PaymentMethodResponse {
	return PaymentMethodResponse{
		ID:        m.ID(),
		Provider:  m.Provider().String(),
		Type:      m.MethodType().String(),
		LastFour:  m.LastFour(),
		Brand:     m.Brand(),
		IsDefault: m.IsDefault(),
		CreatedAt: m.CreatedAt().Format(time.RFC3339),
	}
}
