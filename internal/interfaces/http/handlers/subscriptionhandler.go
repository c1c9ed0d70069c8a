package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	subscriptionUsecases "github.com/postline-io/postline/internal/application/subscription/usecases"
	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/shared/logger"
	"github.com/postline-io/postline/internal/shared/utils"
)

type SubscriptionHandler struct {
	createUC    *subscriptionUsecases.CreateSubscriptionUseCase
	cancelUC    *subscriptionUsecases.CancelSubscriptionUseCase
	getUC       *subscriptionUsecases.GetSubscriptionUseCase
	listPlansUC *subscriptionUsecases.ListPlansUseCase
	logger      logger.Interface
}

func NewSubscriptionHandler(
	createUC *subscriptionUsecases.CreateSubscriptionUseCase,
	cancelUC *subscriptionUsecases.CancelSubscriptionUseCase,
	getUC *subscriptionUsecases.GetSubscriptionUseCase,
	listPlansUC *subscriptionUsecases.ListPlansUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		createUC:    createUC,
		cancelUC:    cancelUC,
		getUC:       getUC,
		listPlansUC: listPlansUC,
		logger:      logger,
	}
}

type CreateSubscriptionRequest struct {
	PlanID       uint   `json:"plan_id" binding:"required"`
	MethodID     uint   `json:"method_id" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"required,billing_cycle"`
	TrialDays    int    `json:"trial_days" binding:"omitempty,min=0,max=90"`
}

type SubscriptionResponse struct {
	ID                 uint    `json:"id"`
	PlanID             uint    `json:"plan_id"`
	Provider           string  `json:"provider"`
	Status             string  `json:"status"`
	BillingCycle       string  `json:"billing_cycle"`
	AmountInCents      int64   `json:"amount_in_cents"`
	Currency           string  `json:"currency"`
	CurrentPeriodStart string  `json:"current_period_start"`
	CurrentPeriodEnd   string  `json:"current_period_end"`
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end,omitempty"`
	TrialEndsAt        *string `json:"trial_ends_at,omitempty"`
	CanceledAt         *string `json:"canceled_at,omitempty"`
	CancelReason       *string `json:"cancel_reason,omitempty"`
}

// @Summary		Create subscription
// @Description	Subscribe to a plan. An existing live subscription is canceled and replaced.
// @Tags			subscriptions
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			subscription	body		CreateSubscriptionRequest	true	"Subscription data"
// @Success		201				{object}	utils.APIResponse{data=SubscriptionResponse}
// @Failure		400				{object}	utils.APIResponse
// @Failure		409				{object}	utils.APIResponse
// @Router			/payment/subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	cmd := subscriptionUsecases.CreateSubscriptionCommand{
		UserID:       userID.(uint),
		PlanID:       req.PlanID,
		MethodID:     req.MethodID,
		BillingCycle: req.BillingCycle,
		TrialDays:    req.TrialDays,
	}

	result, err := h.createUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("failed to create subscription", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := gin.H{"subscription": subscriptionToResponse(result.Subscription)}
	if result.ReplacedSubscriptionID != nil {
		resp["replaced_subscription_id"] = *result.ReplacedSubscriptionID
	}
	utils.CreatedResponse(c, resp, "subscription created")
}

type CancelSubscriptionRequest struct {
	SubscriptionID uint   `json:"subscription_id"`
	Reason         string `json:"reason"`
	AtPeriodEnd    bool   `json:"at_period_end"`
}

// @Summary		Cancel subscription
// @Description	Cancel the user's subscription. Canceling an already canceled subscription is a no-op.
// @Tags			subscriptions
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			cancel	body		CancelSubscriptionRequest	false	"Cancellation data"
// @Success		200		{object}	utils.APIResponse{data=SubscriptionResponse}
// @Router			/payment/subscription/cancel [put]
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	cmd := subscriptionUsecases.CancelSubscriptionCommand{
		UserID:         userID.(uint),
		SubscriptionID: req.SubscriptionID,
		Reason:         req.Reason,
		AtPeriodEnd:    req.AtPeriodEnd,
	}

	result, err := h.cancelUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("failed to cancel subscription", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	message := "subscription canceled"
	if result.AlreadyCanceled {
		message = "subscription was already canceled"
	}
	if result.ScheduledForPeriodEnd {
		message = "subscription will cancel at period end"
	}
	utils.SuccessResponse(c, http.StatusOK, message, subscriptionToResponse(result.Subscription))
}

// @Summary		Get subscription
// @Description	Fetch the user's live subscription with its plan
// @Tags			subscriptions
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse
// @Failure		404	{object}	utils.APIResponse
// @Router			/payment/subscription [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	result, err := h.getUC.Execute(c.Request.Context(), subscriptionUsecases.GetSubscriptionCommand{
		UserID: userID.(uint),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := gin.H{"subscription": subscriptionToResponse(result.Subscription)}
	if result.Plan != nil {
		resp["plan"] = gin.H{
			"id":                  result.Plan.ID(),
			"name":                result.Plan.Name(),
			"max_channels":        result.Plan.MaxChannels(),
			"max_posts_per_month": result.Plan.MaxPostsPerMonth(),
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// @Summary		List plans
// @Description	List active plans, cheapest first
// @Tags			subscriptions
// @Produce		json
// @Success		200	{object}	utils.APIResponse
// @Router			/payment/plans [get]
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.listPlansUC.Execute(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list plans", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"plans": plans})
}

func subscriptionToResponse(s *subscription.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:                 s.ID(),
		PlanID:             s.PlanID(),
		Provider:           s.Provider().String(),
		Status:             s.Status().String(),
		BillingCycle:       s.BillingCycle().String(),
		AmountInCents:      s.Amount().AmountInCents(),
		Currency:           s.Amount().Currency(),
		CurrentPeriodStart: s.CurrentPeriodStart().Format(time.RFC3339),
		CurrentPeriodEnd:   s.CurrentPeriodEnd().Format(time.RFC3339),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd(),
		CancelReason:       s.CancelReason(),
	}
	if t := s.TrialEndsAt(); t != nil {
		v := t.Format(time.RFC3339)
		resp.TrialEndsAt = &v
	}
	if t := s.CanceledAt(); t != nil {
		v := t.Format(time.RFC3339)
		resp.CanceledAt = &v
	}
	return resp
}
