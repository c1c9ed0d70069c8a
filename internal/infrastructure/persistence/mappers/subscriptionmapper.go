package mappers

import (
	"encoding/json"
	"fmt"

	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/subscription"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
)

func SubscriptionToModel(s *subscription.Subscription) *models.SubscriptionModel {
	model := &models.SubscriptionModel{
		ID:                     s.ID(),
		UserID:                 s.UserID(),
		PlanID:                 s.PlanID(),
		PaymentMethodID:        s.PaymentMethodID(),
		Provider:               s.Provider().String(),
		ProviderSubscriptionID: s.ProviderSubscriptionID(),
		Status:                 s.Status().String(),
		BillingCycle:           s.BillingCycle().String(),
		Amount:                 s.Amount().AmountInCents(),
		Currency:               s.Amount().Currency(),
		CurrentPeriodStart:     s.CurrentPeriodStart(),
		CurrentPeriodEnd:       s.CurrentPeriodEnd(),
		TrialEndsAt:            s.TrialEndsAt(),
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd(),
		CanceledAt:             s.CanceledAt(),
		CancelReason:           s.CancelReason(),
		Version:                s.Version(),
		CreatedAt:              s.CreatedAt(),
		UpdatedAt:              s.UpdatedAt(),
	}

	// The marker holds the user id for every non-terminal subscription; the
	// unique index on it is what makes "one live subscription per user" a
	// database guarantee.
	if !s.Status().IsTerminal() {
		userID := s.UserID()
		model.ActiveMarker = &userID
	}

	if len(s.Metadata()) > 0 {
		if data, err := json.Marshal(s.Metadata()); err == nil {
			model.Metadata = data
		}
	}

	return model
}

func SubscriptionToDomain(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	provider, err := paymentVO.NewProvider(model.Provider)
	if err != nil {
		return nil, err
	}
	cycle, err := vo.ParseBillingCycle(model.BillingCycle)
	if err != nil {
		return nil, err
	}
	status := vo.SubscriptionStatus(model.Status)
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}

	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			metadata = nil
		}
	}

	return subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:                     model.ID,
		UserID:                 model.UserID,
		PlanID:                 model.PlanID,
		PaymentMethodID:        model.PaymentMethodID,
		Provider:               provider,
		ProviderSubscriptionID: model.ProviderSubscriptionID,
		Status:                 status,
		BillingCycle:           cycle,
		Amount:                 paymentVO.NewMoney(model.Amount, model.Currency),
		CurrentPeriodStart:     model.CurrentPeriodStart,
		CurrentPeriodEnd:       model.CurrentPeriodEnd,
		TrialEndsAt:            model.TrialEndsAt,
		CancelAtPeriodEnd:      model.CancelAtPeriodEnd,
		CanceledAt:             model.CanceledAt,
		CancelReason:           model.CancelReason,
		Metadata:               metadata,
		Version:                model.Version,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
	})
}

func PlanToDomain(model *models.PlanModel) (*subscription.Plan, error) {
	return subscription.ReconstructPlan(
		model.ID,
		model.Name,
		model.MaxChannels, model.MaxPostsPerMonth,
		model.PriceMonthly, model.PriceYearly,
		model.Currency,
		model.IsActive,
		model.CreatedAt, model.UpdatedAt,
	)
}
