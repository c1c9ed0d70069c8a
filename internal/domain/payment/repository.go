package payment

import (
	"context"
	"time"
)

// PaymentRepository is the persistence port for charge attempts.
// GetByIdempotencyKey backs the exactly-once guarantee and must be checked
// before any provider call.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uint) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	GetByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*Payment, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*Payment, error)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Payment, int64, error)
	GetLatestSucceededBySubscriptionID(ctx context.Context, subscriptionID uint) (*Payment, error)
	// ListStuckPending returns pending payments older than the horizon.
	// They are reconciled against the provider, never failed on timeout alone.
	ListStuckPending(ctx context.Context, olderThan time.Time) ([]*Payment, error)
}

// PaymentMethodRepository is the persistence port for tokenized methods.
type PaymentMethodRepository interface {
	Create(ctx context.Context, m *PaymentMethod) error
	Update(ctx context.Context, m *PaymentMethod) error
	GetByID(ctx context.Context, id uint) (*PaymentMethod, error)
	ListActiveByUserID(ctx context.Context, userID uint) ([]*PaymentMethod, error)
	// ClearDefaultForUser unsets is_default on every method of the user.
	// Sequenced before marking a new default so no two methods report default.
	ClearDefaultForUser(ctx context.Context, userID uint) error
}
