package payment

import (
	"fmt"
	"time"

	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
)

// PaymentMethod is a tokenized way to charge a user. The raw card or wallet
// data never reaches this system; only the provider-side token does.
type PaymentMethod struct {
	id                 uint
	userID             uint
	provider           vo.Provider
	providerCustomerID string
	providerMethodID   string
	methodType         vo.MethodType
	lastFour           string
	brand              string
	isDefault          bool
	isActive           bool
	createdAt          time.Time
	updatedAt          time.Time
}

func NewPaymentMethod(userID uint, provider vo.Provider, providerCustomerID, providerMethodID string, methodType vo.MethodType, lastFour, brand string, isDefault bool) (*PaymentMethod, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if providerMethodID == "" {
		return nil, fmt.Errorf("provider method ID is required")
	}

	now := biztime.NowUTC()
	return &PaymentMethod{
		userID:             userID,
		provider:           provider,
		providerCustomerID: providerCustomerID,
		providerMethodID:   providerMethodID,
		methodType:         methodType,
		lastFour:           lastFour,
		brand:              brand,
		isDefault:          isDefault,
		isActive:           true,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

func (m *PaymentMethod) MarkDefault() {
	m.isDefault = true
	m.updatedAt = biztime.NowUTC()
}

func (m *PaymentMethod) ClearDefault() {
	m.isDefault = false
	m.updatedAt = biztime.NowUTC()
}

// Deactivate soft-deletes the method. Rows are kept for payment history.
func (m *PaymentMethod) Deactivate() {
	m.isActive = false
	m.isDefault = false
	m.updatedAt = biztime.NowUTC()
}

// SetID sets the ID after persistence (used by repository after Create)
func (m *PaymentMethod) SetID(id uint) {
	m.id = id
}

func (m *PaymentMethod) ID() uint                   { return m.id }
func (m *PaymentMethod) UserID() uint               { return m.userID }
func (m *PaymentMethod) Provider() vo.Provider      { return m.provider }
func (m *PaymentMethod) ProviderCustomerID() string { return m.providerCustomerID }
func (m *PaymentMethod) ProviderMethodID() string   { return m.providerMethodID }
func (m *PaymentMethod) MethodType() vo.MethodType  { return m.methodType }
func (m *PaymentMethod) LastFour() string           { return m.lastFour }
func (m *PaymentMethod) Brand() string              { return m.brand }
func (m *PaymentMethod) IsDefault() bool            { return m.isDefault }
func (m *PaymentMethod) IsActive() bool             { return m.isActive }
func (m *PaymentMethod) CreatedAt() time.Time       { return m.createdAt }
func (m *PaymentMethod) UpdatedAt() time.Time       { return m.updatedAt }

func ReconstructPaymentMethod(
	id, userID uint,
	provider vo.Provider,
	providerCustomerID, providerMethodID string,
	methodType vo.MethodType,
	lastFour, brand string,
	isDefault, isActive bool,
	createdAt, updatedAt time.Time,
) *PaymentMethod {
	return &PaymentMethod{
		id:                 id,
		userID:             userID,
		provider:           provider,
		providerCustomerID: providerCustomerID,
		providerMethodID:   providerMethodID,
		methodType:         methodType,
		lastFour:           lastFour,
		brand:              brand,
		isDefault:          isDefault,
		isActive:           isActive,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}
