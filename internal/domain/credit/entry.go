package credit

import (
	"fmt"
	"time"

	"github.com/postline-io/postline/internal/shared/biztime"
)

// EntryType classifies a ledger movement.
type EntryType string

const (
	EntryTypeGrant      EntryType = "grant"
	EntryTypeConsume    EntryType = "consume"
	EntryTypeRefundComp EntryType = "refund_compensation"
)

// Entry is an append-only credit ledger row. Entries are never updated or
// deleted; the balance is the balanceAfter of the newest entry per user.
type Entry struct {
	id           uint
	userID       uint
	entryType    EntryType
	amount       int64
	balanceAfter int64
	reason       string
	referenceID  *string
	createdAt    time.Time
}

// NewGrant appends credits. amount must be positive; priorBalance is the
// current balance read inside the same transaction.
func NewGrant(userID uint, amount, priorBalance int64, reason string, referenceID *string) (*Entry, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("grant amount must be positive")
	}

	return &Entry{
		userID:       userID,
		entryType:    EntryTypeGrant,
		amount:       amount,
		balanceAfter: priorBalance + amount,
		reason:       reason,
		referenceID:  referenceID,
		createdAt:    biztime.NowUTC(),
	}, nil
}

// NewConsume spends credits. The balance can never go negative; an
// insufficient balance is reported as ErrInsufficientBalance.
func NewConsume(userID uint, amount, priorBalance int64, reason string, referenceID *string) (*Entry, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("consume amount must be positive")
	}
	if priorBalance < amount {
		return nil, ErrInsufficientBalance
	}

	return &Entry{
		userID:       userID,
		entryType:    EntryTypeConsume,
		amount:       -amount,
		balanceAfter: priorBalance - amount,
		reason:       reason,
		referenceID:  referenceID,
		createdAt:    biztime.NowUTC(),
	}, nil
}

// ErrInsufficientBalance is returned when a consume would drive the balance
// below zero.
var ErrInsufficientBalance = fmt.Errorf("insufficient credit balance")

// SetID sets the entry ID after persistence
func (e *Entry) SetID(id uint) {
	e.id = id
}

func (e *Entry) ID() uint             { return e.id }
func (e *Entry) UserID() uint         { return e.userID }
func (e *Entry) Type() EntryType      { return e.entryType }
func (e *Entry) Amount() int64        { return e.amount }
func (e *Entry) BalanceAfter() int64  { return e.balanceAfter }
func (e *Entry) Reason() string       { return e.reason }
func (e *Entry) ReferenceID() *string { return e.referenceID }
func (e *Entry) CreatedAt() time.Time { return e.createdAt }

func ReconstructEntry(
	id uint,
	userID uint,
	entryType EntryType,
	amount, balanceAfter int64,
	reason string,
	referenceID *string,
	createdAt time.Time,
) *Entry {
	return &Entry{
		id:           id,
		userID:       userID,
		entryType:    entryType,
		amount:       amount,
		balanceAfter: balanceAfter,
		reason:       reason,
		referenceID:  referenceID,
		createdAt:    createdAt,
	}
}
