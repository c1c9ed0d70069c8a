package credit

import "context"

// EntryRepository is the persistence port for the credit ledger. Implementations
// must take a row lock on the user's newest entry (or equivalent) so concurrent
// appends see a consistent prior balance.
type EntryRepository interface {
	Append(ctx context.Context, e *Entry) error
	// CurrentBalance returns the balanceAfter of the user's newest entry,
	// zero when the user has no entries.
	CurrentBalance(ctx context.Context, userID uint) (int64, error)
	// CurrentBalanceForUpdate is CurrentBalance with a row lock, for use
	// inside a transaction that will append.
	CurrentBalanceForUpdate(ctx context.Context, userID uint) (int64, error)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Entry, int64, error)
	// GetByReferenceID finds an entry by its external reference, used to make
	// grant-per-payment idempotent.
	GetByReferenceID(ctx context.Context, referenceID string) (*Entry, error)
}
