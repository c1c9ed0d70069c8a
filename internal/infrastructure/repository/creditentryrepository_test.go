package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/domain/credit"
	"github.com/postline-io/postline/internal/shared/errors"
)

func TestCreditEntryRepository(t *testing.T) {
	repo := NewCreditEntryRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("a user without entries has zero balance", func(t *testing.T) {
		balance, err := repo.CurrentBalance(ctx, 42)

		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("the balance follows the newest entry", func(t *testing.T) {
		grant, err := credit.NewGrant(1, 100, 0, "signup_bonus", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, grant))
		assert.NotZero(t, grant.ID())

		consume, err := credit.NewConsume(1, 30, 100, "post_published", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, consume))

		balance, err := repo.CurrentBalance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(70), balance)
	})

	t.Run("lists entries newest first with the total", func(t *testing.T) {
		entries, total, err := repo.ListByUserID(ctx, 1, 1, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(-30), entries[0].Amount())
		assert.Equal(t, int64(100), entries[1].Amount())
	})

	t.Run("finds a grant by its reference", func(t *testing.T) {
		ref := "pay_77"
		grant, err := credit.NewGrant(2, 50, 0, "refund_compensation", &ref)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, grant))

		found, err := repo.GetByReferenceID(ctx, "pay_77")

		require.NoError(t, err)
		assert.Equal(t, grant.ID(), found.ID())
		assert.Equal(t, int64(50), found.BalanceAfter())
	})

	t.Run("a duplicate reference is rejected by the unique index", func(t *testing.T) {
		ref := "pay_77"
		dup, err := credit.NewGrant(2, 50, 50, "refund_compensation", &ref)
		require.NoError(t, err)

		err = repo.Append(ctx, dup)

		require.Error(t, err)
		assert.True(t, errors.IsDuplicateError(err))
	})
}
