package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contract-engine/billing"
	"github.com/warp/contract-engine/billing/store"
	"github.com/warp/contract-engine/money"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMemory_ContractRoundTrip(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	c := billing.Contract{
		ID:     "c-1",
		Value:  money.MustParse("500.00"),
		Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	got, err := mem.GetContract(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Value.Equal(c.Value))

	missing, err := mem.GetContract(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_DeleteContractBlockedByPayments(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveContract(ctx, billing.Contract{ID: "c-1"}))
	require.NoError(t, mem.InsertPayments(ctx, []billing.Payment{{ID: "p-1", ContractID: "c-1"}}))

	err := mem.DeleteContract(ctx, "c-1")
	assert.ErrorIs(t, err, billing.ErrContractHasPayments)

	require.NoError(t, mem.DeletePaymentsByContract(ctx, "c-1"))
	require.NoError(t, mem.DeleteContract(ctx, "c-1"))
}

func TestMemory_ListPaymentsOrderedByDueDate(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.InsertPayments(ctx, []billing.Payment{
		{ID: "p-b", ContractID: "c-1", DueDate: day("2026-03-01")},
		{ID: "p-a", ContractID: "c-1", DueDate: day("2026-01-01")},
		{ID: "p-c", ContractID: "c-1", DueDate: day("2026-02-01")},
		{ID: "p-x", ContractID: "other", DueDate: day("2026-01-01")},
	}))

	list, err := mem.ListPaymentsByContract(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "p-a", list[0].ID)
	assert.Equal(t, "p-c", list[1].ID)
	assert.Equal(t, "p-b", list[2].ID)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that mutates a contract's balances and then fails
	// WHEN: WithTx returns the error
	// THEN: The mutation is rolled back to the pre-transaction snapshot

	mem := store.NewTxMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveContract(ctx, billing.Contract{
		ID:              "c-1",
		PositiveBalance: money.MustParse("10.00"),
	}))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s billing.Store) error {
		if err := s.UpdateContractBalances(ctx, "c-1", money.MustParse("99.00"), money.Zero); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := mem.GetContract(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "10.00", c.PositiveBalance.String())
}

func TestTxMemory_CommitOnSuccess(t *testing.T) {
	mem := store.NewTxMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveContract(ctx, billing.Contract{ID: "c-1"}))

	err := mem.WithTx(ctx, func(s billing.Store) error {
		return s.UpdateContractStatus(ctx, "c-1", billing.ContractSettled)
	})
	require.NoError(t, err)

	c, _ := mem.GetContract(ctx, "c-1")
	assert.Equal(t, billing.ContractSettled, c.Status)
}
