package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contract-engine/billing"
	"github.com/warp/contract-engine/money"
	"github.com/warp/contract-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func amt(s string) money.Amount { return money.MustParse(s) }

// =============================================================================
// CONTRACTS
// =============================================================================

func TestContractRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := billing.Contract{
		ID:               "c-1",
		ClientID:         "client-9",
		Value:            amt("1200.50"),
		DownPayment:      amt("200.50"),
		NumberOfPayments: 10,
		StartDate:        day("2026-01-15"),
		PositiveBalance:  amt("5.00"),
		NegativeBalance:  amt("0.00"),
		Status:           billing.ContractActive,
	}
	require.NoError(t, s.SaveContract(ctx, c))

	got, err := s.GetContract(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "client-9", got.ClientID)
	assert.Equal(t, "1200.50", got.Value.String())
	assert.Equal(t, "200.50", got.DownPayment.String())
	assert.Equal(t, 10, got.NumberOfPayments)
	assert.True(t, got.StartDate.Equal(day("2026-01-15")))
	assert.Equal(t, "5.00", got.PositiveBalance.String())
	assert.Equal(t, billing.ContractActive, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetContract_MissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetContract(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveContract_UpsertUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := billing.Contract{ID: "c-1", Value: amt("100.00"), Status: billing.ContractActive}
	require.NoError(t, s.SaveContract(ctx, c))

	c.Status = billing.ContractLegal
	c.NumberOfPayments = 5
	require.NoError(t, s.SaveContract(ctx, c))

	got, err := s.GetContract(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, billing.ContractLegal, got.Status)
	assert.Equal(t, 5, got.NumberOfPayments)

	list, err := s.ListContracts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteContract_BlockedWhilePaymentsExist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{{
		ID: "p-1", ContractID: "c-1", Amount: amt("100.00"),
		DueDate: day("2026-02-01"), Status: billing.PaymentPending,
		PaymentType: billing.TypeNormalPayment,
	}}))

	err := s.DeleteContract(ctx, "c-1")
	assert.ErrorIs(t, err, billing.ErrContractHasPayments)

	require.NoError(t, s.DeletePaymentsByContract(ctx, "c-1"))
	require.NoError(t, s.DeleteContract(ctx, "c-1"))

	got, err := s.GetContract(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateContractBalances_MissingContract(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateContractBalances(context.Background(), "ghost", amt("1.00"), money.Zero)
	assert.ErrorIs(t, err, billing.ErrContractNotFound)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPaymentRoundTrip_WithNullsAndDeltas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))

	p := billing.Payment{
		ID:            "p-1",
		ContractID:    "c-1",
		Amount:        amt("33.34"),
		PaidAmount:    amt("33.34"),
		DueDate:       day("2026-02-15"),
		PaidDate:      day("2026-02-13"),
		Status:        billing.PaymentPaid,
		PaymentType:   billing.TypeNormalPayment,
		PaymentMethod: "pix",
		Notes:         "1/3",
		DeltaPositive: amt("33.34"),
		DeltaNegative: money.Zero.Sub(amt("10.00")), // negative deltas round-trip
	}
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{p}))

	got, err := s.GetPayment(ctx, "p-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "33.34", got.Amount.String())
	assert.Equal(t, "33.34", got.PaidAmount.String())
	assert.True(t, got.DueDate.Equal(day("2026-02-15")))
	assert.True(t, got.PaidDate.Equal(day("2026-02-13")))
	assert.Equal(t, billing.PaymentPaid, got.Status)
	assert.Equal(t, "pix", got.PaymentMethod)
	assert.Equal(t, "1/3", got.Notes)
	assert.Equal(t, "33.34", got.DeltaPositive.String())
	assert.Equal(t, "-10.00", got.DeltaNegative.String())
}

func TestPaymentRoundTrip_UnpaidHasZeroOptionalFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{{
		ID: "p-1", ContractID: "c-1", Amount: amt("50.00"),
		DueDate: day("2026-02-01"), Status: billing.PaymentPending,
		PaymentType: billing.TypeDownPayment,
	}}))

	got, err := s.GetPayment(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.True(t, got.PaidDate.IsZero())
	assert.Empty(t, got.PaymentMethod)
	assert.True(t, got.DeltaPositive.IsZero())
}

func TestUpdatePayment_AmountAndDueDateImmutable(t *testing.T) {
	// The update statement deliberately omits amount and due_date: a scheduled
	// obligation cannot be rewritten through the payment update path.
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{{
		ID: "p-1", ContractID: "c-1", Amount: amt("100.00"),
		DueDate: day("2026-02-01"), Status: billing.PaymentPending,
		PaymentType: billing.TypeNormalPayment,
	}}))

	mutated := billing.Payment{
		ID: "p-1", ContractID: "c-1",
		Amount:     amt("999.99"),     // must not stick
		DueDate:    day("2030-01-01"), // must not stick
		Status:     billing.PaymentPaid,
		PaidAmount: amt("100.00"),
		PaidDate:   day("2026-01-30"),
	}
	require.NoError(t, s.UpdatePayment(ctx, mutated))

	got, err := s.GetPayment(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Amount.String())
	assert.True(t, got.DueDate.Equal(day("2026-02-01")))
	assert.Equal(t, billing.PaymentPaid, got.Status)
	assert.Equal(t, "100.00", got.PaidAmount.String())
}

func TestUpdatePayment_MissingPayment(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdatePayment(context.Background(), billing.Payment{ID: "ghost"})
	assert.ErrorIs(t, err, billing.ErrPaymentNotFound)
}

func TestListPaymentsByContract_OrderedByDueDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("300.00")}))
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{
		{ID: "p-mar", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-03-01"), Status: billing.PaymentPending, PaymentType: billing.TypeNormalPayment},
		{ID: "p-jan", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-01-01"), Status: billing.PaymentPending, PaymentType: billing.TypeNormalPayment},
		{ID: "p-feb", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-02-01"), Status: billing.PaymentPending, PaymentType: billing.TypeNormalPayment},
	}))

	list, err := s.ListPaymentsByContract(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "p-jan", list[0].ID)
	assert.Equal(t, "p-feb", list[1].ID)
	assert.Equal(t, "p-mar", list[2].ID)
}

func TestListDuePending_FiltersStatusAndCutoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("400.00")}))
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{
		{ID: "p-due", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-08-01"), Status: billing.PaymentPending, PaymentType: billing.TypeNormalPayment},
		{ID: "p-future", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-10-01"), Status: billing.PaymentPending, PaymentType: billing.TypeNormalPayment},
		{ID: "p-overdue", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-07-01"), Status: billing.PaymentOverdue, PaymentType: billing.TypeNormalPayment},
		{ID: "p-paid", ContractID: "c-1", Amount: amt("100.00"), DueDate: day("2026-06-01"), Status: billing.PaymentPaid, PaymentType: billing.TypeNormalPayment},
	}))

	due, err := s.ListDuePending(ctx, day("2026-09-01"))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "p-due", due[0].ID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that updates balances and settles a payment
	// WHEN: The transaction function returns an error
	// THEN: Neither write survives

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))
	require.NoError(t, s.InsertPayments(ctx, []billing.Payment{{
		ID: "p-1", ContractID: "c-1", Amount: amt("100.00"),
		DueDate: day("2026-02-01"), Status: billing.PaymentPending,
		PaymentType: billing.TypeNormalPayment,
	}}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx billing.Store) error {
		if err := tx.UpdateContractBalances(ctx, "c-1", amt("50.00"), money.Zero); err != nil {
			return err
		}
		p, err := tx.GetPayment(ctx, "p-1")
		if err != nil {
			return err
		}
		p.Status = billing.PaymentPaid
		if err := tx.UpdatePayment(ctx, *p); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, _ := s.GetContract(ctx, "c-1")
	assert.Equal(t, "0.00", c.PositiveBalance.String())
	p, _ := s.GetPayment(ctx, "p-1")
	assert.Equal(t, billing.PaymentPending, p.Status)
}

func TestWithTx_CommitPersistsWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))

	err := s.WithTx(ctx, func(tx billing.Store) error {
		return tx.UpdateContractStatus(ctx, "c-1", billing.ContractSettled)
	})
	require.NoError(t, err)

	c, _ := s.GetContract(ctx, "c-1")
	assert.Equal(t, billing.ContractSettled, c.Status)
}

func TestWithTx_TxReadsSeeTxWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveContract(ctx, billing.Contract{ID: "c-1", Value: amt("100.00")}))

	err := s.WithTx(ctx, func(tx billing.Store) error {
		if err := tx.UpdateContractBalances(ctx, "c-1", amt("42.00"), money.Zero); err != nil {
			return err
		}
		c, err := tx.GetContract(ctx, "c-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "42.00", c.PositiveBalance.String())
		return nil
	})
	require.NoError(t, err)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_SaveListDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{ID: "h-2", Date: day("2026-12-25"), Name: "Natal"}))
	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{ID: "h-1", Date: day("2026-09-07"), Name: "Independencia"}))

	list, err := s.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Independencia", list[0].Name, "ordered by date")
	assert.Equal(t, "Natal", list[1].Name)

	require.NoError(t, s.DeleteHoliday(ctx, "h-1"))
	list, err = s.ListHolidays(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHolidays_DuplicateDateNameRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{ID: "h-1", Date: day("2026-12-25"), Name: "Natal"}))
	err := s.SaveHoliday(ctx, sqlite.Holiday{ID: "h-dup", Date: day("2026-12-25"), Name: "Natal"})
	assert.Error(t, err)
}

func TestLoadCalendar_UsesStoredHolidays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Monday 2026-09-07 declared a holiday
	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{ID: "h-1", Date: day("2026-09-07"), Name: "Independencia"}))

	cal, err := s.LoadCalendar(ctx)
	require.NoError(t, err)

	got := cal.CurrentOrLastBusinessDay(day("2026-09-07"))
	assert.True(t, got.Equal(day("2026-09-04")), "holiday Monday rolls back over the weekend to Friday")
}

// =============================================================================
// SWEEP RUNS
// =============================================================================

func TestSweepRuns_UpsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := day("2026-09-01").Add(3 * time.Hour)
	run := sqlite.SweepRun{
		ID:        "run-1",
		RunDate:   day("2026-09-01"),
		Status:    "running",
		StartedAt: &started,
	}
	require.NoError(t, s.SaveSweepRun(ctx, run))

	completed := started.Add(2 * time.Second)
	run.Status = "completed"
	run.Checked = 12
	run.Transitioned = 3
	run.CompletedAt = &completed
	require.NoError(t, s.SaveSweepRun(ctx, run))

	runs, err := s.ListSweepRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1, "upsert keeps a single record per run ID")

	got := runs[0]
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 12, got.Checked)
	assert.Equal(t, 3, got.Transitioned)
	assert.True(t, got.RunDate.Equal(day("2026-09-01")))
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
}

func TestHasCompletedSweep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.HasCompletedSweep(ctx, day("2026-09-01"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveSweepRun(ctx, sqlite.SweepRun{
		ID: "run-1", RunDate: day("2026-09-01"), Status: "failed",
	}))
	ok, err = s.HasCompletedSweep(ctx, day("2026-09-01"))
	require.NoError(t, err)
	assert.False(t, ok, "a failed run does not count")

	require.NoError(t, s.SaveSweepRun(ctx, sqlite.SweepRun{
		ID: "run-2", RunDate: day("2026-09-01"), Status: "completed",
	}))
	ok, err = s.HasCompletedSweep(ctx, day("2026-09-01"))
	require.NoError(t, err)
	assert.True(t, ok)
}
