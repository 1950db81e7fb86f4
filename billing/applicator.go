/*
applicator.go - Payment application orchestration

PURPOSE:
  Wires the pure balance math to persistence. Three caller-facing operations:

    GenerateSchedule    build and persist a contract's installment plan
    MarkFullyPaid       one-click payment at the scheduled amount
    ApplyManualPayment  explicit amount, optional use of existing credit

  plus ResetPayment (un-pay) and SweepOverdue (daily batch transition).

TRANSACTIONAL SHAPE:
  Every payment application runs inside Store.WithTx: read payment and
  contract, compute the settlement in memory, write payment and contract
  balances, evaluate liquidation. Validation happens before any write; a
  failed application mutates nothing.

LIQUIDATION:
  After every successful application the contract's payments are re-read
  inside the same transaction; if all are paid the contract transitions to
  liquidado. The check is derived and idempotent - calling it redundantly is
  safe.

RESET POLICY:
  The un-pay path clears PaidDate/PaidAmount and returns the status to
  pending. Whether the settlement's balance effect is also undone is an
  explicit policy: ReversalNone leaves balances untouched (parity with the
  source ERP this engine replaces), ReversalFull unwinds the recorded net
  effect.

SEE ALSO:
  - balance.go: SettleFull / SettleManual / Unwind
  - schedule.go: BuildSchedule
  - api/sweeper.go: Daily trigger for SweepOverdue
*/
package billing

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/contract-engine/money"
)

// ReversalPolicy controls whether ResetPayment undoes balance effects.
type ReversalPolicy int

const (
	// ReversalNone clears the payment but leaves contract balances as they
	// are. Matches the behavior of the system this engine replaces.
	ReversalNone ReversalPolicy = iota
	// ReversalFull unwinds the settlement's recorded net balance effect.
	ReversalFull
)

// Applicator orchestrates schedule generation and payment application
// against a transactional store.
type Applicator struct {
	Store    TxStore
	Reversal ReversalPolicy

	// Now is the clock; overridable in tests. Defaults to time.Now.
	Now func() time.Time

	// calendar is swapped at runtime when holidays change while payment
	// requests read it concurrently, so access goes through calMu.
	calMu    sync.RWMutex
	calendar Calendar
}

// NewApplicator creates an applicator with the default weekend calendar and
// no-reversal reset policy.
func NewApplicator(store TxStore) *Applicator {
	return &Applicator{
		Store:    store,
		Now:      time.Now,
		calendar: &WeekendCalendar{},
	}
}

// SetCalendar replaces the business-day calendar. Safe to call while payment
// applications are in flight.
func (a *Applicator) SetCalendar(cal Calendar) {
	a.calMu.Lock()
	defer a.calMu.Unlock()
	a.calendar = cal
}

// businessDay stamps t through the current calendar.
func (a *Applicator) businessDay(t time.Time) time.Time {
	a.calMu.RLock()
	defer a.calMu.RUnlock()
	return a.calendar.CurrentOrLastBusinessDay(t)
}

// Result is returned by every payment-facing operation.
type Result struct {
	Payment         Payment
	ContractUpdated bool
	Message         string
}

func (a *Applicator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// =============================================================================
// SCHEDULE GENERATION
// =============================================================================

// GenerateSchedule builds and persists the installment plan for a contract.
// Returns the persisted payments, or nil when the contract's shape produces
// no installments.
//
// If persistence fails midway, every installment already written for the
// contract is deleted before the error surfaces - a partial schedule never
// survives.
func (a *Applicator) GenerateSchedule(ctx context.Context, contractID, paymentMethod string) ([]Payment, error) {
	c, err := a.Store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, contractID)
	}

	// Born-overdue stamping is a date comparison; the wall clock's time of
	// day must not push an installment due today into overdue.
	today := a.now().UTC().Truncate(24 * time.Hour)

	plan, err := BuildSchedule(*c, paymentMethod, today)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, nil
	}

	created := a.now()
	for i := range plan {
		plan[i].ID = uuid.NewString()
		plan[i].CreatedAt = created
		plan[i].UpdatedAt = created
	}

	if err := a.Store.InsertPayments(ctx, plan); err != nil {
		genErr := &ScheduleGenerationError{ContractID: c.ID, Cause: err, RolledBack: true}
		if delErr := a.Store.DeletePaymentsByContract(ctx, c.ID); delErr != nil {
			genErr.RolledBack = false
			log.Printf("[Schedule] Rollback failed for contract %s: %v", c.ID, delErr)
		}
		return nil, genErr
	}

	return plan, nil
}

// =============================================================================
// PAYMENT APPLICATION
// =============================================================================

// MarkFullyPaid settles an installment at exactly its scheduled amount.
func (a *Applicator) MarkFullyPaid(ctx context.Context, paymentID string) (*Result, error) {
	var result *Result
	err := a.Store.WithTx(ctx, func(s Store) error {
		p, c, err := a.loadForApplication(ctx, s, paymentID)
		if err != nil {
			return err
		}

		settlement := SettleFull(p.Amount, BalanceState{
			Positive: c.PositiveBalance,
			Negative: c.NegativeBalance,
		})

		r, err := a.commitSettlement(ctx, s, p, c, settlement, p.PaymentMethod)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// ApplyManualPayment settles an installment with an explicit amount,
// optionally consuming useCredit from the contract's positive balance.
func (a *Applicator) ApplyManualPayment(ctx context.Context, paymentID string, amount, useCredit money.Amount, paymentMethod string) (*Result, error) {
	var result *Result
	err := a.Store.WithTx(ctx, func(s Store) error {
		p, c, err := a.loadForApplication(ctx, s, paymentID)
		if err != nil {
			return err
		}

		settlement, err := SettleManual(p.Amount, BalanceState{
			Positive: c.PositiveBalance,
			Negative: c.NegativeBalance,
		}, amount, useCredit)
		if err != nil {
			if useCredit.GreaterThan(c.PositiveBalance) {
				return &InsufficientBalanceError{
					ContractID: c.ID,
					Available:  c.PositiveBalance,
					Requested:  useCredit,
				}
			}
			return err
		}

		r, err := a.commitSettlement(ctx, s, p, c, settlement, paymentMethod)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// loadForApplication fetches the payment and its contract, enforcing the
// not-found and already-paid guards before any computation.
func (a *Applicator) loadForApplication(ctx context.Context, s Store, paymentID string) (*Payment, *Contract, error) {
	p, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if p.IsPaid() {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyPaid, paymentID)
	}

	c, err := s.GetContract(ctx, p.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrContractNotFound, p.ContractID)
	}
	return p, c, nil
}

// commitSettlement writes the new balances and the settled payment, then
// evaluates liquidation. Runs inside the caller's transaction.
func (a *Applicator) commitSettlement(ctx context.Context, s Store, p *Payment, c *Contract, settlement Settlement, paymentMethod string) (*Result, error) {
	if err := s.UpdateContractBalances(ctx, c.ID, settlement.State.Positive, settlement.State.Negative); err != nil {
		return nil, err
	}

	now := a.now()
	p.Status = PaymentPaid
	p.PaidAmount = settlement.PaidAmount
	p.PaidDate = a.businessDay(now)
	p.PaymentMethod = paymentMethod
	p.DeltaPositive = settlement.DeltaPositive
	p.DeltaNegative = settlement.DeltaNegative
	p.UpdatedAt = now
	if err := s.UpdatePayment(ctx, *p); err != nil {
		return nil, err
	}

	settled, err := a.evaluateLiquidation(ctx, s, c)
	if err != nil {
		return nil, err
	}

	msg := "payment settled"
	if !settlement.PaidInFull {
		msg = fmt.Sprintf("payment settled with shortfall %s moved to contract debt", settlement.Shortfall)
	}
	if settled {
		msg += "; contract liquidated"
	}

	return &Result{Payment: *p, ContractUpdated: true, Message: msg}, nil
}

// evaluateLiquidation transitions the contract to liquidado when every
// installment is paid. Idempotent: already-settled contracts are left alone.
func (a *Applicator) evaluateLiquidation(ctx context.Context, s Store, c *Contract) (bool, error) {
	if c.Status == ContractSettled {
		return false, nil
	}

	payments, err := s.ListPaymentsByContract(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if len(payments) == 0 {
		return false, nil
	}
	for _, p := range payments {
		if !p.IsPaid() {
			return false, nil
		}
	}

	if err := s.UpdateContractStatus(ctx, c.ID, ContractSettled); err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// RESET (un-pay)
// =============================================================================

// ResetPayment returns an installment to pending, clearing its paid date and
// paid amount. Under ReversalFull the settlement's recorded balance effect is
// unwound; under ReversalNone balances keep the pay-time mutation. A settled
// contract reopens to ativo either way.
func (a *Applicator) ResetPayment(ctx context.Context, paymentID string) (*Result, error) {
	var result *Result
	err := a.Store.WithTx(ctx, func(s Store) error {
		p, err := s.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}

		wasPaid := p.IsPaid()
		deltaPos, deltaNeg := p.DeltaPositive, p.DeltaNegative

		p.Status = PaymentPending
		p.PaidAmount = money.Zero
		p.PaidDate = time.Time{}
		p.DeltaPositive = money.Zero
		p.DeltaNegative = money.Zero
		p.UpdatedAt = a.now()
		if err := s.UpdatePayment(ctx, *p); err != nil {
			return err
		}

		contractUpdated := false
		if wasPaid {
			c, err := s.GetContract(ctx, p.ContractID)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("%w: %s", ErrContractNotFound, p.ContractID)
			}

			if a.Reversal == ReversalFull {
				state := Unwind(BalanceState{
					Positive: c.PositiveBalance,
					Negative: c.NegativeBalance,
				}, deltaPos, deltaNeg)
				if err := s.UpdateContractBalances(ctx, c.ID, state.Positive, state.Negative); err != nil {
					return err
				}
				contractUpdated = true
			}

			if c.Status == ContractSettled {
				if err := s.UpdateContractStatus(ctx, c.ID, ContractActive); err != nil {
					return err
				}
				contractUpdated = true
			}
		}

		result = &Result{Payment: *p, ContractUpdated: contractUpdated, Message: "payment reset to pending"}
		return nil
	})
	return result, err
}

// =============================================================================
// OVERDUE SWEEP
// =============================================================================

// SweepStats summarizes one overdue sweep.
type SweepStats struct {
	Checked      int
	Transitioned int
	Failed       int
}

// SweepOverdue moves every pending payment whose due date has passed into
// overdue. Best-effort: a failure on one record is logged and the rest
// proceed. No balance side effects; safe to run repeatedly.
func (a *Applicator) SweepOverdue(ctx context.Context, today time.Time) (SweepStats, error) {
	due, err := a.Store.ListDuePending(ctx, today)
	if err != nil {
		return SweepStats{}, err
	}

	stats := SweepStats{Checked: len(due)}
	for _, p := range due {
		p.Status = PaymentOverdue
		p.UpdatedAt = a.now()
		if err := a.Store.UpdatePayment(ctx, p); err != nil {
			log.Printf("[Sweep] Failed to mark payment %s overdue: %v", p.ID, err)
			stats.Failed++
			continue
		}
		stats.Transitioned++
	}
	return stats, nil
}
