/*
balance.go - Payment-balance reconciliation math

PURPOSE:
  Pure functions that compute the outcome of applying a payment against an
  installment: the new contract balances, the paid amount attributed to the
  installment, and whether the obligation was covered in full.

  The contract balance is a simplified two-sided ledger:
    Positive: credit owed to the client (from overpayments)
    Negative: debt owed by the client (from underpayments)

RECONCILIATION RULE:
  Money received first resolves outstanding debt, then credits the positive
  balance. Shortfalls first consume nothing (credit use is explicit), then
  accrue debt. A single reconciliation therefore never leaves both sides
  positive.

PARTIAL PAYMENTS:
  A manual payment below the obligation still settles the installment while
  the shortfall moves into the contract's negative balance. This is the
  system's business rule: the installment is closed, the debt lives on the
  contract. Settlement.PaidInFull distinguishes the two outcomes.

PURITY:
  Input state -> output state. No I/O, no clock. The applicator wraps these
  in a storage transaction so the read-compute-write on the contract row is
  atomic.

SEE ALSO:
  - applicator.go: Persists settlements, stamps paid dates
  - types.go: Contract balance fields
*/
package billing

import (
	"fmt"

	"github.com/warp/contract-engine/money"
)

// =============================================================================
// BALANCE STATE
// =============================================================================

// BalanceState is the two-sided running balance of a contract.
type BalanceState struct {
	Positive money.Amount // credit owed to the client
	Negative money.Amount // debt owed by the client
}

// Settlement is the computed outcome of applying one payment.
type Settlement struct {
	State      BalanceState
	PaidAmount money.Amount // attributed to closing the installment
	PaidInFull bool         // false marks a shortfall settlement
	Shortfall  money.Amount // debt added by this settlement, zero when full

	// Net balance effect (new minus old), recorded so a balance-reversing
	// reset can undo exactly what this settlement did. Signed.
	DeltaPositive money.Amount
	DeltaNegative money.Amount
}

// absorb applies a received sum to the balance: outstanding debt is resolved
// first, any leftover credits the positive side.
func absorb(state BalanceState, sum money.Amount) BalanceState {
	if state.Negative.IsPositive() {
		offset := sum.Min(state.Negative)
		leftover := sum.Sub(offset)
		return BalanceState{
			Positive: state.Positive.Add(leftover),
			Negative: state.Negative.Sub(offset),
		}
	}
	return BalanceState{
		Positive: state.Positive.Add(sum),
		Negative: state.Negative,
	}
}

// withDeltas fills in the settlement's net effect against the prior state.
func withDeltas(s Settlement, before BalanceState) Settlement {
	s.DeltaPositive = s.State.Positive.Sub(before.Positive)
	s.DeltaNegative = s.State.Negative.Sub(before.Negative)
	return s
}

// =============================================================================
// ENTRY POINT A - Automatic full payment at the scheduled amount
// =============================================================================

// SettleFull computes the outcome of paying an installment at exactly its
// scheduled amount. The received sum resolves debt first, then credits.
func SettleFull(original money.Amount, state BalanceState) Settlement {
	return withDeltas(Settlement{
		State:      absorb(state, original),
		PaidAmount: original,
		PaidInFull: true,
	}, state)
}

// =============================================================================
// ENTRY POINT B - Manual payment with explicit amount and credit use
// =============================================================================

// SettleManual computes the outcome of a manual payment of amount against an
// installment of original, optionally consuming useCredit from the contract's
// positive balance first.
//
// Three cases against the credit-reduced obligation:
//   - amount below it: shortfall settlement, the gap accrues as debt
//   - amount equal: clean settlement
//   - amount above it: the excess resolves debt then credits
func SettleManual(original money.Amount, state BalanceState, amount, useCredit money.Amount) (Settlement, error) {
	if !amount.IsPositive() {
		return Settlement{}, fmt.Errorf("%w: payment amount must be positive, got %s", ErrInvalidAmount, amount)
	}
	if useCredit.IsNegative() {
		return Settlement{}, fmt.Errorf("%w: credit use cannot be negative, got %s", ErrInvalidAmount, useCredit)
	}
	if useCredit.GreaterThan(state.Positive) {
		return Settlement{}, fmt.Errorf("%w: requested %s, available %s",
			ErrInsufficientBalance, useCredit, state.Positive)
	}

	obligation := original.Sub(useCredit).Max(money.Zero)
	base := BalanceState{
		Positive: state.Positive.Sub(useCredit),
		Negative: state.Negative,
	}

	switch {
	case amount.LessThan(obligation):
		shortfall := obligation.Sub(amount)
		return withDeltas(Settlement{
			State: BalanceState{
				Positive: base.Positive,
				Negative: base.Negative.Add(shortfall),
			},
			PaidAmount: amount.Add(useCredit),
			PaidInFull: false,
			Shortfall:  shortfall,
		}, state), nil

	case amount.Equal(obligation):
		return withDeltas(Settlement{
			State:      base,
			PaidAmount: original,
			PaidInFull: true,
		}, state), nil

	default: // amount > obligation
		excess := amount.Sub(obligation)
		return withDeltas(Settlement{
			State:      absorb(base, excess),
			PaidAmount: original,
			PaidInFull: true,
		}, state), nil
	}
}

// =============================================================================
// REVERSAL - Undo a settlement's balance effect
// =============================================================================

// Unwind removes a settlement's recorded net effect from the current state.
// Intervening settlements may have spent what this one credited, so a side
// pushed below zero overflows onto the opposite side, then the two sides are
// netted against each other. Both sides stay non-negative and at most one
// ends up positive.
func Unwind(state BalanceState, deltaPositive, deltaNegative money.Amount) BalanceState {
	pos := state.Positive.Sub(deltaPositive)
	neg := state.Negative.Sub(deltaNegative)

	if pos.IsNegative() {
		neg = neg.Add(money.Zero.Sub(pos))
		pos = money.Zero
	}
	if neg.IsNegative() {
		pos = pos.Add(money.Zero.Sub(neg))
		neg = money.Zero
	}

	offset := pos.Min(neg)
	return BalanceState{
		Positive: pos.Sub(offset),
		Negative: neg.Sub(offset),
	}
}
