/*
Package billing implements the contract installment and payment-balance engine.

PURPOSE:
  This package contains the domain types and algorithms for splitting a
  contract's value into installments and reconciling incoming payments
  against a per-contract running balance. The balance has two sides:
  PositiveBalance (credit owed to the client from overpayments) and
  NegativeBalance (debt owed by the client from underpayments).

KEY CONCEPTS IN THIS FILE (types.go):
  - Contract: The financed agreement carrying value, schedule shape, balances
  - Payment: A single installment obligation with scheduled amount and status
  - Status enums for both, matching the persisted representation

DESIGN PRINCIPLES:
  1. Exact money: every amount is a money.Amount, never a float
  2. Pure core: balance math is pure functions over value types; persistence
     is behind the Store interface
  3. One-way statuses: a paid installment stays paid until an explicit reset

INVARIANTS:
  - The installment amounts of a schedule plus the down payment sum to the
    contract value exactly, to the cent
  - PositiveBalance >= 0 and NegativeBalance >= 0 at all times; after any
    reconciliation at most one of them is > 0
  - Once a payment is paid, PaidAmount is fixed until an explicit reset

SEE ALSO:
  - schedule.go: Installment plan construction
  - balance.go: Balance reconciliation math
  - applicator.go: Orchestration over the Store
*/
package billing

import (
	"strings"
	"time"

	"github.com/warp/contract-engine/money"
)

// =============================================================================
// CONTRACT
// =============================================================================

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	// ContractActive is the normal in-force state.
	ContractActive ContractStatus = "ativo"
	// ContractSettled is terminal: every installment of the contract is paid.
	ContractSettled ContractStatus = "liquidado"
	// ContractRenegotiated marks a contract replaced by a new agreement.
	ContractRenegotiated ContractStatus = "renegociado"
	// ContractCancelled marks an administratively cancelled contract.
	ContractCancelled ContractStatus = "cancelado"
	// ContractLegal marks a contract handed to legal collection.
	ContractLegal ContractStatus = "juridico"
)

// Contract is a financed agreement with a fixed value, an installment plan
// shape, and a running debt/credit balance.
//
// Value, DownPayment, NumberOfPayments, and StartDate are fixed at creation.
// PositiveBalance, NegativeBalance, and Status mutate only through payment
// application or explicit administrative update.
type Contract struct {
	ID               string
	ClientID         string
	Value            money.Amount // total contractual amount, > 0
	DownPayment      money.Amount // optional upfront amount, 0 <= DownPayment <= Value
	NumberOfPayments int          // monthly installments, excluding down payment
	StartDate        time.Time    // zero means no schedule can be generated

	PositiveBalance money.Amount // credit accumulated from overpayments
	NegativeBalance money.Amount // debt accumulated from underpayments

	Status    ContractStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// PAYMENT (installment)
// =============================================================================

// PaymentStatus is the state of a single installment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentType distinguishes the down payment from regular installments.
// Free-form complementary types use the "comp" prefix.
type PaymentType string

const (
	TypeDownPayment   PaymentType = "downPayment"
	TypeNormalPayment PaymentType = "normalPayment"

	compPrefix = "comp"
)

// IsComplementary reports whether the type is a free-form "comp*" payment.
func (t PaymentType) IsComplementary() bool {
	return strings.HasPrefix(string(t), compPrefix)
}

// Payment is one installment obligation of a contract.
//
// Amount is the originally scheduled obligation and is immutable once created.
// PaidAmount is set only when Status is paid and records the amount attributed
// to closing this specific obligation, which is not necessarily what changed
// hands: credit used and shortfalls pushed into the contract balance both
// fold into it.
type Payment struct {
	ID         string
	ContractID string

	Amount     money.Amount
	PaidAmount money.Amount

	DueDate  time.Time
	PaidDate time.Time // zero unless paid

	Status        PaymentStatus
	PaymentType   PaymentType
	PaymentMethod string
	Notes         string

	// Net balance effect recorded at pay-time (signed, new minus old).
	// Consumed by a balance-reversing reset; zero otherwise.
	DeltaPositive money.Amount
	DeltaNegative money.Amount

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPaid reports whether this installment has been settled.
func (p Payment) IsPaid() bool { return p.Status == PaymentPaid }
