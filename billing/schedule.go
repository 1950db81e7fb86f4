/*
schedule.go - Installment plan construction

PURPOSE:
  Builds the ordered list of payment obligations for a new contract: an
  optional down payment due on the start date, followed by N monthly
  installments whose amounts come from splitting the remaining value at
  cent granularity.

AMOUNT RULE:
  remaining = value - downPayment, split into N parts where every part is
  floor(remaining/N) cents and the first (remaining mod N) parts carry one
  extra cent. Down payment plus installments always sum to the contract
  value exactly.

NO-OP CONTRACTS:
  A contract without a positive installment count or without a start date
  produces no installments. That is an explicit no-op, not an error: such
  contracts exist (cash sales, imported legacy rows) and must not fail
  creation.

SEE ALSO:
  - money/money.go: Split
  - applicator.go: GenerateSchedule persists the plan with rollback
*/
package billing

import (
	"fmt"
	"time"

	"github.com/warp/contract-engine/money"
)

// BuildSchedule computes the installment plan for a contract. Pure: the
// returned payments carry no IDs and are not persisted.
//
// today decides which installments are born overdue (due date already past).
func BuildSchedule(c Contract, paymentMethod string, today time.Time) ([]Payment, error) {
	if c.NumberOfPayments <= 0 || c.StartDate.IsZero() {
		return nil, nil
	}

	remaining, err := money.Subtract(c.Value, c.DownPayment)
	if err != nil {
		return nil, err
	}
	if remaining.IsNegative() {
		return nil, fmt.Errorf("%w: down payment %s exceeds contract value %s",
			ErrInvalidAmount, c.DownPayment, c.Value)
	}

	amounts, err := money.Split(remaining, c.NumberOfPayments)
	if err != nil {
		return nil, err
	}

	var plan []Payment

	if c.DownPayment.IsPositive() {
		plan = append(plan, Payment{
			ContractID:    c.ID,
			Amount:        c.DownPayment,
			DueDate:       c.StartDate,
			Status:        PaymentPending,
			PaymentType:   TypeDownPayment,
			PaymentMethod: paymentMethod,
		})
	}

	for i := 1; i <= c.NumberOfPayments; i++ {
		due := c.StartDate.AddDate(0, i, 0)
		status := PaymentPending
		if due.Before(today) {
			status = PaymentOverdue
		}
		plan = append(plan, Payment{
			ContractID:    c.ID,
			Amount:        amounts[i-1],
			DueDate:       due,
			Status:        status,
			PaymentType:   TypeNormalPayment,
			PaymentMethod: paymentMethod,
			Notes:         fmt.Sprintf("%d/%d", i, c.NumberOfPayments),
		})
	}

	return plan, nil
}
