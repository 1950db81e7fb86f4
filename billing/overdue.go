/*
overdue.go - Overdue transition compute

PURPOSE:
  The pure half of the daily overdue sweep: given a set of payments and
  today's date, decide which pending installments have lapsed into overdue.
  The apply half lives on the Applicator; the trigger lives in api/sweeper.go.

IDEMPOTENCE:
  Already-overdue and paid payments are never selected, so running the sweep
  twice on the same day selects nothing the second time. The transition has
  no balance side effects.
*/
package billing

import "time"

// OverdueIDs returns the IDs of pending payments whose due date has passed.
func OverdueIDs(payments []Payment, today time.Time) []string {
	var ids []string
	for _, p := range payments {
		if p.Status == PaymentPending && p.DueDate.Before(today) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
