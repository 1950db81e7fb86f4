/*
calendar.go - Business-day calendar

PURPOSE:
  Paid dates are stamped with the current or most recent business day, never
  a weekend or holiday. This file defines the calendar contract and the
  default weekend+holiday implementation.

DESIGN:
  The engine only needs one operation: roll a date back to the nearest
  business day at or before it. Holiday data is supplied by the caller
  (the sqlite store persists a holidays table).

SEE ALSO:
  - applicator.go: Stamps PaidDate via the calendar
  - store/sqlite: Holiday persistence
*/
package billing

import "time"

// Calendar resolves paid-date stamping.
type Calendar interface {
	// CurrentOrLastBusinessDay returns t's date if it is a business day,
	// otherwise the closest earlier business day.
	CurrentOrLastBusinessDay(t time.Time) time.Time
}

// WeekendCalendar treats Saturday, Sunday, and an optional holiday set as
// non-business days.
type WeekendCalendar struct {
	// Holidays maps "2006-01-02" dates to holiday names. Nil means none.
	Holidays map[string]string
}

func (c *WeekendCalendar) CurrentOrLastBusinessDay(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for !c.isBusinessDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func (c *WeekendCalendar) isBusinessDay(day time.Time) bool {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if c.Holidays != nil {
		if _, ok := c.Holidays[day.Format("2006-01-02")]; ok {
			return false
		}
	}
	return true
}
