package service

import (
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
)

// calendar computes reporting windows in the office's local time zone.
//
// Timestamps (created_at) are compared as instants. Assignment dates are
// civil dates stored as midnight UTC, so their windows are built from the
// local calendar date but expressed at midnight UTC.
type calendar struct {
	now time.Time
	loc *time.Location
}

func newCalendar(now time.Time, loc *time.Location) calendar {
	if loc == nil {
		loc = time.UTC
	}
	return calendar{now: now.In(loc), loc: loc}
}

// month returns the instant window of the month offset months from now.
func (c calendar) month(offset int) port.Period {
	start := time.Date(c.now.Year(), c.now.Month()+time.Month(offset), 1, 0, 0, 0, 0, c.loc)
	return port.Period{From: start.UTC(), To: start.AddDate(0, 1, 0).UTC()}
}

// monthDates returns the civil-date window of the current month.
func (c calendar) monthDates() port.Period {
	start := time.Date(c.now.Year(), c.now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return port.Period{From: start, To: start.AddDate(0, 1, 0)}
}

// yearDates returns the civil-date window of the current year.
func (c calendar) yearDates() port.Period {
	start := time.Date(c.now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return port.Period{From: start, To: start.AddDate(1, 0, 0)}
}

// CivilDate truncates t to its calendar day at midnight UTC, the storage
// form of assignment and travel dates.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
