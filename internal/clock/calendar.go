package clock

import (
	"context"
	"time"
)

// HolidaySource lists holiday dates ("2006-01-02") within [from, to] inclusive.
type HolidaySource interface {
	HolidayDates(ctx context.Context, from, to string) ([]string, error)
}

// Calendar answers business-day questions in a fixed civil offset.
type Calendar struct {
	loc      *time.Location
	holidays HolidaySource
}

// NewCalendar builds a calendar. holidays may be nil, in which case only
// weekends are non-working.
func NewCalendar(loc *time.Location, holidays HolidaySource) *Calendar {
	if loc == nil {
		loc = IST
	}
	return &Calendar{loc: loc, holidays: holidays}
}

func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WorkingDays counts the civil dates touched by [from, to) that are neither
// weekends nor holidays. to is exclusive, so an interval ending exactly at
// midnight does not touch the following day.
func (c *Calendar) WorkingDays(ctx context.Context, from, to time.Time) (int, error) {
	if !from.Before(to) {
		return 0, nil
	}
	first := CivilDate(from, c.loc)
	last := CivilDate(to.Add(-time.Nanosecond), c.loc)

	off := map[string]bool{}
	if c.holidays != nil {
		dates, err := c.holidays.HolidayDates(ctx, first.Format(DateLayout), last.Format(DateLayout))
		if err != nil {
			return 0, err
		}
		for _, d := range dates {
			off[d] = true
		}
	}

	n := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) || off[d.Format(DateLayout)] {
			continue
		}
		n++
	}
	return n, nil
}

// IsWorkingDay reports whether ts's civil date is a working day.
func (c *Calendar) IsWorkingDay(ctx context.Context, ts time.Time) (bool, error) {
	d := CivilDate(ts, c.loc)
	n, err := c.WorkingDays(ctx, d, d.AddDate(0, 0, 1))
	return n == 1, err
}
