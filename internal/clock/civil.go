package clock

import (
	"fmt"
	"strings"
	"time"
)

// CivilDate is midnight of ts's calendar day in loc.
func CivilDate(ts time.Time, loc *time.Location) time.Time {
	t := ts.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func MonthOf(ts time.Time, loc *time.Location) time.Month { return ts.In(loc).Month() }

func YearOf(ts time.Time, loc *time.Location) int { return ts.In(loc).Year() }

// MonthKey formats the civil month of ts as "2006-01".
func MonthKey(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format(MonthLayout)
}

// MonthBounds returns the half-open [start, end) instants of ts's civil month.
func MonthBounds(ts time.Time, loc *time.Location) (time.Time, time.Time) {
	t := ts.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Overlaps reports whether [aFrom, aTo) and [bFrom, bTo) share an instant.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return aFrom.Before(bTo) && bFrom.Before(aTo)
}

// TimeOfDay is a minute-resolution wall time, counted in minutes after midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay { return TimeOfDay(hour*60 + minute) }

// TimeOfDayOf drops seconds: 17:30:59 is 17:30.
func TimeOfDayOf(ts time.Time, loc *time.Location) TimeOfDay {
	t := ts.In(loc)
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("clock: time of day %q: want HH:MM", s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Window is an inclusive [From, To] range of wall times.
type Window struct {
	From TimeOfDay
	To   TimeOfDay
}

// ParseWindow reads "09:30-17:30".
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("clock: window %q: want HH:MM-HH:MM", s)
	}
	from, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return Window{}, err
	}
	to, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return Window{}, err
	}
	if to < from {
		return Window{}, fmt.Errorf("clock: window %q ends before it starts", s)
	}
	return Window{From: from, To: to}, nil
}

func (w Window) Contains(ts time.Time, loc *time.Location) bool {
	tod := TimeOfDayOf(ts, loc)
	return tod >= w.From && tod <= w.To
}

func (w Window) String() string { return w.From.String() + "-" + w.To.String() }

// FormatInterval renders [from, to) compactly for user messages, e.g.
// "2026-01-22 09:20-11:20" or "2026-01-22 09:20 - 2026-01-23 11:20".
func FormatInterval(from, to time.Time, loc *time.Location) string {
	f, t := from.In(loc), to.In(loc)
	if CivilDate(f, loc).Equal(CivilDate(t, loc)) {
		return f.Format("2006-01-02 15:04") + "-" + t.Format("15:04")
	}
	return f.Format("2006-01-02 15:04") + " - " + t.Format("2006-01-02 15:04")
}
