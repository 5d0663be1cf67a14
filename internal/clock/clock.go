// Package clock is the single source of "now" and of civil-time arithmetic.
// All policy predicates are evaluated in one fixed offset (IST by default) so the
// result never depends on the timezone of the host process.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Clock supplies the current instant, already expressed in the civil offset.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

const istOffset = 5*3600 + 30*60

// IST is UTC+05:30.
var IST = time.FixedZone("IST", istOffset)

type systemClock struct {
	loc *time.Location
}

// New returns a wall clock anchored to loc. A nil loc means IST.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = IST
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c systemClock) Location() *time.Location { return c.loc }

// Frozen is a manually driven clock for tests and replays.
type Frozen struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

func NewFrozen(now time.Time, loc *time.Location) *Frozen {
	if loc == nil {
		loc = IST
	}
	return &Frozen{now: now.In(loc), loc: loc}
}

func (f *Frozen) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Frozen) Location() *time.Location { return f.loc }

func (f *Frozen) Set(t time.Time) {
	f.mu.Lock()
	f.now = t.In(f.loc)
	f.mu.Unlock()
}

func (f *Frozen) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// ParseOffset reads "+05:30", "-03:00", "+0530" or "Z" into a fixed zone.
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("clock: empty offset")
	}
	if s == "Z" {
		return time.UTC, nil
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("clock: offset %q must start with + or -", s)
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 4 {
		return nil, fmt.Errorf("clock: offset %q must look like +HH:MM", s)
	}
	hh, err := strconv.Atoi(body[:2])
	if err != nil {
		return nil, fmt.Errorf("clock: offset %q: %w", s, err)
	}
	mm, err := strconv.Atoi(body[2:])
	if err != nil {
		return nil, fmt.Errorf("clock: offset %q: %w", s, err)
	}
	if hh > 14 || mm > 59 {
		return nil, fmt.Errorf("clock: offset %q out of range", s)
	}
	secs := sign * (hh*3600 + mm*60)
	if secs == istOffset {
		return IST, nil
	}
	return time.FixedZone(s, secs), nil
}
