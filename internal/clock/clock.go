// Package clock provides the current time and calendar-date helpers.
//
// Dates (due dates, birth dates, renewal dates) are stored as midnight UTC of
// the calendar day, so comparing two dates never depends on the time of day.
package clock

import "time"

// DateLayout is the wire and form format of calendar dates.
const DateLayout = "2006-01-02"

var (
	_ Clocker = (*Clock)(nil)
	_ Clocker = Fixed{}
)

// Clocker is an interface for getting current real time.
type Clocker interface {
	Now() time.Time
}

// Clock implements the Clocker interface.
type Clock struct {
	tz *time.Location
}

// New returns a Clock reporting time in the given location.
// A nil location means time.Local.
func New(tz *time.Location) *Clock {
	if tz == nil {
		tz = time.Local
	}
	return &Clock{tz: tz}
}

// Now provides current clock time.
func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.tz)
}

// Fixed always reports the same instant. Used by tests and the demo generator.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

// Date truncates t to its calendar day, expressed as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day of the clock.
func Today(c Clocker) time.Time {
	return Date(c.Now())
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Date(t), nil
}

// FormatDate renders a calendar date, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
