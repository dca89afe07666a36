package core

import (
	"fmt"
	"time"
)

// dateLayout is the wire and storage format for calendar dates. Lexical
// order of formatted dates matches chronological order, which the store
// relies on for window queries.
const dateLayout = "2006-01-02"

// Date is a calendar date with no time component and no timezone. Two
// transactions dated the same day are in the same window regardless of
// where or when they were recorded.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a normalized date; out-of-range day/month values roll
// over the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf truncates a time instant to its calendar date, in the
// instant's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	// Reject non-normalized values such as February 30
	if NewDate(d.Year, d.Month, d.Day) != d {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthWindow returns the inclusive calendar-month window containing the
// reference instant: the first and last day of ref's month, evaluated in
// ref's location. Callers fix the location before calling; the window
// itself is location-free.
func MonthWindow(ref time.Time) (start, end Date) {
	start = NewDate(ref.Year(), ref.Month(), 1)
	// Day zero of the next month is the last day of this one.
	end = NewDate(ref.Year(), ref.Month()+1, 0)
	return start, end
}

// InWindow reports whether d falls inside [start, end], both ends
// inclusive.
func (d Date) InWindow(start, end Date) bool {
	return !d.Before(start) && !end.Before(d)
}
