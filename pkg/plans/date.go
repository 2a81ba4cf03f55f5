package plans

import (
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/renewals/pkg/errors"
)

// DateLayout is the canonical text form of a Date.
const DateLayout = "2006-01-02"

// excelEpoch is day zero of spreadsheet serial dates (1900 date system,
// including the historical leap-year offset).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31, the last date a spreadsheet can hold. Larger
// numbers, such as compact 20260110 dates, are rejected.
const maxSerial = 2958465

// layouts accepted by ParseDate, tried in order. Slash dates are day-first,
// the form used by the clinic exports.
var layouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// Date is a calendar date without a time component.
type Date struct {
	t time.Time
}

// NewDate returns the date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Today returns the current local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses s as a calendar date. It accepts ISO dates, timestamps,
// day-first slash dates and spreadsheet serial numbers.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, errors.NewParseError("date", "", "empty value", nil)
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if !(serial >= 1 && serial <= maxSerial) {
			return Date{}, errors.NewParseError("date", "", "serial date out of range: "+s, nil)
		}
		return DateOf(excelEpoch.AddDate(0, 0, int(serial))), nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, errors.NewParseError("date", "", "unrecognized date "+strconv.Quote(s), nil)
}

// MustParseDate is like ParseDate but panics on error. Intended for tests
// and fixed literals.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// String returns d in DateLayout, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
