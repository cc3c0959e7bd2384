// Package period models the calendar month keys payouts are grouped by.
package period

import (
	"errors"
	"strings"
	"time"
)

const layout = "2006-01"

var ErrInvalidMonth = errors.New("invalid_month_year")

// MonthYear is a UTC calendar month formatted as YYYY-MM.
type MonthYear string

func Parse(raw string) (MonthYear, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(layout, raw)
	if err != nil {
		return "", ErrInvalidMonth
	}
	return MonthYear(t.Format(layout)), nil
}

// Of returns the month containing t, evaluated in UTC.
func Of(t time.Time) MonthYear {
	return MonthYear(t.UTC().Format(layout))
}

func (m MonthYear) String() string { return string(m) }

// Start is the first instant of the month.
func (m MonthYear) Start() time.Time {
	t, err := time.Parse(layout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// End is the first instant of the following month; months are half-open.
func (m MonthYear) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

func (m MonthYear) Previous() MonthYear {
	return Of(m.Start().AddDate(0, -1, 0))
}

func (m MonthYear) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(m.Start()) && t.Before(m.End())
}
