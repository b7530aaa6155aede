package calc

import (
	"fmt"
	"time"
)

// Month is a calendar month, independent of day and time zone.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY-MM". Anything else (including a valid date with a
// day component) is rejected.
func ParseMonth(s string) (Month, bool) {
	if len(s) != 7 {
		return Month{}, false
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, false
	}
	return Month{Year: t.Year(), Month: t.Month()}, true
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Add shifts the month by n (negative n goes back in time).
func (m Month) Add(n int) Month {
	idx := m.Year*12 + int(m.Month-1) + n
	year := idx / 12
	mon := idx % 12
	if mon < 0 {
		mon += 12
		year--
	}
	return Month{Year: year, Month: time.Month(mon + 1)}
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MonthRange returns the lookback months [target-lookback, target-1] in
// chronological order.
func MonthRange(target Month, lookback int) []Month {
	if lookback <= 0 {
		return nil
	}
	out := make([]Month, lookback)
	for i := 0; i < lookback; i++ {
		out[i] = target.Add(i - lookback)
	}
	return out
}
