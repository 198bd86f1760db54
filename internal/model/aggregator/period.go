package aggregator

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// Period is a calendar month in a given location.
type Period struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

func NewPeriod(year int, month time.Month, loc *time.Location) Period {
	if loc == nil {
		loc = time.Local
	}
	// normalizes out of range months such as 13 or 0
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{Year: start.Year(), Month: start.Month(), Location: loc}
}

// PeriodOf returns the month containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return NewPeriod(t.Year(), t.Month(), t.Location())
}

// Bounds returns the first instant of the month and the first instant of the
// following month.
func (p Period) Bounds() (start, end time.Time) {
	start = now.With(time.Date(p.Year, p.Month, 1, 12, 0, 0, 0, p.location())).BeginningOfMonth()
	return start, start.AddDate(0, 1, 0)
}

func (p Period) Contains(t time.Time) bool {
	start, end := p.Bounds()
	return !t.Before(start) && t.Before(end)
}

func (p Period) AddMonths(n int) Period {
	return NewPeriod(p.Year, p.Month+time.Month(n), p.location())
}

func (p Period) Label() string {
	return p.Month.String()[:3]
}

func (p Period) String() string {
	return fmt.Sprintf("%02d.%d", int(p.Month), p.Year)
}

func (p Period) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}
