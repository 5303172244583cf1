package reddit

import (
	"fmt"
	"strings"
	"time"
)

// Period is the lookback window of a fetch
type Period string

const (
	PeriodWeek     Period = "7d"
	PeriodMonth    Period = "30d"
	PeriodQuarter  Period = "90d"
	PeriodHalfYear Period = "180d"
)

var periodDays = map[Period]int{
	PeriodWeek:     7,
	PeriodMonth:    30,
	PeriodQuarter:  90,
	PeriodHalfYear: 180,
}

// ParsePeriod validates s as one of 7d, 30d, 90d or 180d
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodDays[p]; !ok {
		return "", fmt.Errorf("invalid period %q: use 7d, 30d, 90d or 180d", s)
	}
	return p, nil
}

// TimeFilter maps the period onto the listing's "t" parameter. The server
// has no bucket between month and year, so 90d and 180d both ask for a
// year and rely on Cutoff for precision.
func (p Period) TimeFilter() string {
	switch p {
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	default:
		return "year"
	}
}

// Duration returns the exact length of the period
func (p Period) Duration() time.Duration {
	return time.Duration(periodDays[p]) * 24 * time.Hour
}

// Cutoff returns the oldest creation time a post may have to be kept
func (p Period) Cutoff(now time.Time) time.Time {
	return now.Add(-p.Duration())
}
