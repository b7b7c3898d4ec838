package library

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date layout accepted for request bounds.
const DateLayout = "2006-01-02"

// Request describes one aggregation.
type Request struct {
	Start   time.Time // inclusive, start of day
	End     time.Time // inclusive, the whole day counts
	GroupBy GroupBy
	Genre   string // optional case-insensitive substring
	Mood    Mood   // optional exact label
}

// ParseDate parses a calendar date in DateLayout as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Validate checks the request before any upstream call is made.
func (r Request) Validate() error {
	if truncateDay(r.Start).After(truncateDay(r.End)) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// window returns the half-open interval [start, endExclusive) covered by the request.
func (r Request) window() (time.Time, time.Time) {
	start := truncateDay(r.Start)
	end := truncateDay(r.End).AddDate(0, 0, 1)
	return start, end
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
