package library

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GroupBy selects how entries are bucketed into periods.
type GroupBy string

// Grouping modes.
const (
	GroupMonthly  GroupBy = "monthly"
	GroupSeasonal GroupBy = "seasonal"
	GroupYearly   GroupBy = "yearly"
)

// ErrInvalidGroupBy is returned by ParseGroupByStrict for unknown modes.
var ErrInvalidGroupBy = errors.New("invalid group by")

// ParseGroupBy parses a grouping mode. Unknown values fall back to yearly.
func ParseGroupBy(s string) GroupBy {
	g, err := ParseGroupByStrict(s)
	if err != nil {
		return GroupYearly
	}
	return g
}

// ParseGroupByStrict parses a grouping mode, rejecting unknown values.
func ParseGroupByStrict(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupMonthly, GroupSeasonal, GroupYearly:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGroupBy, s)
	}
}

// Season returns the meteorological season name for a month.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

// KeyFor returns the period key for t under the given grouping mode.
//
// Seasonal keys use the calendar year of t itself, so December 2024 and
// January 2024 both land in "Winter 2024".
func KeyFor(t time.Time, g GroupBy) string {
	switch g {
	case GroupMonthly:
		return t.Format("January 2006")
	case GroupSeasonal:
		return Season(t.Month()) + " " + strconv.Itoa(t.Year())
	default:
		return strconv.Itoa(t.Year())
	}
}
