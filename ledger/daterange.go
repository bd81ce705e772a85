package ledger

import "time"

// =============================================================================
// DATE RANGE - Bounds every ledger query
// =============================================================================

// DateRange is an inclusive [Start, End] window at day granularity.
// Every replay and report is scoped to one; there are no unbounded scans.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and normalizes a range to whole days in UTC.
// An end before the start is rejected before any query runs.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := Day(start)
	e := Day(end)
	if e.Before(s) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: s, End: e}, nil
}

// SingleDay is the one-day range containing t.
func SingleDay(t time.Time) DateRange {
	d := Day(t)
	return DateRange{Start: d, End: d}
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// ExclusiveEnd returns the first instant after the range, for half-open
// store queries: [Start, ExclusiveEnd).
func (r DateRange) ExclusiveEnd() time.Time {
	return r.End.AddDate(0, 0, 1)
}

func (r DateRange) String() string {
	return "[" + r.Start.Format("2006-01-02") + ", " + r.End.Format("2006-01-02") + "]"
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
