package interval

import "time"

// Min and Max stand in for unbounded window edges. They are only ever
// intersected with bounded intervals, never summed directly.
var (
	Min = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	Max = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Interval is a [Start, End) time window.
type Interval struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Duration returns End - Start, or zero for an empty interval.
func (i Interval) Duration() time.Duration {
	if !i.End.After(i.Start) {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Set is an unordered collection of intervals.
type Set []Interval

// Overlap returns the pairwise intersections of a and b. Empty intersections
// are dropped. The result carries no ordering guarantee.
func Overlap(a, b Set) Set {
	var out Set
	for _, x := range a {
		for _, y := range b {
			start := later(x.Start, y.Start)
			end := earlier(x.End, y.End)
			if end.After(start) {
				out = append(out, Interval{Start: start, End: end})
			}
		}
	}
	return out
}

// Total sums the durations of every interval in s. Intervals are assumed
// disjoint; overlapping members are counted twice.
func Total(s Set) time.Duration {
	var total time.Duration
	for _, i := range s {
		total += i.Duration()
	}
	return total
}

// Hours converts d to fractional hours.
func Hours(d time.Duration) float64 {
	return d.Seconds() / 3600
}

// Copy returns a shallow copy of s so callers can adjust bounds without
// touching the original.
func (s Set) Copy() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
