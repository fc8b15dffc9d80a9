package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/interval"
)

// Night differential runs from 21:00 to 06:00 the next morning.
const (
	nightDifferentialStart = 21 * time.Hour
	nightDifferentialEnd   = 30 * time.Hour
)

// Windows are the named interval sets of a shift on one calendar date.
type Windows struct {
	Date              time.Time
	Regular           interval.Set
	Overtime          interval.Set
	Break             interval.Set
	NightDifferential interval.Set

	// RegularStart and RegularEnd bound every segment of the shift.
	RegularStart time.Time
	RegularEnd   time.Time

	// LookupFrom and LookupTo bound the check-ins that belong to this shift.
	LookupFrom time.Time
	LookupTo   time.Time

	TotalBreak    time.Duration
	ExpectedHours float64
}

func midnight(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// NightDifferentialWindow returns the night differential window that starts
// on date.
func NightDifferentialWindow(date time.Time) interval.Set {
	base := midnight(date)
	return interval.Set{interval.New(base.Add(nightDifferentialStart), base.Add(nightDifferentialEnd))}
}

// BuildWindows lays the shift configuration over date.
func BuildWindows(cfg shift.ShiftConfig, date time.Time) (Windows, error) {
	if err := cfg.Validate(); err != nil {
		return Windows{}, fmt.Errorf("%w: shift %q: %w", shift.ErrInvalidShift, cfg.ID, err)
	}

	base := midnight(date)
	start := base.Add(cfg.StartTime)
	end := base.Add(cfg.EndTime)

	w := Windows{
		Date:         base,
		Regular:      interval.Set{interval.New(start, end)},
		RegularStart: start,
		RegularEnd:   end,
		LookupFrom:   start.Add(-minutes(cfg.MaxEarlyClockIn)),
		LookupTo:     end.Add(minutes(cfg.MaxLateClockOut)),
	}
	span := end.Sub(start)

	for _, seg := range cfg.AdditionalSegments {
		segStart := base.Add(seg.StartTime)
		segEnd := base.Add(seg.EndTime)
		span += segEnd.Sub(segStart)

		if from := segStart.Add(-minutes(seg.MaxEarlyClockIn)); from.Before(w.LookupFrom) {
			w.LookupFrom = from
		}
		if to := segEnd.Add(minutes(seg.MaxLateClockOut)); to.After(w.LookupTo) {
			w.LookupTo = to
		}
		if segStart.Before(w.RegularStart) {
			w.RegularStart = segStart
		}
		if segEnd.After(w.RegularEnd) {
			w.RegularEnd = segEnd
		}
		w.Regular = append(w.Regular, interval.New(segStart, segEnd))
	}

	// Anything worked outside the combined regular window is overtime.
	w.Overtime = interval.Set{
		interval.New(interval.Min, w.RegularStart),
		interval.New(w.RegularEnd, interval.Max),
	}

	if cfg.HasBreak() {
		breakStart := base.Add(*cfg.BreakStart)
		breakEnd := base.Add(*cfg.BreakEnd)
		w.Break = interval.Set{interval.New(breakStart, breakEnd)}
		w.TotalBreak = breakEnd.Sub(breakStart)
	}

	w.NightDifferential = NightDifferentialWindow(base)
	w.ExpectedHours = max(interval.Hours(span-w.TotalBreak), 0)

	return w, nil
}
