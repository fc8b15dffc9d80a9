package shift

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type ComputationMethod string

const (
	ComputationFixed    ComputationMethod = "Fixed"
	ComputationFlexible ComputationMethod = "Flexible"
)

var ComputationMethodValues = []string{
	string(ComputationFixed),
	string(ComputationFlexible),
}

// ShiftConfig describes one shift type. Time-of-day fields are offsets from
// the calendar date's midnight; an overnight shift ends at an offset past 24h.
// Minute fields are tolerances.
type ShiftConfig struct {
	ID                          string
	Name                        string
	StartTime                   time.Duration
	EndTime                     time.Duration
	GracePeriod                 int
	AbsentGracePeriod           int
	EarlyOutGracePeriod         int
	EarlyOutAbsentGracePeriod   int
	MaxEarlyClockIn             int
	MaxLateClockOut             int
	BreakStart                  *time.Duration
	BreakEnd                    *time.Duration
	ComputationMethod           ComputationMethod
	EnableAttendanceCalculation bool
	AdditionalSegments          []AdditionalSegment
}

// AdditionalSegment is an extra paid segment inside the same shift.
type AdditionalSegment struct {
	StartTime                 time.Duration
	EndTime                   time.Duration
	GracePeriod               int
	AbsentGracePeriod         int
	EarlyOutGracePeriod       int
	EarlyOutAbsentGracePeriod int
	MaxEarlyClockIn           int
	MaxLateClockOut           int
}

func (c ShiftConfig) IsFixed() bool {
	return c.ComputationMethod == ComputationFixed
}

func (c ShiftConfig) IsFlexible() bool {
	return c.ComputationMethod == ComputationFlexible
}

// HasBreak reports whether both break bounds are configured.
func (c ShiftConfig) HasBreak() bool {
	return c.BreakStart != nil && c.BreakEnd != nil
}

// Validate checks the shift for configurations the resolver cannot handle.
// Segments may not overlap each other, otherwise working hours would be
// counted twice.
func (c ShiftConfig) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(string(c.ComputationMethod), ComputationMethodValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "computation_method",
			Message: "computation_method must be one of: Fixed, Flexible",
		})
	}

	if c.EndTime < c.StartTime {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time must not be before start_time",
		})
	}

	minutes := []struct {
		field string
		value int
	}{
		{"grace_period", c.GracePeriod},
		{"absent_grace_period", c.AbsentGracePeriod},
		{"early_out_grace_period", c.EarlyOutGracePeriod},
		{"early_out_absent_grace_period", c.EarlyOutAbsentGracePeriod},
		{"maximum_early_clockin", c.MaxEarlyClockIn},
		{"maximum_late_clockout", c.MaxLateClockOut},
	}
	for _, m := range minutes {
		if m.value < 0 {
			errs = append(errs, validator.ValidationError{
				Field:   m.field,
				Message: m.field + " must not be negative",
			})
		}
	}

	if (c.BreakStart == nil) != (c.BreakEnd == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "break_time",
			Message: "break_time_start and break_time_end must be set together",
		})
	} else if c.HasBreak() && *c.BreakEnd < *c.BreakStart {
		errs = append(errs, validator.ValidationError{
			Field:   "break_time_end",
			Message: "break_time_end must not be before break_time_start",
		})
	}

	spans := [][2]time.Duration{{c.StartTime, c.EndTime}}
	for i, seg := range c.AdditionalSegments {
		field := fmt.Sprintf("additional_clock_times[%d]", i)
		if seg.EndTime < seg.StartTime {
			errs = append(errs, validator.ValidationError{
				Field:   field,
				Message: "end_time must not be before start_time",
			})
			continue
		}
		if seg.MaxEarlyClockIn < 0 || seg.MaxLateClockOut < 0 {
			errs = append(errs, validator.ValidationError{
				Field:   field,
				Message: "clock-in tolerances must not be negative",
			})
		}
		for _, other := range spans {
			if seg.StartTime < other[1] && other[0] < seg.EndTime {
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: "segment overlaps another segment of the shift",
				})
				break
			}
		}
		spans = append(spans, [2]time.Duration{seg.StartTime, seg.EndTime})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
