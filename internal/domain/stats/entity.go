package stats

import "time"

// PunchResult is the provider's verdict on a clock-in or clock-out.
type PunchResult string

const (
	PunchNormal   PunchResult = "Normal"
	PunchLate     PunchResult = "Late in"
	PunchEarlyOut PunchResult = "Early out"
	PunchNoRecord PunchResult = "No record"
	PunchOptional PunchResult = "Optional"
)

// DailyRecord is one externally aggregated employee-day. Clock fields are
// offsets from the date's midnight; nil means the provider reported nothing.
type DailyRecord struct {
	Date          time.Time
	WorkingHours  float64
	ExpectedHours float64
	OvertimeHours float64
	LeaveHours    float64
	LeaveType     string
	InResult      PunchResult
	OutResult     PunchResult
	TimeIn        *time.Duration
	TimeOut       *time.Duration
	ShiftIn       *time.Duration
	ShiftOut      *time.Duration
}

// IsPaidLeave reports whether the leave type belongs to the paid-leave family.
func (r DailyRecord) IsPaidLeave() bool {
	return len(r.LeaveType) >= 2 && r.LeaveType[:2] == "PL"
}
