package leave

import "time"

// ApprovedLeave aggregates approved leave and overtime for one employee-day.
type ApprovedLeave struct {
	EmployeeID            string
	Date                  time.Time
	LeaveType             *string
	Hours                 float64
	HalfDay               bool
	Paid                  bool
	ApprovedOvertimeHours *float64
}

// HoursFor converts the approval into leave hours. Explicit hours win;
// otherwise a half day is half the expected hours and a full day is all of it.
func (l ApprovedLeave) HoursFor(expectedHours float64) float64 {
	if l.LeaveType == nil {
		return 0
	}
	if l.Hours > 0 {
		return l.Hours
	}
	if l.HalfDay {
		return expectedHours / 2
	}
	return expectedHours
}
