package attendance

import (
	"context"
)

// AttendanceRepository persists derived attendance records. Records are
// write-once: a second record for the same employee and date is rejected.
type AttendanceRepository interface {
	// Create inserts the record and returns it with its generated fields.
	// Returns ErrAttendanceAlreadyExists when the employee-day is already marked.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)
}
