package attendance

import "errors"

var (
	ErrAttendanceAlreadyExists = errors.New("attendance already marked for this employee and date")
	ErrUnknownStatus           = errors.New("unknown attendance status")
)
