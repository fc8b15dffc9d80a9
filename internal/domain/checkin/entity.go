package checkin

import "time"

type LogType string

const (
	LogTypeIn  LogType = "IN"
	LogTypeOut LogType = "OUT"
)

// Event is a raw clock punch recorded by a device or by hand.
type Event struct {
	ID         string
	EmployeeID string
	Time       time.Time
	LogType    LogType
	DeviceID   *string
}
