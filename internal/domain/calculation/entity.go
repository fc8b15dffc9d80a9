package calculation

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
)

type RunStatus string

const (
	StatusPending        RunStatus = "Pending"
	StatusInProgress     RunStatus = "In Progress"
	StatusSuccess        RunStatus = "Success"
	StatusPartialSuccess RunStatus = "Partial Success"
	StatusError          RunStatus = "Error"
)

func (s RunStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusPartialSuccess || s == StatusError
}

// Run is one batch calculation over an employee set and an inclusive date range.
type Run struct {
	ID                 string
	DateFrom           time.Time
	DateTo             time.Time
	Filter             employee.Filter
	ImportFromExternal bool
	Status             RunStatus
	Message            string
	ProcessedCount     int
	TotalCount         int
	HasSuccess         bool
	HasFailure         bool
	CancelRequested    bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FinalStatus derives the terminal status from the outcome flags.
func FinalStatus(hasSuccess, hasFailure bool) RunStatus {
	switch {
	case hasSuccess && hasFailure:
		return StatusPartialSuccess
	case hasSuccess:
		return StatusSuccess
	default:
		return StatusError
	}
}

// LogEntry records the outcome of one employee-day, or of a whole employee
// when Date is nil.
type LogEntry struct {
	ID         string
	RunID      string
	EmployeeID string
	Date       *time.Time
	Success    bool
	Skipped    bool
	Error      *string
	CreatedAt  time.Time
}
