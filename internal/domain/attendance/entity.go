package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the final resolution of one employee-day.
type Status uint8

const (
	StatusPresent Status = iota + 1
	StatusAbsent
	StatusOnLeave
	StatusHalfDay
	StatusRestDay
)

var statusNames = map[Status]string{
	StatusPresent: "Present",
	StatusAbsent:  "Absent",
	StatusOnLeave: "On Leave",
	StatusHalfDay: "Half Day",
	StatusRestDay: "Rest Day",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func ParseStatus(v string) (Status, error) {
	for s, name := range statusNames {
		if name == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Source string

const (
	SourceComputed Source = "computed"
	SourceExternal Source = "external"
)

// Metrics are the derived figures of one employee-day. Hours are fractional
// and never negative.
type Metrics struct {
	Status                         Status
	WorkingHours                   float64
	ExpectedHours                  float64
	OvertimeHours                  float64
	UndertimeHours                 float64
	LeaveHours                     float64
	PaidLeaveHours                 float64
	NightDifferentialHours         float64
	NightDifferentialOvertimeHours float64
	LateInHours                    float64
	LateEntry                      bool
	EarlyExit                      bool
	LegalHoliday                   bool
	SpecialHoliday                 bool
	RestDay                        bool
	ShiftID                        *string
}

const hourPrecision = 4

// Rounded returns a copy with every hour figure rounded for storage.
func (m Metrics) Rounded() Metrics {
	round := func(v float64) float64 {
		return decimal.NewFromFloat(v).Round(hourPrecision).InexactFloat64()
	}
	m.WorkingHours = round(m.WorkingHours)
	m.ExpectedHours = round(m.ExpectedHours)
	m.OvertimeHours = round(m.OvertimeHours)
	m.UndertimeHours = round(m.UndertimeHours)
	m.LeaveHours = round(m.LeaveHours)
	m.PaidLeaveHours = round(m.PaidLeaveHours)
	m.NightDifferentialHours = round(m.NightDifferentialHours)
	m.NightDifferentialOvertimeHours = round(m.NightDifferentialOvertimeHours)
	m.LateInHours = round(m.LateInHours)
	return m
}

// Attendance is the persisted record for one employee on one date.
type Attendance struct {
	ID               string
	EmployeeID       string
	CompanyID        *string
	Date             time.Time
	Source           Source
	CalculationRunID *string
	Metrics
	CreatedAt time.Time
	UpdatedAt time.Time
}
