package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/interval"
)

// ResolveExternal maps a provider's daily record onto attendance metrics.
// Status follows the same precedence as Resolve, driven by the reported
// figures and punch results instead of work intervals.
func ResolveExternal(rec stats.DailyRecord, holidays []holiday.Category) attendance.Metrics {
	m := attendance.Metrics{
		WorkingHours:  max(rec.WorkingHours, 0),
		ExpectedHours: max(rec.ExpectedHours, 0),
		OvertimeHours: max(rec.OvertimeHours, 0),
		LateEntry:     rec.InResult == stats.PunchLate,
		EarlyExit:     rec.OutResult == stats.PunchEarlyOut,
	}
	applyHolidays(&m, holidays)

	if m.LateEntry && rec.TimeIn != nil && rec.ShiftIn != nil && *rec.TimeIn > *rec.ShiftIn {
		m.LateInHours = interval.Hours(*rec.TimeIn - *rec.ShiftIn)
	}

	if (rec.InResult == stats.PunchOptional || rec.OutResult == stats.PunchOptional) && rec.LeaveType == "" {
		m.RestDay = true
	}

	switch {
	case rec.LeaveHours > 0:
		blendLeave(&m, rec.LeaveHours, rec.IsPaidLeave())
	case m.RestDay && m.WorkingHours == 0 && m.OvertimeHours == 0:
		m.Status = attendance.StatusRestDay
	case missingPunch(rec.InResult) || missingPunch(rec.OutResult):
		m.Status = attendance.StatusAbsent
		m.WorkingHours = 0
	default:
		m.Status = attendance.StatusPresent
		m.UndertimeHours = max(m.ExpectedHours-m.WorkingHours, 0)
	}

	if rec.TimeIn != nil && rec.TimeOut != nil {
		base := midnight(rec.Date)
		in := base.Add(*rec.TimeIn)
		out := base.Add(*rec.TimeOut)
		if !out.After(in) {
			out = out.Add(24 * time.Hour)
		}
		night := NightDifferentialWindow(base)

		worked := interval.Set{interval.New(in, out)}
		m.NightDifferentialHours = interval.Hours(interval.Total(interval.Overlap(worked, night)))

		otStart := out.Add(-time.Duration(m.OvertimeHours * float64(time.Hour)))
		if otStart.Before(in) {
			otStart = in
		}
		overtime := interval.Set{interval.New(otStart, out)}
		m.NightDifferentialOvertimeHours = interval.Hours(interval.Total(interval.Overlap(overtime, night)))
	}

	return m
}

func missingPunch(r stats.PunchResult) bool {
	return r == "" || r == stats.PunchNoRecord
}
