package attendance

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/interval"
)

// Adjustments are the approvals and calendar facts that apply to one employee-day.
type Adjustments struct {
	LeaveHours            float64
	PaidLeave             bool
	ApprovedOvertimeHours *float64
	Holidays              []holiday.Category
}

// Resolve derives the attendance metrics of one employee-day from the shift
// windows and the paired work intervals. work is not modified.
func Resolve(cfg shift.ShiftConfig, w Windows, work interval.Set, adj Adjustments) attendance.Metrics {
	m := attendance.Metrics{
		ExpectedHours:  w.ExpectedHours,
		UndertimeHours: w.ExpectedHours,
	}
	if cfg.ID != "" {
		id := cfg.ID
		m.ShiftID = &id
	}
	applyHolidays(&m, adj.Holidays)

	if len(work) == 0 {
		switch {
		case adj.LeaveHours > 0:
			m.Status = attendance.StatusOnLeave
		case m.RestDay:
			m.Status = attendance.StatusRestDay
			m.UndertimeHours = 0
		default:
			m.Status = attendance.StatusAbsent
			m.UndertimeHours = 0
		}
	} else {
		m.Status = attendance.StatusPresent
		if cfg.IsFlexible() {
			m.UndertimeHours = 0
		}

		work = work.Copy()
		first, last := edges(work)

		if work[first].Start.After(w.RegularStart) {
			late := work[first].Start.Sub(w.RegularStart)
			if late <= minutes(cfg.GracePeriod) {
				work[first].Start = w.RegularStart
				late = 0
			} else if cfg.IsFixed() {
				m.LateEntry = true
				m.LateInHours = interval.Hours(late)
			}
			if late > minutes(cfg.AbsentGracePeriod) {
				m.Status = attendance.StatusAbsent
			}
		}

		if work[last].End.Before(w.RegularEnd) {
			early := w.RegularEnd.Sub(work[last].End)
			if early <= minutes(cfg.EarlyOutGracePeriod) {
				work[last].End = w.RegularEnd
				early = 0
			} else if cfg.IsFixed() {
				m.EarlyExit = true
			}
			if early > minutes(cfg.EarlyOutAbsentGracePeriod) {
				m.Status = attendance.StatusAbsent
			}
		}

		regular := interval.Overlap(work, w.Regular)
		overtime := interval.Overlap(work, w.Overtime)
		worked := interval.Total(regular) - interval.Total(interval.Overlap(work, w.Break))

		m.WorkingHours = max(interval.Hours(worked), 0)
		m.OvertimeHours = interval.Hours(interval.Total(overtime))
		m.NightDifferentialHours = interval.Hours(interval.Total(interval.Overlap(regular, w.NightDifferential)))
		m.NightDifferentialOvertimeHours = interval.Hours(interval.Total(interval.Overlap(overtime, w.NightDifferential)))

		if cfg.IsFixed() {
			m.UndertimeHours = max(m.ExpectedHours-m.WorkingHours, 0)
		}
	}

	if adj.ApprovedOvertimeHours != nil && *adj.ApprovedOvertimeHours >= 0 {
		m.OvertimeHours = min(m.OvertimeHours, *adj.ApprovedOvertimeHours)
	}

	if adj.LeaveHours > 0 {
		blendLeave(&m, adj.LeaveHours, adj.PaidLeave)
		m.UndertimeHours = max(m.UndertimeHours-adj.LeaveHours, 0)
	}

	return m
}

// blendLeave turns a day with leave into HalfDay or OnLeave. It runs after the
// absence checks, so leave can lift an Absent day but never the reverse.
func blendLeave(m *attendance.Metrics, hours float64, paid bool) {
	m.LeaveHours = hours
	if m.WorkingHours > 0 || m.OvertimeHours > 0 {
		m.Status = attendance.StatusHalfDay
	} else {
		m.Status = attendance.StatusOnLeave
	}
	if paid {
		m.PaidLeaveHours = m.LeaveHours
		m.LeaveHours = 0
	}
}

func applyHolidays(m *attendance.Metrics, categories []holiday.Category) {
	for _, c := range categories {
		switch {
		case c.IsLegal():
			m.LegalHoliday = true
		case c.IsSpecial():
			m.SpecialHoliday = true
		case c.IsRestDay():
			m.RestDay = true
		}
	}
}

// edges returns the indexes of the earliest-starting and latest-ending intervals.
func edges(work interval.Set) (first, last int) {
	for i, iv := range work {
		if iv.Start.Before(work[first].Start) {
			first = i
		}
		if iv.End.After(work[last].End) {
			last = i
		}
	}
	return first, last
}
