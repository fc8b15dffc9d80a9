package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/checkin"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
)

// Calculator derives and persists the attendance of a single employee-day.
type Calculator struct {
	shiftRepo      shift.ShiftRepository
	checkinRepo    checkin.CheckinRepository
	leaveRepo      leave.LeaveRepository
	holidayRepo    holiday.HolidayRepository
	attendanceRepo attendance.AttendanceRepository
}

func NewCalculator(
	shiftRepo shift.ShiftRepository,
	checkinRepo checkin.CheckinRepository,
	leaveRepo leave.LeaveRepository,
	holidayRepo holiday.HolidayRepository,
	attendanceRepo attendance.AttendanceRepository,
) *Calculator {
	return &Calculator{
		shiftRepo:      shiftRepo,
		checkinRepo:    checkinRepo,
		leaveRepo:      leaveRepo,
		holidayRepo:    holidayRepo,
		attendanceRepo: attendanceRepo,
	}
}

// ComputeDay calculates the day from raw check-ins. It returns a nil record
// and no error when the employee has no shift on date or the shift does not
// take part in attendance calculation.
func (c *Calculator) ComputeDay(ctx context.Context, employeeID string, date time.Time, runID string) (*attendance.Attendance, error) {
	cfg, err := c.shiftRepo.GetForEmployeeOnDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	if cfg == nil || !cfg.EnableAttendanceCalculation {
		return nil, nil
	}

	windows, err := BuildWindows(*cfg, date)
	if err != nil {
		return nil, err
	}

	events, err := c.checkinRepo.ListByEmployeeBetween(ctx, employeeID, windows.LookupFrom, windows.LookupTo)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}

	adj, err := c.adjustments(ctx, employeeID, windows.Date, windows.ExpectedHours)
	if err != nil {
		return nil, err
	}

	metrics := Resolve(*cfg, windows, PairEvents(events), adj)
	return c.save(ctx, employeeID, windows.Date, attendance.SourceComputed, runID, metrics)
}

// ImportDay persists a day aggregated by an external provider.
func (c *Calculator) ImportDay(ctx context.Context, employeeID string, rec stats.DailyRecord, runID string) (*attendance.Attendance, error) {
	holidays, err := c.holidayRepo.ListCategories(ctx, employeeID, rec.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	metrics := ResolveExternal(rec, holidays)
	return c.save(ctx, employeeID, midnight(rec.Date), attendance.SourceExternal, runID, metrics)
}

func (c *Calculator) adjustments(ctx context.Context, employeeID string, date time.Time, expectedHours float64) (Adjustments, error) {
	var adj Adjustments

	approved, err := c.leaveRepo.GetApproved(ctx, employeeID, date)
	if err != nil {
		return adj, fmt.Errorf("failed to get approved leave: %w", err)
	}
	if approved != nil {
		adj.LeaveHours = approved.HoursFor(expectedHours)
		adj.PaidLeave = approved.Paid
		adj.ApprovedOvertimeHours = approved.ApprovedOvertimeHours
	}

	adj.Holidays, err = c.holidayRepo.ListCategories(ctx, employeeID, date)
	if err != nil {
		return adj, fmt.Errorf("failed to list holidays: %w", err)
	}

	return adj, nil
}

func (c *Calculator) save(ctx context.Context, employeeID string, date time.Time, source attendance.Source, runID string, metrics attendance.Metrics) (*attendance.Attendance, error) {
	record := attendance.Attendance{
		EmployeeID: employeeID,
		Date:       date,
		Source:     source,
		Metrics:    metrics.Rounded(),
	}
	if runID != "" {
		record.CalculationRunID = &runID
	}

	created, err := c.attendanceRepo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return &created, nil
}
