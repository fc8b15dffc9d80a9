package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const day = 24 * time.Hour

type shiftRepositoryImpl struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) shift.ShiftRepository {
	return &shiftRepositoryImpl{db: db}
}

// GetForEmployeeOnDate implements shift.ShiftRepository.
func (s *shiftRepositoryImpl) GetForEmployeeOnDate(ctx context.Context, employeeID string, date time.Time) (*shift.ShiftConfig, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		SELECT st.id, st.name, st.start_time, st.end_time,
			   st.grace_period, st.absent_grace_period, st.early_out_grace_period, st.early_out_absent_grace_period,
			   st.maximum_early_clockin, st.maximum_late_clockout,
			   st.break_time_start, st.break_time_end,
			   st.computation_method, st.enable_attendance_calculation
		FROM shift_assignments sa
		JOIN shift_types st ON st.id = sa.shift_type_id
		WHERE sa.employee_id = $1
		  AND sa.status = 'Active'
		  AND sa.start_date <= $2
		  AND (sa.end_date IS NULL OR sa.end_date >= $2)
		ORDER BY sa.start_date DESC
		LIMIT 1
	`

	var (
		cfg                  shift.ShiftConfig
		start, end           pgtype.Time
		breakStart, breakEnd pgtype.Time
		method               string
	)
	err := q.QueryRow(ctx, query, employeeID, date).Scan(
		&cfg.ID, &cfg.Name, &start, &end,
		&cfg.GracePeriod, &cfg.AbsentGracePeriod, &cfg.EarlyOutGracePeriod, &cfg.EarlyOutAbsentGracePeriod,
		&cfg.MaxEarlyClockIn, &cfg.MaxLateClockOut,
		&breakStart, &breakEnd,
		&method, &cfg.EnableAttendanceCalculation,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shift for employee %s: %w", employeeID, err)
	}

	cfg.ComputationMethod = shift.ComputationMethod(method)
	cfg.StartTime = offset(start)
	cfg.EndTime = after(cfg.StartTime, offset(end))
	if breakStart.Valid && breakEnd.Valid {
		bs := after(cfg.StartTime, offset(breakStart))
		be := after(bs, offset(breakEnd))
		cfg.BreakStart, cfg.BreakEnd = &bs, &be
	}

	segments, err := s.listSegments(ctx, q, cfg.ID, cfg.StartTime)
	if err != nil {
		return nil, err
	}
	cfg.AdditionalSegments = segments

	return &cfg, nil
}

func (s *shiftRepositoryImpl) listSegments(ctx context.Context, q database.Querier, shiftID string, shiftStart time.Duration) ([]shift.AdditionalSegment, error) {
	query := `
		SELECT start_time, end_time,
			   grace_period, absent_grace_period, early_out_grace_period, early_out_absent_grace_period,
			   maximum_early_clockin, maximum_late_clockout
		FROM shift_type_segments
		WHERE shift_type_id = $1
		ORDER BY position
	`

	rows, err := q.Query(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments for shift %s: %w", shiftID, err)
	}
	defer rows.Close()

	var segments []shift.AdditionalSegment
	for rows.Next() {
		var (
			seg        shift.AdditionalSegment
			start, end pgtype.Time
		)
		if err := rows.Scan(
			&start, &end,
			&seg.GracePeriod, &seg.AbsentGracePeriod, &seg.EarlyOutGracePeriod, &seg.EarlyOutAbsentGracePeriod,
			&seg.MaxEarlyClockIn, &seg.MaxLateClockOut,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shift segment: %w", err)
		}
		seg.StartTime = after(shiftStart, offset(start))
		seg.EndTime = after(seg.StartTime, offset(end))
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shift segments: %w", err)
	}

	return segments, nil
}

func offset(t pgtype.Time) time.Duration {
	return time.Duration(t.Microseconds) * time.Microsecond
}

// after moves a wall-clock offset to the next day when it falls before ref,
// so overnight shifts are stored as plain TIME columns.
func after(ref, t time.Duration) time.Duration {
	for t < ref {
		t += day
	}
	return t
}
