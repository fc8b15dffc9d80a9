package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type calculationRepositoryImpl struct {
	db *database.DB
}

func NewCalculationRepository(db *database.DB) calculation.RunRepository {
	return &calculationRepositoryImpl{db: db}
}

const runColumns = `
	id, date_from, date_to, filter, import_from_external, status, message,
	processed_count, total_count, has_success, has_failure, cancel_requested,
	created_at, updated_at
`

// Create implements calculation.RunRepository.
func (c *calculationRepositoryImpl) Create(ctx context.Context, run calculation.Run) (calculation.Run, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		INSERT INTO attendance_calculations (
			id, date_from, date_to, filter, import_from_external, status, message
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		run.ID,
		run.DateFrom,
		run.DateTo,
		run.Filter,
		run.ImportFromExternal,
		string(run.Status),
		run.Message,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return calculation.Run{}, fmt.Errorf("failed to create attendance calculation: %w", err)
	}

	return run, nil
}

// GetByID implements calculation.RunRepository.
func (c *calculationRepositoryImpl) GetByID(ctx context.Context, id string) (calculation.Run, error) {
	q := GetQuerier(ctx, c.db)

	query := `SELECT ` + runColumns + ` FROM attendance_calculations WHERE id = $1`

	var (
		run    calculation.Run
		status string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.DateFrom, &run.DateTo, &run.Filter, &run.ImportFromExternal, &status, &run.Message,
		&run.ProcessedCount, &run.TotalCount, &run.HasSuccess, &run.HasFailure, &run.CancelRequested,
		&run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return calculation.Run{}, calculation.ErrRunNotFound
		}
		return calculation.Run{}, fmt.Errorf("failed to get attendance calculation %s: %w", id, err)
	}
	run.Status = calculation.RunStatus(status)

	return run, nil
}

// UpdateStatus implements calculation.RunRepository.
func (c *calculationRepositoryImpl) UpdateStatus(ctx context.Context, id string, status calculation.RunStatus, message string) error {
	return c.update(ctx, id, "status", `status = $2, message = $3`, string(status), message)
}

// UpdateProgress implements calculation.RunRepository.
func (c *calculationRepositoryImpl) UpdateProgress(ctx context.Context, id string, processed, total int) error {
	return c.update(ctx, id, "progress", `processed_count = $2, total_count = $3`, processed, total)
}

// UpdateFlags implements calculation.RunRepository.
func (c *calculationRepositoryImpl) UpdateFlags(ctx context.Context, id string, hasSuccess, hasFailure bool) error {
	return c.update(ctx, id, "flags", `has_success = $2, has_failure = $3`, hasSuccess, hasFailure)
}

// RequestCancel implements calculation.RunRepository.
func (c *calculationRepositoryImpl) RequestCancel(ctx context.Context, id string) error {
	return c.update(ctx, id, "cancel request", `cancel_requested = TRUE`)
}

func (c *calculationRepositoryImpl) update(ctx context.Context, id, what, set string, args ...interface{}) error {
	q := GetQuerier(ctx, c.db)

	query := `UPDATE attendance_calculations SET ` + set + `, updated_at = NOW() WHERE id = $1`

	tag, err := q.Exec(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update %s of attendance calculation %s: %w", what, id, err)
	}
	if tag.RowsAffected() == 0 {
		return calculation.ErrRunNotFound
	}
	return nil
}

// IsCancelRequested implements calculation.RunRepository.
func (c *calculationRepositoryImpl) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, c.db)

	var requested bool
	err := q.QueryRow(ctx, `SELECT cancel_requested FROM attendance_calculations WHERE id = $1`, id).Scan(&requested)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, calculation.ErrRunNotFound
		}
		return false, fmt.Errorf("failed to read cancel request of attendance calculation %s: %w", id, err)
	}
	return requested, nil
}

// DeleteLogs implements calculation.RunRepository.
func (c *calculationRepositoryImpl) DeleteLogs(ctx context.Context, id string) error {
	return WithTransaction(ctx, c.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM attendance_calculation_logs WHERE attendance_calculation_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete logs of attendance calculation %s: %w", id, err)
		}
		tag, err := tx.Exec(ctx, `UPDATE attendance_calculations SET cancel_requested = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to reset cancel request of attendance calculation %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return calculation.ErrRunNotFound
		}
		return nil
	})
}

// AppendLog implements calculation.RunRepository.
func (c *calculationRepositoryImpl) AppendLog(ctx context.Context, entry calculation.LogEntry) error {
	q := GetQuerier(ctx, c.db)

	query := `
		INSERT INTO attendance_calculation_logs (
			attendance_calculation_id, employee_id, date, success, skipped, error
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := q.Exec(ctx, query, entry.RunID, entry.EmployeeID, entry.Date, entry.Success, entry.Skipped, entry.Error); err != nil {
		return fmt.Errorf("failed to append log to attendance calculation %s: %w", entry.RunID, err)
	}
	return nil
}

// ListLogs implements calculation.RunRepository.
func (c *calculationRepositoryImpl) ListLogs(ctx context.Context, runID string) ([]calculation.LogEntry, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		SELECT id::text, attendance_calculation_id, employee_id, date, success, skipped, error, created_at
		FROM attendance_calculation_logs
		WHERE attendance_calculation_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs of attendance calculation %s: %w", runID, err)
	}
	defer rows.Close()

	entries := []calculation.LogEntry{}
	for rows.Next() {
		var entry calculation.LogEntry
		if err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.EmployeeID, &entry.Date,
			&entry.Success, &entry.Skipped, &entry.Error, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calculation log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calculation logs: %w", err)
	}

	return entries, nil
}
