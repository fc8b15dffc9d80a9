package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

// ListActiveIDs implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListActiveIDs(ctx context.Context, filter employee.Filter) ([]string, error) {
	q := GetQuerier(ctx, e.db)

	conditions := []string{"status = 'Active'", "deleted_at IS NULL"}
	args := []interface{}{}

	columns := []struct {
		column string
		value  *string
	}{
		{"company_id", filter.CompanyID},
		{"branch_id", filter.BranchID},
		{"grade_id", filter.GradeID},
		{"department_id", filter.DepartmentID},
		{"designation_id", filter.DesignationID},
		{"id", filter.EmployeeID},
	}
	for _, c := range columns {
		if c.value == nil {
			continue
		}
		args = append(args, *c.value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", c.column, len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id
		FROM employees
		WHERE %s
		ORDER BY id
	`, strings.Join(conditions, " AND "))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan employee ids: %w", err)
	}

	return ids, nil
}

// GetExternalIdentity implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetExternalIdentity(ctx context.Context, employeeID string, provider string) (*employee.ExternalIdentity, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT employee_id, provider, user_id, tenant_id
		FROM employee_external_identities
		WHERE employee_id = $1 AND provider = $2
	`

	var identity employee.ExternalIdentity
	err := q.QueryRow(ctx, query, employeeID, provider).Scan(
		&identity.EmployeeID, &identity.Provider, &identity.UserID, &identity.TenantID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get external identity for employee %s: %w", employeeID, err)
	}

	return &identity, nil
}
