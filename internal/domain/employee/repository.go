package employee

import "context"

type EmployeeRepository interface {
	// ListActiveIDs returns the IDs of active employees matching the filter,
	// ordered by employee ID.
	ListActiveIDs(ctx context.Context, filter Filter) ([]string, error)

	// GetExternalIdentity returns the employee's account at provider, or nil.
	GetExternalIdentity(ctx context.Context, employeeID string, provider string) (*ExternalIdentity, error)
}
