package employee

// Filter narrows the active employees a calculation covers. Every set field
// must match; an empty filter selects every active employee.
type Filter struct {
	CompanyID     *string `json:"company,omitempty"`
	BranchID      *string `json:"branch,omitempty"`
	GradeID       *string `json:"grade,omitempty"`
	DepartmentID  *string `json:"department,omitempty"`
	DesignationID *string `json:"designation,omitempty"`
	EmployeeID    *string `json:"employee,omitempty"`
}

const ProviderLark = "lark"

// ExternalIdentity links an employee to an account in an external HR provider.
type ExternalIdentity struct {
	EmployeeID string
	Provider   string
	UserID     string
	TenantID   *string
}
