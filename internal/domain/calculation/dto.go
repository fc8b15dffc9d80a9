package calculation

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// MaxRangeDays bounds a single run.
const MaxRangeDays = 366

type CreateRunRequest struct {
	DateFrom           string          `json:"date_from"` // YYYY-MM-DD
	DateTo             string          `json:"date_to"`   // YYYY-MM-DD
	Filter             employee.Filter `json:"filter"`
	ImportFromExternal bool            `json:"import_from_external"`
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	from, fromOK := validator.IsValidDate(r.DateFrom)
	if !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "date_from",
			Message: "date_from must be in YYYY-MM-DD format",
		})
	}

	to, toOK := validator.IsValidDate(r.DateTo)
	if !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "date_to",
			Message: "date_to must be in YYYY-MM-DD format",
		})
	}

	if fromOK && toOK {
		if to.Before(from) {
			errs = append(errs, validator.ValidationError{
				Field:   "date_to",
				Message: "date_to must not be before date_from",
			})
		} else if to.Sub(from) >= MaxRangeDays*24*time.Hour {
			errs = append(errs, validator.ValidationError{
				Field:   "date_to",
				Message: "date range must not exceed 366 days",
			})
		}
	}

	optional := []struct {
		field string
		value *string
	}{
		{"filter.company", r.Filter.CompanyID},
		{"filter.branch", r.Filter.BranchID},
		{"filter.grade", r.Filter.GradeID},
		{"filter.department", r.Filter.DepartmentID},
		{"filter.designation", r.Filter.DesignationID},
		{"filter.employee", r.Filter.EmployeeID},
	}
	for _, o := range optional {
		if o.value != nil && validator.IsEmpty(*o.value) {
			errs = append(errs, validator.ValidationError{
				Field:   o.field,
				Message: o.field + " must not be blank when provided",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RunResponse struct {
	ID                 string          `json:"id"`
	DateFrom           string          `json:"date_from"`
	DateTo             string          `json:"date_to"`
	Filter             employee.Filter `json:"filter"`
	ImportFromExternal bool            `json:"import_from_external"`
	Status             RunStatus       `json:"status"`
	Message            string          `json:"message,omitempty"`
	ProcessedCount     int             `json:"processed_employees"`
	TotalCount         int             `json:"total_employees"`
	HasSuccess         bool            `json:"has_success"`
	HasFailure         bool            `json:"has_failure"`
	CancelRequested    bool            `json:"cancel_requested"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

func NewRunResponse(run Run) RunResponse {
	return RunResponse{
		ID:                 run.ID,
		DateFrom:           run.DateFrom.Format("2006-01-02"),
		DateTo:             run.DateTo.Format("2006-01-02"),
		Filter:             run.Filter,
		ImportFromExternal: run.ImportFromExternal,
		Status:             run.Status,
		Message:            run.Message,
		ProcessedCount:     run.ProcessedCount,
		TotalCount:         run.TotalCount,
		HasSuccess:         run.HasSuccess,
		HasFailure:         run.HasFailure,
		CancelRequested:    run.CancelRequested,
		CreatedAt:          run.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          run.UpdatedAt.Format(time.RFC3339),
	}
}

type LogEntryResponse struct {
	EmployeeID string  `json:"employee"`
	Date       *string `json:"date,omitempty"`
	Success    bool    `json:"success"`
	Skipped    bool    `json:"skipped"`
	Error      *string `json:"error,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func NewLogEntryResponse(entry LogEntry) LogEntryResponse {
	resp := LogEntryResponse{
		EmployeeID: entry.EmployeeID,
		Success:    entry.Success,
		Skipped:    entry.Skipped,
		Error:      entry.Error,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.Date != nil {
		d := entry.Date.Format("2006-01-02")
		resp.Date = &d
	}
	return resp
}

type DispatchResponse struct {
	Enqueued bool   `json:"enqueued"`
	Message  string `json:"message"`
}

// ProgressEvent is published after every employee and on every status change.
type ProgressEvent struct {
	RunID          string    `json:"attendance_calculation"`
	Status         RunStatus `json:"status"`
	ProcessedCount int       `json:"processed_employees"`
	TotalCount     int       `json:"total_employees"`
	Message        string    `json:"message,omitempty"`
}

type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
