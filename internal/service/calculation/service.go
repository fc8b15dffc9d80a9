package calculation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/queue"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	progressEvent = "progress"
	noAttendance  = "No attendance calculated"
)

// DayCalculator computes and stores a single employee-day.
type DayCalculator interface {
	ComputeDay(ctx context.Context, employeeID string, date time.Time, runID string) (*attendance.Attendance, error)
	ImportDay(ctx context.Context, employeeID string, rec stats.DailyRecord, runID string) (*attendance.Attendance, error)
}

// Publisher delivers progress events to listeners of a topic.
type Publisher interface {
	Publish(topic string, name string, data interface{})
}

// RunNotifier is told about runs that finished with anything but full success.
type RunNotifier interface {
	NotifyRunFinished(ctx context.Context, run calculation.Run) error
}

type Options struct {
	// Workers is the number of employees processed concurrently. 1 keeps the
	// run strictly sequential.
	Workers         int
	ExternalTimeout time.Duration
	LockTTL         time.Duration

	// Location anchors each calendar day. Defaults to UTC.
	Location *time.Location

	// Source is required for runs that import from the external provider.
	Source   stats.Source
	Notifier RunNotifier
}

type calculationServiceImpl struct {
	runRepo      calculation.RunRepository
	employeeRepo employee.EmployeeRepository
	calculator   DayCalculator
	queue        queue.Queue
	locker       lock.Locker
	publisher    Publisher
	opts         Options
}

func NewCalculationService(
	runRepo calculation.RunRepository,
	employeeRepo employee.EmployeeRepository,
	calculator DayCalculator,
	q queue.Queue,
	locker lock.Locker,
	publisher Publisher,
	opts Options,
) calculation.CalculationService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = 30 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 6 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &calculationServiceImpl{
		runRepo:      runRepo,
		employeeRepo: employeeRepo,
		calculator:   calculator,
		queue:        q,
		locker:       locker,
		publisher:    publisher,
		opts:         opts,
	}
}

// CreateRun implements calculation.CalculationService.
func (s *calculationServiceImpl) CreateRun(ctx context.Context, req calculation.CreateRunRequest) (calculation.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return calculation.RunResponse{}, err
	}
	if req.ImportFromExternal && s.opts.Source == nil {
		return calculation.RunResponse{}, calculation.ErrExternalSourceDown
	}

	dateFrom, _ := time.Parse("2006-01-02", req.DateFrom)
	dateTo, _ := time.Parse("2006-01-02", req.DateTo)

	id, err := uuid.NewV7()
	if err != nil {
		return calculation.RunResponse{}, fmt.Errorf("failed to generate run id: %w", err)
	}

	created, err := s.runRepo.Create(ctx, calculation.Run{
		ID:                 id.String(),
		DateFrom:           dateFrom,
		DateTo:             dateTo,
		Filter:             req.Filter,
		ImportFromExternal: req.ImportFromExternal,
		Status:             calculation.StatusPending,
	})
	if err != nil {
		return calculation.RunResponse{}, fmt.Errorf("failed to create run: %w", err)
	}

	return calculation.NewRunResponse(created), nil
}

// GetRun implements calculation.CalculationService.
func (s *calculationServiceImpl) GetRun(ctx context.Context, id string) (calculation.RunResponse, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return calculation.RunResponse{}, err
	}
	return calculation.NewRunResponse(run), nil
}

// ListLogs implements calculation.CalculationService.
func (s *calculationServiceImpl) ListLogs(ctx context.Context, id string) ([]calculation.LogEntryResponse, error) {
	if _, err := s.runRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.runRepo.ListLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}

	responses := make([]calculation.LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, calculation.NewLogEntryResponse(e))
	}
	return responses, nil
}

// DispatchRun implements calculation.CalculationService.
func (s *calculationServiceImpl) DispatchRun(ctx context.Context, id string) (bool, error) {
	if _, err := s.runRepo.GetByID(ctx, id); err != nil {
		return false, err
	}
	if !s.queue.Available() {
		return false, calculation.ErrQueueUnavailable
	}

	acquired, err := s.locker.Acquire(ctx, id, s.opts.LockTTL)
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		slog.Info("Attendance calculation already queued or running", "run_id", id)
		return false, nil
	}

	if err := s.queue.Enqueue(ctx, id); err != nil {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), id); releaseErr != nil {
			slog.Warn("Failed to release run lock", "run_id", id, "error", releaseErr)
		}
		return false, fmt.Errorf("%w: %w", calculation.ErrQueueUnavailable, err)
	}

	slog.Info("Attendance calculation queued", "run_id", id)
	return true, nil
}

// CancelRun implements calculation.CalculationService.
func (s *calculationServiceImpl) CancelRun(ctx context.Context, id string) error {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run.Status != calculation.StatusInProgress {
		return calculation.ErrRunNotInProgress
	}
	return s.runRepo.RequestCancel(ctx, id)
}

// runState aggregates employee outcomes across workers.
type runState struct {
	mu         sync.Mutex
	processed  int
	total      int
	hasSuccess bool
	hasFailure bool
}

type outcome struct {
	success bool
	failure bool
}

// StartRun implements calculation.CalculationService.
func (s *calculationServiceImpl) StartRun(ctx context.Context, id string) error {
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), id); err != nil {
			slog.Warn("Failed to release run lock", "run_id", id, "error", err)
		}
	}()

	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run.ImportFromExternal && s.opts.Source == nil {
		return s.fail(ctx, run, calculation.ErrExternalSourceDown)
	}

	if err := s.runRepo.DeleteLogs(ctx, id); err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to clear run logs: %w", err))
	}
	if err := s.runRepo.UpdateFlags(ctx, id, false, false); err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to reset run flags: %w", err))
	}
	if err := s.runRepo.UpdateStatus(ctx, id, calculation.StatusInProgress, ""); err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to mark run in progress: %w", err))
	}
	if err := s.runRepo.UpdateProgress(ctx, id, 0, 0); err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to reset progress: %w", err))
	}
	run.ProcessedCount, run.TotalCount = 0, 0

	employees, err := s.employeeRepo.ListActiveIDs(ctx, run.Filter)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to resolve employees: %w", err))
	}

	state := &runState{total: len(employees)}
	if err := s.runRepo.UpdateProgress(ctx, id, 0, state.total); err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to update progress: %w", err))
	}
	s.publish(id, calculation.StatusInProgress, 0, state.total, "")

	slog.Info("Attendance calculation started",
		"run_id", id,
		"employees", state.total,
		"date_from", run.DateFrom.Format("2006-01-02"),
		"date_to", run.DateTo.Format("2006-01-02"),
		"external", run.ImportFromExternal,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	cancelled := false
	for _, employeeID := range employees {
		if gctx.Err() != nil {
			break
		}
		requested, err := s.runRepo.IsCancelRequested(gctx, id)
		if err != nil {
			slog.Warn("Failed to read cancel request", "run_id", id, "error", err)
		}
		if requested {
			cancelled = true
			break
		}

		g.Go(func() error {
			out, err := s.processEmployee(gctx, run, employeeID)
			if err != nil {
				return err
			}
			return s.record(gctx, id, state, out)
		})
	}

	if err := g.Wait(); err != nil {
		return s.fail(ctx, run, err)
	}

	status := calculation.FinalStatus(state.hasSuccess, state.hasFailure)
	var message string
	switch {
	case state.total == 0:
		message = calculation.ErrNoEmployees.Error()
	case cancelled:
		message = fmt.Sprintf("Cancelled after %d of %d employees", state.processed, state.total)
	case status == calculation.StatusError:
		message = noAttendance
	}

	if err := s.runRepo.UpdateStatus(ctx, id, status, message); err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to finalize run: %w", err))
	}
	s.publish(id, status, state.processed, state.total, message)

	slog.Info("Attendance calculation finished",
		"run_id", id,
		"status", status,
		"processed", state.processed,
		"total", state.total,
	)

	if status != calculation.StatusSuccess {
		s.notify(ctx, id)
	}
	return nil
}

// processEmployee runs every date of the range for one employee. Per-day
// failures are logged on the run; only a failure to write the log itself is
// returned.
func (s *calculationServiceImpl) processEmployee(ctx context.Context, run calculation.Run, employeeID string) (outcome, error) {
	if run.ImportFromExternal {
		return s.importEmployee(ctx, run, employeeID)
	}

	var out outcome
	for day := run.DateFrom; !day.After(run.DateTo); day = day.AddDate(0, 0, 1) {
		date := s.localDay(day)
		var record *attendance.Attendance
		err := guard(func() error {
			var err error
			record, err = s.calculator.ComputeDay(ctx, employeeID, date, run.ID)
			return err
		})

		if err := s.logDay(ctx, run.ID, employeeID, &date, record == nil, err, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *calculationServiceImpl) importEmployee(ctx context.Context, run calculation.Run, employeeID string) (outcome, error) {
	var out outcome

	identity, err := s.employeeRepo.GetExternalIdentity(ctx, employeeID, employee.ProviderLark)
	if err != nil {
		err = s.logDay(ctx, run.ID, employeeID, nil, false, err, &out)
		return out, err
	}
	if identity == nil {
		return out, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.ExternalTimeout)
	days, err := s.opts.Source.FetchDaily(fetchCtx, *identity, run.DateFrom, run.DateTo)
	cancel()
	if err != nil {
		err = s.logDay(ctx, run.ID, employeeID, nil, false, fmt.Errorf("failed to fetch daily stats: %w", err), &out)
		return out, err
	}

	records := make([]stats.DailyRecord, 0, len(days))
	for _, raw := range days {
		var rec stats.DailyRecord
		err := guard(func() error {
			var err error
			rec, err = raw.Record()
			return err
		})
		if err != nil {
			if err := s.logDay(ctx, run.ID, employeeID, nil, false, err, &out); err != nil {
				return out, err
			}
			continue
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b stats.DailyRecord) int {
		return a.Date.Compare(b.Date)
	})

	for _, rec := range records {
		rec.Date = s.localDay(rec.Date)
		err := guard(func() error {
			_, err := s.calculator.ImportDay(ctx, employeeID, rec, run.ID)
			return err
		})
		date := rec.Date
		if err := s.logDay(ctx, run.ID, employeeID, &date, false, err, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// localDay returns midnight of d's calendar day in the configured location.
func (s *calculationServiceImpl) localDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, s.opts.Location)
}

// logDay appends the outcome of one employee-day to the run log.
func (s *calculationServiceImpl) logDay(ctx context.Context, runID, employeeID string, date *time.Time, skipped bool, dayErr error, out *outcome) error {
	entry := calculation.LogEntry{
		RunID:      runID,
		EmployeeID: employeeID,
		Date:       date,
	}

	if dayErr != nil {
		msg := dayErr.Error()
		entry.Error = &msg
		out.failure = true

		level := slog.LevelError
		if errors.Is(dayErr, attendance.ErrAttendanceAlreadyExists) {
			level = slog.LevelInfo
		}
		slog.Log(ctx, level, "Attendance calculation failed for employee",
			"run_id", runID,
			"employee_id", employeeID,
			"date", formatDate(date),
			"error", dayErr,
		)
	} else {
		entry.Success = true
		entry.Skipped = skipped
		out.success = true
	}

	if err := s.runRepo.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
		return fmt.Errorf("failed to append run log: %w", err)
	}
	return nil
}

func (s *calculationServiceImpl) record(ctx context.Context, id string, state *runState, out outcome) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.processed++
	flagsChanged := (out.success && !state.hasSuccess) || (out.failure && !state.hasFailure)
	state.hasSuccess = state.hasSuccess || out.success
	state.hasFailure = state.hasFailure || out.failure

	if flagsChanged {
		if err := s.runRepo.UpdateFlags(ctx, id, state.hasSuccess, state.hasFailure); err != nil {
			return fmt.Errorf("failed to update run flags: %w", err)
		}
	}
	if err := s.runRepo.UpdateProgress(ctx, id, state.processed, state.total); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	s.publish(id, calculation.StatusInProgress, state.processed, state.total, "")
	return nil
}

// fail marks the run as Error with the cause as its message.
func (s *calculationServiceImpl) fail(ctx context.Context, run calculation.Run, cause error) error {
	ctx = context.WithoutCancel(ctx)

	slog.Error("Attendance calculation aborted", "run_id", run.ID, "error", cause)

	if err := s.runRepo.UpdateStatus(ctx, run.ID, calculation.StatusError, cause.Error()); err != nil {
		slog.Error("Failed to mark run as failed", "run_id", run.ID, "error", err)
		return errors.Join(cause, err)
	}
	s.publish(run.ID, calculation.StatusError, run.ProcessedCount, run.TotalCount, cause.Error())
	s.notify(ctx, run.ID)

	return cause
}

func (s *calculationServiceImpl) publish(id string, status calculation.RunStatus, processed, total int, message string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(id, progressEvent, calculation.ProgressEvent{
		RunID:          id,
		Status:         status,
		ProcessedCount: processed,
		TotalCount:     total,
		Message:        message,
	})
}

func (s *calculationServiceImpl) notify(ctx context.Context, id string) {
	if s.opts.Notifier == nil {
		return
	}

	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		slog.Warn("Failed to load run for notification", "run_id", id, "error", err)
		return
	}
	if err := s.opts.Notifier.NotifyRunFinished(ctx, run); err != nil {
		slog.Warn("Failed to send run notification", "run_id", id, "error", err)
	}
}

// guard converts a panic inside fn into an error so one bad record cannot
// take down the run.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func formatDate(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.Format("2006-01-02")
}
