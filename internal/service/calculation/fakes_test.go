package calculation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
)

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[string]calculation.Run
	logs map[string][]calculation.LogEntry

	// cancelAfter makes IsCancelRequested report true once it has been
	// asked this many times. Zero disables it.
	cancelAfter  int
	cancelChecks int
	failAppend   bool
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		runs: make(map[string]calculation.Run),
		logs: make(map[string][]calculation.LogEntry),
	}
}

func (r *fakeRunRepo) Create(ctx context.Context, run calculation.Run) (calculation.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	r.runs[run.ID] = run
	return run, nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, id string) (calculation.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return calculation.Run{}, calculation.ErrRunNotFound
	}
	return run, nil
}

func (r *fakeRunRepo) update(id string, fn func(*calculation.Run)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return calculation.ErrRunNotFound
	}
	fn(&run)
	r.runs[id] = run
	return nil
}

func (r *fakeRunRepo) UpdateStatus(ctx context.Context, id string, status calculation.RunStatus, message string) error {
	return r.update(id, func(run *calculation.Run) {
		run.Status = status
		run.Message = message
	})
}

func (r *fakeRunRepo) UpdateProgress(ctx context.Context, id string, processed, total int) error {
	return r.update(id, func(run *calculation.Run) {
		run.ProcessedCount = processed
		run.TotalCount = total
	})
}

func (r *fakeRunRepo) UpdateFlags(ctx context.Context, id string, hasSuccess, hasFailure bool) error {
	return r.update(id, func(run *calculation.Run) {
		run.HasSuccess = hasSuccess
		run.HasFailure = hasFailure
	})
}

func (r *fakeRunRepo) RequestCancel(ctx context.Context, id string) error {
	return r.update(id, func(run *calculation.Run) {
		run.CancelRequested = true
	})
}

func (r *fakeRunRepo) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelChecks++
	if r.cancelAfter > 0 && r.cancelChecks > r.cancelAfter {
		return true, nil
	}
	return r.runs[id].CancelRequested, nil
}

func (r *fakeRunRepo) DeleteLogs(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.logs, id)
	run := r.runs[id]
	run.CancelRequested = false
	r.runs[id] = run
	return nil
}

func (r *fakeRunRepo) AppendLog(ctx context.Context, entry calculation.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend {
		return errors.New("log store unavailable")
	}
	entry.CreatedAt = time.Now()
	r.logs[entry.RunID] = append(r.logs[entry.RunID], entry)
	return nil
}

func (r *fakeRunRepo) ListLogs(ctx context.Context, runID string) ([]calculation.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.logs[runID]), nil
}

type fakeEmployeeRepo struct {
	ids        []string
	err        error
	identities map[string]*employee.ExternalIdentity
}

func (r *fakeEmployeeRepo) ListActiveIDs(ctx context.Context, filter employee.Filter) ([]string, error) {
	return r.ids, r.err
}

func (r *fakeEmployeeRepo) GetExternalIdentity(ctx context.Context, employeeID, provider string) (*employee.ExternalIdentity, error) {
	return r.identities[employeeID], nil
}

type dayKey struct {
	employeeID string
	date       string
}

type fakeCalculator struct {
	mu       sync.Mutex
	failures map[dayKey]error
	panics   map[dayKey]bool
	skipped  map[dayKey]bool
	calls    []dayKey
	dates    []time.Time
	imported []stats.DailyRecord
}

func newFakeCalculator() *fakeCalculator {
	return &fakeCalculator{
		failures: make(map[dayKey]error),
		panics:   make(map[dayKey]bool),
		skipped:  make(map[dayKey]bool),
	}
}

func key(employeeID, date string) dayKey {
	return dayKey{employeeID: employeeID, date: date}
}

func (c *fakeCalculator) ComputeDay(ctx context.Context, employeeID string, date time.Time, runID string) (*attendance.Attendance, error) {
	k := key(employeeID, date.Format("2006-01-02"))

	c.mu.Lock()
	c.calls = append(c.calls, k)
	c.dates = append(c.dates, date)
	err, shouldPanic, skip := c.failures[k], c.panics[k], c.skipped[k]
	c.mu.Unlock()

	if shouldPanic {
		panic("nil shift segment")
	}
	if err != nil {
		return nil, err
	}
	if skip {
		return nil, nil
	}
	return &attendance.Attendance{EmployeeID: employeeID, Date: date, CalculationRunID: &runID}, nil
}

func (c *fakeCalculator) ImportDay(ctx context.Context, employeeID string, rec stats.DailyRecord, runID string) (*attendance.Attendance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imported = append(c.imported, rec)
	if err := c.failures[key(employeeID, rec.Date.Format("2006-01-02"))]; err != nil {
		return nil, err
	}
	return &attendance.Attendance{EmployeeID: employeeID, Date: rec.Date}, nil
}

type fakeQueue struct {
	mu        sync.Mutex
	down      bool
	failNext  bool
	published []string
}

func (q *fakeQueue) Available() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.down
}

func (q *fakeQueue) Enqueue(ctx context.Context, runID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext {
		q.failNext = false
		return errors.New("channel closed")
	}
	q.published = append(q.published, runID)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []calculation.ProgressEvent
}

func (p *fakePublisher) Publish(topic string, name string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := data.(calculation.ProgressEvent); ok {
		p.events = append(p.events, ev)
	}
}

func (p *fakePublisher) last() calculation.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fakeNotifier struct {
	mu   sync.Mutex
	runs []calculation.Run
}

func (n *fakeNotifier) NotifyRunFinished(ctx context.Context, run calculation.Run) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, run)
	return nil
}

type rawDay struct {
	rec stats.DailyRecord
	err error
}

func (d rawDay) Record() (stats.DailyRecord, error) {
	return d.rec, d.err
}

type fakeSource struct {
	days  map[string][]stats.RawDay
	err   error
	block bool
}

func (s *fakeSource) FetchDaily(ctx context.Context, identity employee.ExternalIdentity, from, to time.Time) ([]stats.RawDay, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	days, ok := s.days[identity.UserID]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", identity.UserID)
	}
	return days, nil
}
