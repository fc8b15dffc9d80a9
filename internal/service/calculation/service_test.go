package calculation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	runs      *fakeRunRepo
	employees *fakeEmployeeRepo
	calc      *fakeCalculator
	queue     *fakeQueue
	locker    *lock.MemoryLocker
	publisher *fakePublisher
	notifier  *fakeNotifier
	source    *fakeSource
	opts      Options
}

func newFixture(employeeIDs ...string) *fixture {
	f := &fixture{
		runs:      newFakeRunRepo(),
		employees: &fakeEmployeeRepo{ids: employeeIDs},
		calc:      newFakeCalculator(),
		queue:     &fakeQueue{},
		locker:    lock.NewMemoryLocker(),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	f.opts = Options{Workers: 1, ExternalTimeout: time.Second, LockTTL: time.Hour, Notifier: f.notifier}
	return f
}

func (f *fixture) service() calculation.CalculationService {
	if f.source != nil {
		f.opts.Source = f.source
	}
	return NewCalculationService(f.runs, f.employees, f.calc, f.queue, f.locker, f.publisher, f.opts)
}

func (f *fixture) createRun(t *testing.T, svc calculation.CalculationService, from, to string, external bool) string {
	t.Helper()
	resp, err := svc.CreateRun(context.Background(), calculation.CreateRunRequest{
		DateFrom:           from,
		DateTo:             to,
		ImportFromExternal: external,
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) run(t *testing.T, id string) calculation.Run {
	t.Helper()
	run, err := f.runs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return run
}

func TestCreateRun(t *testing.T) {
	f := newFixture()
	svc := f.service()

	resp, err := svc.CreateRun(context.Background(), calculation.CreateRunRequest{
		DateFrom: "2024-03-01",
		DateTo:   "2024-03-07",
	})
	require.NoError(t, err)
	_, err = uuid.Parse(resp.ID)
	assert.NoError(t, err)
	assert.Equal(t, calculation.StatusPending, resp.Status)
	assert.Equal(t, "2024-03-01", resp.DateFrom)
	assert.Equal(t, "2024-03-07", resp.DateTo)

	_, err = svc.CreateRun(context.Background(), calculation.CreateRunRequest{DateFrom: "2024-03-07", DateTo: "2024-03-01"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = svc.CreateRun(context.Background(), calculation.CreateRunRequest{
		DateFrom:           "2024-03-01",
		DateTo:             "2024-03-01",
		ImportFromExternal: true,
	})
	assert.ErrorIs(t, err, calculation.ErrExternalSourceDown)
}

func TestStartRun_Success(t *testing.T) {
	f := newFixture("emp-1", "emp-2")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-03", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusSuccess, run.Status)
	assert.Empty(t, run.Message)
	assert.Equal(t, 2, run.ProcessedCount)
	assert.Equal(t, 2, run.TotalCount)
	assert.True(t, run.HasSuccess)
	assert.False(t, run.HasFailure)

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, logs, 6)
	for _, l := range logs {
		assert.True(t, l.Success)
	}

	assert.Equal(t, []dayKey{
		key("emp-1", "2024-03-01"), key("emp-1", "2024-03-02"), key("emp-1", "2024-03-03"),
		key("emp-2", "2024-03-01"), key("emp-2", "2024-03-02"), key("emp-2", "2024-03-03"),
	}, f.calc.calls)

	assert.Equal(t, calculation.StatusSuccess, f.publisher.last().Status)
	assert.Empty(t, f.notifier.runs)
}

func TestStartRun_PartialSuccess(t *testing.T) {
	f := newFixture("emp-1", "emp-2")
	f.calc.failures[key("emp-2", "2024-03-02")] = fmt.Errorf("emp-2 on 2024-03-02: %w", attendance.ErrAttendanceAlreadyExists)
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-03", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusPartialSuccess, run.Status)
	assert.True(t, run.HasSuccess)
	assert.True(t, run.HasFailure)
	assert.Equal(t, 2, run.ProcessedCount)

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, logs, 6)
	failed := 0
	for _, l := range logs {
		if !l.Success {
			failed++
			require.NotNil(t, l.Error)
			assert.Contains(t, *l.Error, "already marked")
			assert.Equal(t, "2024-03-02", *l.Date)
		}
	}
	assert.Equal(t, 1, failed)

	require.Len(t, f.notifier.runs, 1)
	assert.Equal(t, calculation.StatusPartialSuccess, f.notifier.runs[0].Status)
}

func TestStartRun_AllFailed(t *testing.T) {
	f := newFixture("emp-1")
	f.calc.failures[key("emp-1", "2024-03-01")] = errors.New("shift misconfigured")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusError, run.Status)
	assert.Equal(t, "No attendance calculated", run.Message)
}

func TestStartRun_NoEmployees(t *testing.T) {
	f := newFixture()
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusError, run.Status)
	assert.Equal(t, calculation.ErrNoEmployees.Error(), run.Message)
	assert.Zero(t, run.TotalCount)
}

func TestStartRun_EmployeeResolutionFails(t *testing.T) {
	f := newFixture()
	f.employees.err = errors.New("connection refused")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	err := svc.StartRun(context.Background(), id)
	require.Error(t, err)

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusError, run.Status)
	assert.Contains(t, run.Message, "connection refused")
	assert.Len(t, f.notifier.runs, 1)
}

func TestStartRun_RerunResetsProgressBeforeResolvingEmployees(t *testing.T) {
	f := newFixture("emp-1", "emp-2")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	require.NoError(t, svc.StartRun(context.Background(), id))
	require.Equal(t, 2, f.run(t, id).ProcessedCount)

	f.employees.err = errors.New("connection refused")
	require.Error(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusError, run.Status)
	assert.Zero(t, run.ProcessedCount)
	assert.Zero(t, run.TotalCount)

	last := f.publisher.last()
	assert.Equal(t, calculation.StatusError, last.Status)
	assert.Zero(t, last.ProcessedCount)
	assert.Zero(t, last.TotalCount)
}

func TestStartRun_DaysAnchoredInConfiguredLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	f := newFixture("emp-1")
	f.opts.Location = wib
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-02", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	require.Len(t, f.calc.dates, 2)
	for i, date := range f.calc.dates {
		assert.Equal(t, wib, date.Location())
		assert.True(t, time.Date(2024, time.March, 1+i, 0, 0, 0, 0, wib).Equal(date), "day %d is %s", i, date)
	}
}

func TestStartRun_LogStoreFailureAbortsRun(t *testing.T) {
	f := newFixture("emp-1")
	f.runs.failAppend = true
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	err := svc.StartRun(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, calculation.StatusError, f.run(t, id).Status)
}

func TestStartRun_PanicIsIsolated(t *testing.T) {
	f := newFixture("emp-1", "emp-2")
	f.calc.panics[key("emp-1", "2024-03-01")] = true
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-02", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusPartialSuccess, run.Status)
	assert.Len(t, f.calc.calls, 4)

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, logs[0].Error)
	assert.Contains(t, *logs[0].Error, "panic")
}

func TestStartRun_SkippedDaysCountAsSuccess(t *testing.T) {
	f := newFixture("emp-1")
	f.calc.skipped[key("emp-1", "2024-03-02")] = true
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-02", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.False(t, logs[0].Skipped)
	assert.True(t, logs[1].Success)
	assert.True(t, logs[1].Skipped)
	assert.Equal(t, calculation.StatusSuccess, f.run(t, id).Status)
}

func TestStartRun_ParallelWorkers(t *testing.T) {
	ids := make([]string, 40)
	for i := range ids {
		ids[i] = fmt.Sprintf("emp-%02d", i)
	}
	f := newFixture(ids...)
	f.opts.Workers = 8
	f.calc.failures[key("emp-07", "2024-03-02")] = errors.New("bad record")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-05", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusPartialSuccess, run.Status)
	assert.Equal(t, 40, run.ProcessedCount)
	assert.Equal(t, 40, run.TotalCount)

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, logs, 200)

	// Dates stay ascending within each employee.
	last := map[string]string{}
	for _, k := range f.calc.calls {
		assert.Greater(t, k.date, last[k.employeeID])
		last[k.employeeID] = k.date
	}
}

func TestStartRun_Cancellation(t *testing.T) {
	f := newFixture("emp-1", "emp-2", "emp-3", "emp-4")
	f.runs.cancelAfter = 2
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusSuccess, run.Status)
	assert.Equal(t, 2, run.ProcessedCount)
	assert.Equal(t, 4, run.TotalCount)
	assert.Equal(t, "Cancelled after 2 of 4 employees", run.Message)
	assert.Len(t, f.calc.calls, 2)
}

func TestCancelRun(t *testing.T) {
	f := newFixture("emp-1")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	assert.ErrorIs(t, svc.CancelRun(context.Background(), id), calculation.ErrRunNotInProgress)
	assert.ErrorIs(t, svc.CancelRun(context.Background(), "missing"), calculation.ErrRunNotFound)

	require.NoError(t, f.runs.UpdateStatus(context.Background(), id, calculation.StatusInProgress, ""))
	require.NoError(t, svc.CancelRun(context.Background(), id))
	assert.True(t, f.run(t, id).CancelRequested)
}

func TestDispatchRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture("emp-1")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", false)

	_, err := svc.DispatchRun(ctx, "missing")
	assert.ErrorIs(t, err, calculation.ErrRunNotFound)

	f.queue.down = true
	_, err = svc.DispatchRun(ctx, id)
	assert.ErrorIs(t, err, calculation.ErrQueueUnavailable)
	f.queue.down = false

	f.queue.failNext = true
	enqueued, err := svc.DispatchRun(ctx, id)
	assert.ErrorIs(t, err, calculation.ErrQueueUnavailable)
	assert.False(t, enqueued)

	enqueued, err = svc.DispatchRun(ctx, id)
	require.NoError(t, err)
	assert.True(t, enqueued, "failed enqueue must release the lock")

	enqueued, err = svc.DispatchRun(ctx, id)
	require.NoError(t, err)
	assert.False(t, enqueued)
	assert.Equal(t, []string{id}, f.queue.published)

	require.NoError(t, svc.StartRun(ctx, id))

	enqueued, err = svc.DispatchRun(ctx, id)
	require.NoError(t, err)
	assert.True(t, enqueued, "finished run must release the lock")
}

func TestStartRun_RerunClearsLogs(t *testing.T) {
	f := newFixture("emp-1")
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-02", false)

	require.NoError(t, svc.StartRun(context.Background(), id))
	require.NoError(t, svc.StartRun(context.Background(), id))

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func day(date string) time.Time {
	d, _ := time.Parse("2006-01-02", date)
	return d
}

func TestStartRun_External(t *testing.T) {
	f := newFixture("emp-1", "emp-2", "emp-3")
	f.employees.identities = map[string]*employee.ExternalIdentity{
		"emp-1": {EmployeeID: "emp-1", Provider: employee.ProviderLark, UserID: "ou_1"},
		"emp-2": {EmployeeID: "emp-2", Provider: employee.ProviderLark, UserID: "ou_2"},
	}
	f.source = &fakeSource{days: map[string][]stats.RawDay{
		"ou_1": {
			rawDay{rec: stats.DailyRecord{Date: day("2024-03-02")}},
			rawDay{err: stats.ErrMalformedRecord},
			rawDay{rec: stats.DailyRecord{Date: day("2024-03-01")}},
		},
	}}
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-02", true)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusPartialSuccess, run.Status)
	assert.Equal(t, 3, run.ProcessedCount)

	require.Len(t, f.calc.imported, 2)
	assert.Equal(t, day("2024-03-01"), f.calc.imported[0].Date)
	assert.Equal(t, day("2024-03-02"), f.calc.imported[1].Date)

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	// emp-1: one malformed day and two imports; emp-2: fetch failure; emp-3: no identity.
	require.Len(t, logs, 4)
	assert.False(t, logs[0].Success)
	assert.Nil(t, logs[0].Date)
	assert.True(t, logs[1].Success)
	assert.True(t, logs[2].Success)
	assert.False(t, logs[3].Success)
	assert.Equal(t, "emp-2", logs[3].EmployeeID)
	assert.Contains(t, *logs[3].Error, "unknown user ou_2")
}

func TestStartRun_ExternalTimeout(t *testing.T) {
	f := newFixture("emp-1")
	f.employees.identities = map[string]*employee.ExternalIdentity{
		"emp-1": {EmployeeID: "emp-1", Provider: employee.ProviderLark, UserID: "ou_1"},
	}
	f.source = &fakeSource{block: true}
	f.opts.ExternalTimeout = 20 * time.Millisecond
	svc := f.service()
	id := f.createRun(t, svc, "2024-03-01", "2024-03-01", true)

	require.NoError(t, svc.StartRun(context.Background(), id))

	run := f.run(t, id)
	assert.Equal(t, calculation.StatusError, run.Status)

	logs, err := svc.ListLogs(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Contains(t, *logs[0].Error, context.DeadlineExceeded.Error())
}
