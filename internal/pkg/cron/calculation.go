package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
)

// CalculationJobs schedules the nightly attendance calculation.
type CalculationJobs struct {
	calculationSvc calculation.CalculationService
	runHour        int
	location       *time.Location
	now            func() time.Time

	mu       sync.Mutex
	lastDate string
}

// NewCalculationJobs runs the calculation for the previous day once the clock
// in location reaches runHour. A nil location means UTC.
func NewCalculationJobs(calculationSvc calculation.CalculationService, runHour int, location *time.Location) *CalculationJobs {
	if location == nil {
		location = time.UTC
	}
	return &CalculationJobs{
		calculationSvc: calculationSvc,
		runHour:        runHour,
		location:       location,
		now:            time.Now,
	}
}

func (j *CalculationJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("calculate_previous_day_attendance", 1*time.Hour, j.CalculatePreviousDay)
}

// CalculatePreviousDay creates and dispatches a run covering yesterday for
// every active employee. It does nothing outside runHour or when yesterday
// was already dispatched by this process.
func (j *CalculationJobs) CalculatePreviousDay(ctx context.Context) error {
	now := j.now().In(j.location)
	if now.Hour() != j.runHour {
		return nil
	}

	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastDate == yesterday {
		return nil
	}

	slog.Info("Cron: Starting previous day attendance calculation", "date", yesterday)

	run, err := j.calculationSvc.CreateRun(ctx, calculation.CreateRunRequest{
		DateFrom: yesterday,
		DateTo:   yesterday,
	})
	if err != nil {
		return fmt.Errorf("failed to create calculation run: %w", err)
	}

	enqueued, err := j.calculationSvc.DispatchRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to dispatch calculation run %s: %w", run.ID, err)
	}

	j.lastDate = yesterday
	slog.Info("Cron: Previous day attendance calculation dispatched", "date", yesterday, "run_id", run.ID, "enqueued", enqueued)
	return nil
}
