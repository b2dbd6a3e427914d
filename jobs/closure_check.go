package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-statements/internal/jobs"
	"github.com/odyssey-erp/odyssey-statements/internal/statements"
)

// ClosureChecker verifies the double-entry closure of a balancete.
type ClosureChecker interface {
	CheckClosure(ctx context.Context, period, balanceteVersion string) (statements.ClosureReport, error)
}

// ClosureCheckJob checks that a balancete's closing balances sum to zero.
type ClosureCheckJob struct {
	Service        ClosureChecker
	DefaultVersion string
	Logger         *slog.Logger
	Metrics        *jobmetrics.Metrics
	clock          func() time.Time
}

// NewClosureCheckJob constructs the job handler.
func NewClosureCheckJob(service ClosureChecker, defaultVersion string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ClosureCheckJob {
	return &ClosureCheckJob{
		Service:        service,
		DefaultVersion: defaultVersion,
		Logger:         logger,
		Metrics:        metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs the check. An unbalanced balancete is logged and counted but
// does not fail the task.
func (j *ClosureCheckJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("closure check: dependencies not configured")
	}
	var payload PeriodPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Period == "" {
		payload.Period = previousMonth(j.now)
	}
	if payload.BalanceteVersion == "" {
		payload.BalanceteVersion = j.DefaultVersion
	}

	tracker := j.metrics().Track(TaskClosureCheck)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.Service.CheckClosure(ctx, payload.Period, payload.BalanceteVersion)
	if err != nil {
		j.log().Error("closure check",
			slog.String("period", payload.Period),
			slog.String("balancete_version", payload.BalanceteVersion),
			slog.Any("error", err),
		)
		resultErr = err
		if !Retryable(statements.KindOf(err)) {
			resultErr = fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return resultErr
	}

	j.metrics().RecordClosure(report.Balanced)
	attrs := []any{
		slog.String("period", report.Period),
		slog.String("balancete_version", report.BalanceteVersion),
		slog.String("sum", report.Sum.StringFixed(2)),
	}
	if !report.Balanced {
		j.log().Warn("trial balance does not close", attrs...)
		return resultErr
	}
	j.log().Info("trial balance closes", attrs...)
	return resultErr
}

func (j *ClosureCheckJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ClosureCheckJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskClosureCheck))
	}
	return slog.Default().With(slog.String("job", TaskClosureCheck))
}

func (j *ClosureCheckJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *ClosureCheckJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
