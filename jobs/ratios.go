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
	"github.com/odyssey-erp/odyssey-statements/internal/statements/ratios"
)

// RatioComputer evaluates the ratio set of a period.
type RatioComputer interface {
	Compute(ctx context.Context, period, balanceteVersion string) (ratios.Report, error)
}

// RatiosJob computes and logs financial ratios from stored BP and DRE documents.
type RatiosJob struct {
	Engine         RatioComputer
	DefaultVersion string
	Logger         *slog.Logger
	Metrics        *jobmetrics.Metrics
	clock          func() time.Time
}

// NewRatiosJob constructs the job handler.
func NewRatiosJob(engine RatioComputer, defaultVersion string, logger *slog.Logger, metrics *jobmetrics.Metrics) *RatiosJob {
	return &RatiosJob{
		Engine:         engine,
		DefaultVersion: defaultVersion,
		Logger:         logger,
		Metrics:        metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle computes the ratios. Missing statements are not retried.
func (j *RatiosJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Engine == nil {
		return errors.New("compute ratios: dependencies not configured")
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

	tracker := j.metrics().Track(TaskComputeRatios)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.Engine.Compute(ctx, payload.Period, payload.BalanceteVersion)
	if err != nil {
		j.log().Error("compute ratios", slog.String("period", payload.Period), slog.Any("error", err))
		resultErr = err
		if errors.Is(err, statements.ErrNotFound) {
			resultErr = fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return resultErr
	}

	for _, ratio := range report.Ratios {
		attrs := []any{
			slog.String("period", report.Period),
			slog.String("category", string(ratio.Category)),
			slog.String("rating", string(ratio.Rating)),
		}
		if ratio.Defined {
			attrs = append(attrs, slog.String("value", ratio.Value.StringFixed(2)))
		}
		j.log().Info(ratio.Name, attrs...)
	}
	return resultErr
}

func (j *RatiosJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RatiosJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskComputeRatios))
	}
	return slog.Default().With(slog.String("job", TaskComputeRatios))
}

func (j *RatiosJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *RatiosJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
