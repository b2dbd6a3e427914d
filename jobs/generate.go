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

// StatementGenerator builds and persists statements.
type StatementGenerator interface {
	Generate(ctx context.Context, req statements.Request) (statements.Document, error)
}

// GenerateJob runs statement generation requests taken from the queue.
type GenerateJob struct {
	Service StatementGenerator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGenerateJob constructs the job handler.
func NewGenerateJob(service StatementGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *GenerateJob {
	return &GenerateJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes one generation. Failures caused by the request or the
// ledger data are not retried; repeating them cannot succeed.
func (j *GenerateJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("generate statement: dependencies not configured")
	}
	var req statements.Request
	if err := json.Unmarshal(task.Payload(), &req); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskGenerateStatement)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	doc, err := j.Service.Generate(ctx, req)
	envelope := statements.NewEnvelope(doc, err)
	if err != nil {
		kind := statements.KindOf(err)
		j.metrics().RecordOutcome(string(req.Type), string(kind))
		attrs := []any{
			slog.String("statement", string(req.Type)),
			slog.String("period", req.PeriodKey()),
			slog.String("kind", string(kind)),
			slog.String("message", envelope.Error.Message),
		}
		if envelope.Error.Delta != nil {
			attrs = append(attrs, slog.String("delta", envelope.Error.Delta.StringFixed(2)))
		}
		if len(envelope.Error.Orphans) > 0 {
			attrs = append(attrs, slog.Int("orphans", len(envelope.Error.Orphans)))
		}
		j.log().Error("generate statement", attrs...)
		resultErr = err
		if !Retryable(kind) {
			resultErr = fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return resultErr
	}

	j.metrics().RecordOutcome(string(doc.Type), "")
	j.log().Info("generated statement",
		slog.String("statement", string(doc.Type)),
		slog.String("period", doc.PeriodKey),
		slog.String("balancete_version", doc.BalanceteVersion),
		slog.String("id", doc.ID.String()),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

// Retryable reports whether a failure of the given kind may succeed on a
// later attempt. Missing data can still be imported and computation errors
// include interruptions.
func Retryable(kind statements.ErrorKind) bool {
	switch kind {
	case statements.KindInvalidRequest,
		statements.KindUnsupportedMethod,
		statements.KindUnbalancedTrialBalance,
		statements.KindBalanceSheetImbalance,
		statements.KindOrphanedAccount:
		return false
	}
	return true
}

func (j *GenerateJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GenerateJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGenerateStatement))
	}
	return slog.Default().With(slog.String("job", TaskGenerateStatement))
}
