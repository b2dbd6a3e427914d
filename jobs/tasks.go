package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-statements/internal/jobs"
	"github.com/odyssey-erp/odyssey-statements/internal/statements"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGenerateStatement generates and stores one statement.
	TaskGenerateStatement = "statements:generate"
	// TaskClosureCheck verifies that a balancete sums to zero.
	TaskClosureCheck = "statements:closure-check"
	// TaskComputeRatios evaluates the financial ratios of a period.
	TaskComputeRatios = "statements:ratios"
)

const defaultMaxRetry = 3

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PeriodPayload scopes the closure check and ratio jobs. An empty period
// means the month before the job runs; an empty version uses the worker default.
type PeriodPayload struct {
	Period           string `json:"period,omitempty"`
	BalanceteVersion string `json:"balancete_version,omitempty"`
}

// NewGenerateTask wraps a statement request in an Asynq task.
func NewGenerateTask(req statements.Request) (*asynq.Task, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGenerateStatement, body, asynq.Queue(QueueDefault), asynq.MaxRetry(defaultMaxRetry)), nil
}

// NewClosureCheckTask creates a closure check task.
func NewClosureCheckTask(payload PeriodPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClosureCheck, body, asynq.Queue(QueueDefault), asynq.MaxRetry(defaultMaxRetry)), nil
}

// NewRatiosTask creates a ratio computation task.
func NewRatiosTask(payload PeriodPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskComputeRatios, body, asynq.Queue(QueueDefault), asynq.MaxRetry(defaultMaxRetry)), nil
}

// previousMonth returns the YYYY-MM code of the month before now.
func previousMonth(now func() time.Time) string {
	t := now()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0).Format("2006-01")
}
