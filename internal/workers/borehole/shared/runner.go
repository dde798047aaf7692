package shared

import (
	"context"
	"fmt"
	"time"

	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/errors"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Config is the per-task worker configuration.
type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

// ConfigFor reads the workers.<taskType> section, falling back to defaults.
func ConfigFor(app *config.Config, taskType string) *Config {
	if app == nil {
		return DefaultConfig()
	}
	wc := config.GetWorkerConfig(app, taskType)
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	}
}

func DefaultConfig() *Config {
	return &Config{Enabled: true, MaxJobsActive: 5, Timeout: 120 * time.Second}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

// Runner drives one job: timeout, metrics, completion and error handling.
type Runner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewRunner(taskType string, timeout time.Duration, log logger.Logger) *Runner {
	return &Runner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
	}
}

// Run executes fn under the worker timeout and completes the job with its
// output, or hands the error to the job error handler.
func (r *Runner) Run(client worker.JobClient, job entities.Job, fn func(ctx context.Context) (interface{}, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	r.logger.Info("processing job", map[string]interface{}{
		logger.FieldJobKey:   job.GetKey(),
		logger.FieldJobType:  r.taskType,
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	output, err := fn(ctx)
	if err != nil {
		stdErr := errors.Normalize(err)
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()
		r.errors.HandleJobError(ctx, client, job, stdErr)
		return
	}

	if err := Complete(ctx, client, job, output, r.logger); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, "COMPLETE_FAILED").Inc()
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(start).Seconds())
}
