// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"powerbi-tom-skill/internal/common/logger"
)

// JobHandler must return an error (required by Zeebe client)
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// WorkerOptions configures one job worker subscription.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. The shared zbc client is
// owned by the caller and is not closed by Stop.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}

	workerLog := log.WithFields(map[string]interface{}{"taskType": opts.TaskType})

	// Wrap handler to match Zeebe's expected signature
	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			if err := handler.Handle(client, job); err != nil {
				workerLog.Error("Handler returned error", map[string]interface{}{
					"jobKey": job.Key,
					"error":  err.Error(),
				})
			}
		}).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	return &CamundaWorker{
		worker:   jobWorker,
		logger:   workerLog,
		taskType: opts.TaskType,
	}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", nil)
}

func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
}
