// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"sailmatch-workers/internal/common/config"
)

// Worker is one open job subscription. Close stops polling; it does not
// close the shared Zeebe client.
type Worker struct {
	worker   worker.JobWorker
	taskType string
	logger   *zap.Logger
}

// StartWorker opens a job subscription for the task type using the worker's
// configured concurrency and timeout. Returns nil when the worker is
// disabled in config.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handlerFunc func(worker.JobClient, entities.Job),
	log *zap.Logger,
) *Worker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)

	return &Worker{
		worker:   jobWorker,
		taskType: taskType,
		logger:   log,
	}
}

// Close stops the job subscription and waits for in-flight handlers.
func (w *Worker) Close() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}
