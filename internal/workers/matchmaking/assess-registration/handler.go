// internal/workers/matchmaking/assess-registration/handler.go
package assessregistration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"sailmatch-workers/internal/assessment"
	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/domain"
)

const (
	TaskType = "assess-registration"
)

// Assessor is the pipeline surface, an interface for mocking.
type Assessor interface {
	Run(ctx context.Context, registrationID string, freshAnswers []domain.Answer) (*assessment.Outcome, error)
}

type Handler struct {
	config   *Config
	pipeline Assessor
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewHandler(config *Config, pipeline Assessor, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		pipeline: pipeline,
		logger:   scoped,
		errors:   errors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}
	if input.RegistrationID == "" {
		h.failJob(client, job, "PARSE_ERROR", "registrationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		// Transient failures (provider outages, timeouts) keep their job
		// retries; everything else surfaces as a BPMN error.
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.pipeline.Run(ctx, input.RegistrationID, input.Answers)
	if err != nil {
		return nil, err
	}

	return &Output{
		RegistrationID:   outcome.RegistrationID,
		Skipped:          outcome.Skipped,
		Score:            outcome.Score,
		AutoApproved:     outcome.AutoApproved,
		AssessmentFailed: outcome.AssessmentFailed,
		AssessedAt:       time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Execute exposes the business logic for testing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
