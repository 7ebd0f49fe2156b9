// internal/workers/matchmaking/chat-turn/handler.go
package chatturn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/conversation"
)

const (
	TaskType = "chat-turn"
)

// Responder is the orchestrator surface, an interface for mocking.
type Responder interface {
	Respond(ctx context.Context, in conversation.TurnInput) (*conversation.TurnOutput, error)
}

type Handler struct {
	config       *Config
	orchestrator Responder
	logger       logger.Logger
}

func NewHandler(config *Config, orchestrator Responder, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		orchestrator: orchestrator,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input.Message == "" && input.ApprovedAction == nil {
		h.failJob(client, job, "PARSE_ERROR", "message or approvedAction is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, errorCode(err), err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	turn, err := h.orchestrator.Respond(ctx, conversation.TurnInput{
		SessionID: input.SessionID,
		Caller: conversation.Caller{
			UserID:        input.UserID,
			Authenticated: input.Authenticated,
			IsCrew:        input.IsCrew,
			IsOwner:       input.IsOwner,
		},
		Message:        input.Message,
		ApprovedAction: input.ApprovedAction,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		SessionID:     turn.SessionID,
		Content:       turn.Content,
		PendingAction: turn.PendingAction,
		RespondedAt:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Execute exposes the business logic for testing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func errorCode(err error) string {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return string(stdErr.Code)
	}
	return "TOOL_EXECUTION_FAILED"
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
