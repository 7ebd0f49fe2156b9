// internal/conversation/orchestrator.go

// Package conversation runs the tool-mediated chat loop: the model is shown
// a role-filtered tool catalogue, may request one tool per iteration via a
// fenced JSON block, and has its final reply checked against the entity IDs
// the tools actually returned.
package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sailmatch-workers/internal/ai/gateway"
	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/common/metrics"
	"sailmatch-workers/pkg/registry"
)

const UseCaseChat = "chat"

// AI is the gateway surface the orchestrator calls.
type AI interface {
	Call(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// ToolRunner executes a gated tool call.
type ToolRunner interface {
	Execute(ctx context.Context, caller Caller, call *ToolCall) (*ToolResult, error)
}

type Orchestrator struct {
	ai        AI
	runner    ToolRunner
	registry  *registry.ToolRegistry
	sessions  *SessionStore
	gazetteer Gazetteer
	cfg       config.ChatConfig
	logger    logger.Logger
}

func NewOrchestrator(
	ai AI,
	runner ToolRunner,
	reg *registry.ToolRegistry,
	sessions *SessionStore,
	gaz Gazetteer,
	cfg config.ChatConfig,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		ai:        ai,
		runner:    runner,
		registry:  reg,
		sessions:  sessions,
		gazetteer: gaz,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "conversation"}),
	}
}

// TurnInput is one chat request. ApprovedAction resubmits a previously
// surfaced pending action for execution.
type TurnInput struct {
	SessionID      string
	Caller         Caller
	Message        string
	ApprovedAction *PendingAction
}

// TurnOutput is the reply. PendingAction, when set, must be explicitly
// approved by the caller before anything is mutated.
type TurnOutput struct {
	SessionID     string
	Content       string
	PendingAction *PendingAction
}

// Respond runs one bounded conversation turn.
func (o *Orchestrator) Respond(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	session, err := o.sessions.Load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	visible := FilterCatalogue(o.registry, in.Caller)
	hints := LocationHint(ResolveLocations(ctx, o.gazetteer, in.Message, o.logger))
	system := o.systemPrompt(visible, hints)

	messages := append([]Message{}, session.Trim(o.cfg.HistoryLimit)...)
	messages = append(messages, Message{Role: "user", Content: in.Message})

	if in.ApprovedAction != nil {
		toolMsg, err := o.runApprovedAction(ctx, session, in.Caller, in.ApprovedAction)
		if err != nil {
			return nil, err
		}
		messages = append(messages, toolMsg)
	}
	session.Pending = nil

	content, pending, iterations := o.loop(ctx, session, in.Caller, system, messages)

	metrics.ChatIterations.WithLabelValues(callerTier(in.Caller)).Observe(float64(iterations))

	content = SuppressHallucinations(content, session.KnownIDs, o.logger)
	if FlagSuspectedHallucination(content, session.KnownIDs) {
		o.logger.Warn("reply claims specific results but no tool returned entities", map[string]interface{}{
			"sessionId": session.ID,
		})
	}

	session.Pending = pending
	session.History = append(session.History,
		Message{Role: "user", Content: in.Message},
		Message{Role: "assistant", Content: content},
	)
	session.History = session.Trim(o.cfg.HistoryLimit)
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &TurnOutput{SessionID: session.ID, Content: content, PendingAction: pending}, nil
}

// loop runs up to MaxIterations model calls. It returns the final content,
// any pending action surfaced, and the iteration count consumed.
func (o *Orchestrator) loop(ctx context.Context, session *Session, caller Caller, system string, messages []Message) (string, *PendingAction, int) {
	var lastContent string

	for i := 1; i <= o.cfg.MaxIterations; i++ {
		resp, err := o.ai.Call(ctx, &gateway.Request{
			UseCase: UseCaseChat,
			Prompt:  flatten(system, messages),
		})
		if err != nil {
			o.logger.Error("chat model call failed", map[string]interface{}{
				"sessionId": session.ID,
				"iteration": i,
				"error":     err.Error(),
			})
			return lastContent, nil, i
		}

		call := ParseToolCall(resp.Text)
		if call == nil {
			return resp.Text, nil, i
		}
		lastContent = StripToolCall(resp.Text)
		messages = append(messages, Message{Role: "assistant", Content: resp.Text})

		tool := o.registry.Get(call.Name)
		if tool == nil {
			messages = append(messages, toolErrorTurn(call.Name, errors.NewToolNotFoundError(call.Name)))
			continue
		}
		// The catalogue shown to the model was already filtered, but the
		// model's choice is never trusted against the real caller.
		if err := CheckAccess(tool, caller); err != nil {
			messages = append(messages, toolErrorTurn(call.Name, err))
			continue
		}
		if err := ValidateArguments(tool, call.Arguments); err != nil {
			messages = append(messages, toolErrorTurn(call.Name, err))
			continue
		}

		if tool.Category == "action" {
			return lastContent, &PendingAction{
				ToolName:  call.Name,
				Arguments: call.Arguments,
				Label:     actionLabel(tool),
			}, i
		}

		result, err := o.runner.Execute(ctx, caller, call)
		if err != nil {
			messages = append(messages, toolErrorTurn(call.Name, err))
			continue
		}
		for _, id := range result.IDs {
			session.KnownIDs[id] = true
		}
		messages = append(messages, toolResultTurn(call.Name, result))
	}

	// Iteration bound hit; return whatever content exists, possibly empty.
	o.logger.Warn("chat turn truncated at iteration bound", map[string]interface{}{
		"sessionId":     session.ID,
		"maxIterations": o.cfg.MaxIterations,
	})
	return lastContent, nil, o.cfg.MaxIterations
}

// runApprovedAction executes a resubmitted pending action. The resubmission
// must be identical to what was surfaced; anything else is rejected.
func (o *Orchestrator) runApprovedAction(ctx context.Context, session *Session, caller Caller, approved *PendingAction) (Message, error) {
	if session.Pending == nil || !sameAction(session.Pending, approved) {
		return Message{}, errors.NewBusinessRuleError(
			"approved action does not match the pending action",
			fmt.Sprintf("tool %q was not awaiting approval in session %s", approved.ToolName, session.ID),
		)
	}

	call := &ToolCall{Name: approved.ToolName, Arguments: approved.Arguments}
	tool := o.registry.Get(call.Name)
	if tool == nil {
		return Message{}, errors.NewToolNotFoundError(call.Name)
	}
	if err := CheckAccess(tool, caller); err != nil {
		return Message{}, err
	}

	result, err := o.runner.Execute(ctx, caller, call)
	if err != nil {
		return toolErrorTurn(call.Name, err), nil
	}
	for _, id := range result.IDs {
		session.KnownIDs[id] = true
	}
	return toolResultTurn(call.Name, result), nil
}

func (o *Orchestrator) systemPrompt(tools []registry.Tool, locationHints string) string {
	var b strings.Builder
	b.WriteString("You are the assistant for a sailing crew matchmaking service. ")
	b.WriteString("Answer only from data returned by tools; never invent journeys, legs or registrations.\n\n")
	b.WriteString("To use a tool, reply with exactly one fenced JSON block:\n")
	b.WriteString("```json\n{\"name\": \"<tool>\", \"arguments\": {...}}\n```\n\n")
	b.WriteString("Available tools:\n")
	b.WriteString(CatalogueText(tools))
	b.WriteString("\nCite entities inline as [label](journey:ID), [label](leg:ID) or [label](registration:ID), ")
	b.WriteString("using only IDs present in tool results.\n")
	if locationHints != "" {
		b.WriteString("\n")
		b.WriteString(locationHints)
	}
	return b.String()
}

// flatten renders the message list as one role-prefixed prompt.
func flatten(system string, messages []Message) string {
	var b strings.Builder
	b.WriteString("System: ")
	b.WriteString(system)
	b.WriteString("\n\n")
	for _, m := range messages {
		switch m.Role {
		case "user":
			b.WriteString("User: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			b.WriteString("Tool: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}

func toolResultTurn(name string, result *ToolResult) Message {
	return Message{
		Role: "tool",
		Content: fmt.Sprintf("Result of %s: %s\nAnswer the user's question using only this data.",
			name, result.JSON()),
	}
}

func toolErrorTurn(name string, err error) Message {
	return Message{
		Role:    "tool",
		Content: fmt.Sprintf("Tool %s failed: %s\nTell the user what went wrong; do not retry the same call.", name, err.Error()),
	}
}

func actionLabel(tool *registry.Tool) string {
	if tool.Label != "" {
		return tool.Label
	}
	return "Confirm " + strings.ReplaceAll(tool.Name, "_", " ")
}

func sameAction(a, b *PendingAction) bool {
	if a.ToolName != b.ToolName {
		return false
	}
	aj, err := json.Marshal(a.Arguments)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b.Arguments)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

func callerTier(c Caller) string {
	switch {
	case c.IsOwner:
		return "owner"
	case c.IsCrew:
		return "crew"
	case c.Authenticated:
		return "authenticated"
	default:
		return "public"
	}
}
