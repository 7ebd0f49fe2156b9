// internal/conversation/executor.go
package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/domain"
	"sailmatch-workers/internal/search"
	"sailmatch-workers/internal/store"
)

// Storage is the slice of the persistence collaborator the chat tools need.
type Storage interface {
	ListJourneysByOwner(ctx context.Context, ownerID string) ([]domain.Journey, error)
	ListRegistrationsForJourney(ctx context.Context, journeyID, statusFilter string) ([]store.RegistrationSummary, error)
	ListRegistrationsForUser(ctx context.Context, userID string) ([]store.RegistrationSummary, error)
	OwnsJourney(ctx context.Context, ownerID, registrationID string) (bool, error)
	SetRegistrationStatus(ctx context.Context, registrationID, newStatus string) error
	ResolveLocation(ctx context.Context, name string) (*store.GazetteerEntry, error)
}

// Searcher is the journey index collaborator behind search_journeys.
type Searcher interface {
	Search(ctx context.Context, q *search.JourneyQuery) ([]search.JourneyHit, int, error)
}

// ToolResult is one executed tool's output: the serialized data handed back
// to the model and the real entity IDs it contained.
type ToolResult struct {
	Data interface{}
	IDs  []string
}

// JSON renders the result data for the synthetic tool turn.
func (r *ToolResult) JSON() string {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Sprintf("%v", r.Data)
	}
	return string(data)
}

// Executor runs catalogue tools against the store and search index. The
// access tier has already been checked when Execute is called; action tools
// still re-verify ownership of the rows they mutate.
type Executor struct {
	storage  Storage
	searcher Searcher
	logger   logger.Logger
}

func NewExecutor(storage Storage, searcher Searcher, log logger.Logger) *Executor {
	return &Executor{storage: storage, searcher: searcher, logger: log}
}

func (e *Executor) Execute(ctx context.Context, caller Caller, call *ToolCall) (*ToolResult, error) {
	switch call.Name {
	case "search_journeys":
		return e.searchJourneys(ctx, call.Arguments)
	case "my_applications":
		return e.myApplications(ctx, caller)
	case "list_my_journeys":
		return e.listMyJourneys(ctx, caller)
	case "list_registrations":
		return e.listRegistrations(ctx, caller, call.Arguments)
	case "approve_registration":
		return e.setRegistrationStatus(ctx, caller, call.Arguments, domain.StatusApproved)
	case "reject_registration":
		return e.setRegistrationStatus(ctx, caller, call.Arguments, domain.StatusNotApproved)
	default:
		return nil, errors.NewToolNotFoundError(call.Name)
	}
}

func (e *Executor) searchJourneys(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	q := &search.JourneyQuery{
		Text:        stringArg(args, "text"),
		StartAfter:  stringArg(args, "startAfter"),
		StartBefore: stringArg(args, "startBefore"),
		MaxLevel:    intArg(args, "maxLevel"),
	}
	q.MinLat = floatArg(args, "minLat")
	q.MaxLat = floatArg(args, "maxLat")
	q.MinLon = floatArg(args, "minLon")
	q.MaxLon = floatArg(args, "maxLon")

	// A named region resolves to its bounding box unless explicit bounds were
	// given. An unknown name degrades to a text-only search.
	if place := stringArg(args, "location"); place != "" &&
		q.MinLat == nil && q.MaxLat == nil && q.MinLon == nil && q.MaxLon == nil {
		entry, err := e.storage.ResolveLocation(ctx, place)
		if err != nil {
			return nil, errors.NewToolExecutionFailedError("search_journeys", err)
		}
		if entry != nil {
			q.MinLat, q.MaxLat = &entry.MinLat, &entry.MaxLat
			q.MinLon, q.MaxLon = &entry.MinLon, &entry.MaxLon
		}
	}

	hits, total, err := e.searcher.Search(ctx, q)
	if err != nil {
		return nil, errors.NewToolExecutionFailedError("search_journeys", err)
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return &ToolResult{
		Data: map[string]interface{}{"total": total, "journeys": hits},
		IDs:  ids,
	}, nil
}

func (e *Executor) myApplications(ctx context.Context, caller Caller) (*ToolResult, error) {
	summaries, err := e.storage.ListRegistrationsForUser(ctx, caller.UserID)
	if err != nil {
		return nil, errors.NewToolExecutionFailedError("my_applications", err)
	}
	return &ToolResult{Data: summaries, IDs: registrationIDs(summaries)}, nil
}

func (e *Executor) listMyJourneys(ctx context.Context, caller Caller) (*ToolResult, error) {
	journeys, err := e.storage.ListJourneysByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, errors.NewToolExecutionFailedError("list_my_journeys", err)
	}
	ids := make([]string, 0, len(journeys))
	for _, j := range journeys {
		ids = append(ids, j.ID)
	}
	return &ToolResult{Data: journeys, IDs: ids}, nil
}

func (e *Executor) listRegistrations(ctx context.Context, caller Caller, args map[string]interface{}) (*ToolResult, error) {
	journeyID := stringArg(args, "journeyId")
	if journeyID == "" {
		return nil, errors.NewToolArgumentInvalidError("list_registrations", "journeyId is required")
	}

	owned, err := e.ownsJourneyByID(ctx, caller.UserID, journeyID)
	if err != nil {
		return nil, errors.NewToolExecutionFailedError("list_registrations", err)
	}
	if !owned {
		return nil, errors.NewPermissionDeniedError("list_registrations", "owner")
	}

	summaries, err := e.storage.ListRegistrationsForJourney(ctx, journeyID, stringArg(args, "status"))
	if err != nil {
		return nil, errors.NewToolExecutionFailedError("list_registrations", err)
	}
	return &ToolResult{Data: summaries, IDs: registrationIDs(summaries)}, nil
}

func (e *Executor) setRegistrationStatus(ctx context.Context, caller Caller, args map[string]interface{}, status string) (*ToolResult, error) {
	toolName := "approve_registration"
	if status == domain.StatusNotApproved {
		toolName = "reject_registration"
	}

	registrationID := stringArg(args, "registrationId")
	if registrationID == "" {
		return nil, errors.NewToolArgumentInvalidError(toolName, "registrationId is required")
	}

	// The caller may only act on registrations to their own journeys.
	owns, err := e.storage.OwnsJourney(ctx, caller.UserID, registrationID)
	if err != nil {
		return nil, errors.NewToolExecutionFailedError(toolName, err)
	}
	if !owns {
		return nil, errors.NewPermissionDeniedError(toolName, "owner")
	}

	if err := e.storage.SetRegistrationStatus(ctx, registrationID, status); err != nil {
		return nil, errors.NewToolExecutionFailedError(toolName, err)
	}

	e.logger.Info("registration status changed via chat action", map[string]interface{}{
		"registrationId": registrationID,
		"status":         status,
		"actorId":        caller.UserID,
	})
	return &ToolResult{
		Data: map[string]string{"registrationId": registrationID, "status": status},
		IDs:  []string{registrationID},
	}, nil
}

func (e *Executor) ownsJourneyByID(ctx context.Context, ownerID, journeyID string) (bool, error) {
	journeys, err := e.storage.ListJourneysByOwner(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, j := range journeys {
		if j.ID == journeyID {
			return true, nil
		}
	}
	return false, nil
}

func registrationIDs(summaries []store.RegistrationSummary) []string {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	return ids
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func floatArg(args map[string]interface{}, key string) *float64 {
	if v, ok := args[key].(float64); ok {
		return &v
	}
	return nil
}
