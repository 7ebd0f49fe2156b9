// internal/workers/matchmaking/chat-turn/models.go
package chatturn

import "sailmatch-workers/internal/conversation"

type Input struct {
	SessionID     string                 `json:"sessionId,omitempty"`
	UserID        string                 `json:"userId,omitempty"`
	Authenticated bool                   `json:"authenticated"`
	IsCrew        bool                   `json:"isCrew"`
	IsOwner       bool                   `json:"isOwner"`
	Message       string                 `json:"message"`
	// ApprovedAction resubmits a pending action surfaced on a previous turn.
	ApprovedAction *conversation.PendingAction `json:"approvedAction,omitempty"`
}

type Output struct {
	SessionID     string                      `json:"sessionId"`
	Content       string                      `json:"content"`
	PendingAction *conversation.PendingAction `json:"pendingAction,omitempty"`
	RespondedAt   string                      `json:"respondedAt"` // ISO 8601
}
