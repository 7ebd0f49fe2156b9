// internal/workers/matchmaking/send-notification/models.go
package sendnotification

type Input struct {
	RecipientID      string                 `json:"recipientId"`
	NotificationType string                 `json:"notificationType"`
	RegistrationID   string                 `json:"registrationId,omitempty"`
	JourneyName      string                 `json:"journeyName,omitempty"`
	Priority         string                 `json:"priority,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeRegistrationApproved = "registration_approved"
	TypeRegistrationPending  = "registration_pending"
	TypeCrewAutoApproved     = "crew_auto_approved"
	TypeOwnerNeedsReview     = "owner_needs_review"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
