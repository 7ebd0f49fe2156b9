// internal/notify/notify.go

// Package notify creates in-app notification rows and fans out email/SMS
// delivery for assessment outcomes.
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/database"
	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/domain"
)

// SESService abstracts the SES client for testability.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SNSService abstracts the SNS client for testability.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notification is one in-app notification row. The row insert is the source
// of truth; email and SMS are best-effort copies of it.
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	EntityID  string `json:"entityId,omitempty"` // registration or journey id
	Priority  string `json:"priority"`           // normal | high
	CreatedAt string `json:"createdAt,omitempty"`
}

const (
	TypeRegistrationApproved = "registration_approved"
	TypeRegistrationPending  = "registration_pending"
	TypeCrewAutoApproved     = "crew_auto_approved"
	TypeCrewNeedsReview      = "crew_needs_review"

	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Notifier struct {
	db     *database.PostgresClient
	ses    SESService
	sns    SNSService
	cfg    config.NotificationConfig
	logger logger.Logger
}

func New(db *database.PostgresClient, sesSvc SESService, snsSvc SNSService, cfg config.NotificationConfig, log logger.Logger) *Notifier {
	return &Notifier{
		db:     db,
		ses:    sesSvc,
		sns:    snsSvc,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Create inserts the notification row. Delivery channels are handled by the
// typed helpers below; callers that only need the in-app row call this
// directly.
func (n *Notifier) Create(ctx context.Context, notification *Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.Priority == "" {
		notification.Priority = PriorityNormal
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, body, entity_id, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := n.db.Exec(ctx, query,
		notification.ID, notification.UserID, notification.Type,
		notification.Title, notification.Body, notification.EntityID,
		notification.Priority,
	)
	if err != nil {
		return errors.NewNotificationSendFailedError(notification.Type, err)
	}

	n.logger.Info("notification created", map[string]interface{}{
		"notificationId": notification.ID,
		"userId":         notification.UserID,
		"type":           notification.Type,
	})
	return nil
}

// NotifyCrewApproved tells the crew member their registration was
// auto-approved.
func (n *Notifier) NotifyCrewApproved(ctx context.Context, profile *domain.Profile, journeyName, registrationID string) error {
	notification := &Notification{
		UserID:   profile.UserID,
		Type:     TypeRegistrationApproved,
		Title:    "You're on the crew!",
		Body:     fmt.Sprintf("Your application for %s has been approved.", journeyName),
		EntityID: registrationID,
	}
	if err := n.Create(ctx, notification); err != nil {
		return err
	}
	n.sendEmail(ctx, profile.Email, notification.Title, notification.Body)
	return nil
}

// NotifyCrewPending tells the crew member the owner will review their
// application manually.
func (n *Notifier) NotifyCrewPending(ctx context.Context, profile *domain.Profile, journeyName, registrationID string) error {
	return n.Create(ctx, &Notification{
		UserID:   profile.UserID,
		Type:     TypeRegistrationPending,
		Title:    "Application received",
		Body:     fmt.Sprintf("Your application for %s is awaiting the owner's review.", journeyName),
		EntityID: registrationID,
	})
}

// NotifyOwnerAutoApproved tells the journey owner a crew member was
// auto-approved on their behalf. High priority: the owner may want to undo it.
func (n *Notifier) NotifyOwnerAutoApproved(ctx context.Context, owner *domain.Profile, crewName, journeyName, registrationID string) error {
	notification := &Notification{
		UserID:   owner.UserID,
		Type:     TypeCrewAutoApproved,
		Title:    "Crew member auto-approved",
		Body:     fmt.Sprintf("%s was automatically approved for %s.", crewName, journeyName),
		EntityID: registrationID,
		Priority: PriorityHigh,
	}
	if err := n.Create(ctx, notification); err != nil {
		return err
	}
	n.sendEmail(ctx, owner.Email, notification.Title, notification.Body)
	n.sendSMS(ctx, owner.Phone, notification.Body)
	return nil
}

// NotifyOwnerNeedsReview tells the journey owner a new application needs a
// manual decision, including the match score to triage by.
func (n *Notifier) NotifyOwnerNeedsReview(ctx context.Context, owner *domain.Profile, crewName, journeyName, registrationID string, score int) error {
	notification := &Notification{
		UserID:   owner.UserID,
		Type:     TypeCrewNeedsReview,
		Title:    "New crew application",
		Body:     fmt.Sprintf("%s applied for %s (match score %d/100). Review required.", crewName, journeyName, score),
		EntityID: registrationID,
	}
	if err := n.Create(ctx, notification); err != nil {
		return err
	}
	n.sendEmail(ctx, owner.Email, notification.Title, notification.Body)
	return nil
}

// sendEmail is best-effort: a delivery failure is logged, never propagated,
// because the in-app row already exists.
func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) {
	if !n.cfg.Email.Enabled || n.ses == nil || to == "" {
		return
	}

	input := &ses.SendEmailInput{
		Source: awssdk.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	}

	if _, err := n.ses.SendEmail(ctx, input); err != nil {
		n.logger.Warn("email delivery failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
	}
}

// sendSMS publishes to SNS for high-priority notifications only.
func (n *Notifier) sendSMS(ctx context.Context, phone, message string) {
	if !n.cfg.SMS.Enabled || n.sns == nil || phone == "" {
		return
	}

	input := &sns.PublishInput{
		PhoneNumber: awssdk.String(phone),
		Message:     awssdk.String(message),
	}

	if _, err := n.sns.Publish(ctx, input); err != nil {
		n.logger.Warn("sms delivery failed", map[string]interface{}{
			"phone": phone,
			"error": err.Error(),
		})
	}
}
