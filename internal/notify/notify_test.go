// internal/notify/notify_test.go
package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/database"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/domain"
)

type fakeSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.sent = append(f.sent, input)
	return &ses.SendEmailOutput{}, f.err
}

type fakeSNS struct {
	published []*sns.PublishInput
}

func (f *fakeSNS) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.published = append(f.published, input)
	return &sns.PublishOutput{}, nil
}

func newTestNotifier(t *testing.T, sesSvc SESService, snsSvc SNSService) (*Notifier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.NotificationConfig{}
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "noreply@sailmatch.example"
	cfg.SMS.Enabled = true

	return New(&database.PostgresClient{DB: db}, sesSvc, snsSvc, cfg, logger.NewTestLogger(t)), mock
}

func TestCreateInsertsRowWithGeneratedID(t *testing.T) {
	n, mock := newTestNotifier(t, nil, nil)

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "user-1", TypeRegistrationPending,
			"Application received", "body", "reg-1", PriorityNormal).
		WillReturnResult(sqlmock.NewResult(0, 1))

	notification := &Notification{
		UserID:   "user-1",
		Type:     TypeRegistrationPending,
		Title:    "Application received",
		Body:     "body",
		EntityID: "reg-1",
	}
	require.NoError(t, n.Create(context.Background(), notification))
	assert.NotEmpty(t, notification.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyCrewApprovedSendsEmail(t *testing.T) {
	sesSvc := &fakeSES{}
	n, mock := newTestNotifier(t, sesSvc, nil)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &domain.Profile{UserID: "user-1", Email: "crew@example.com"}
	require.NoError(t, n.NotifyCrewApproved(context.Background(), profile, "Biscay Crossing", "reg-1"))

	require.Len(t, sesSvc.sent, 1)
	assert.Equal(t, []string{"crew@example.com"}, sesSvc.sent[0].Destination.ToAddresses)
	assert.Contains(t, *sesSvc.sent[0].Message.Body.Text.Data, "Biscay Crossing")
}

func TestNotifyOwnerAutoApprovedIsHighPriorityWithSMS(t *testing.T) {
	sesSvc := &fakeSES{}
	snsSvc := &fakeSNS{}
	n, mock := newTestNotifier(t, sesSvc, snsSvc)

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "owner-1", TypeCrewAutoApproved,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "reg-1", PriorityHigh).
		WillReturnResult(sqlmock.NewResult(0, 1))

	owner := &domain.Profile{UserID: "owner-1", Email: "owner@example.com", Phone: "+34600000000"}
	require.NoError(t, n.NotifyOwnerAutoApproved(context.Background(), owner, "Alex", "Biscay Crossing", "reg-1"))

	require.Len(t, snsSvc.published, 1)
	assert.Equal(t, "+34600000000", *snsSvc.published[0].PhoneNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailFailureDoesNotFailNotification(t *testing.T) {
	sesSvc := &fakeSES{err: fmt.Errorf("ses throttled")}
	n, mock := newTestNotifier(t, sesSvc, nil)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &domain.Profile{UserID: "user-1", Email: "crew@example.com"}
	assert.NoError(t, n.NotifyCrewApproved(context.Background(), profile, "Biscay Crossing", "reg-1"))
}

func TestInsertFailureSurfacesError(t *testing.T) {
	n, mock := newTestNotifier(t, nil, nil)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnError(fmt.Errorf("connection reset"))

	err := n.Create(context.Background(), &Notification{UserID: "u", Type: TypeRegistrationPending})
	assert.Error(t, err)
}
