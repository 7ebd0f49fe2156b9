// internal/assessment/pipeline_test.go
package assessment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/domain"
	"sailmatch-workers/internal/store"
)

type fakeStorage struct {
	ctx          *store.AssessmentContext
	loadErr      error
	answers      map[string]domain.Answer
	upserted     []domain.AssessmentResult
	passedSet    *bool
	approvedCall *struct {
		score  int
		status string
		auto   bool
	}
	approveErr    error
	scoreOnlyCall *struct {
		score     int
		reasoning string
	}
	savedSnapshot *string
}

func (f *fakeStorage) LoadAssessmentContext(ctx context.Context, registrationID string) (*store.AssessmentContext, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.ctx, nil
}

func (f *fakeStorage) GetAnswers(ctx context.Context, userID string, requirementIDs []string) (map[string]domain.Answer, error) {
	if f.answers == nil {
		return map[string]domain.Answer{}, nil
	}
	return f.answers, nil
}

func (f *fakeStorage) UpsertAssessmentResult(ctx context.Context, r *domain.AssessmentResult) error {
	f.upserted = append(f.upserted, *r)
	return nil
}

func (f *fakeStorage) SetResultsPassed(ctx context.Context, registrationID string, passed bool) error {
	f.passedSet = &passed
	return nil
}

func (f *fakeStorage) UpdateRegistrationAssessment(ctx context.Context, registrationID string, score int, reasoning, newStatus string, autoApproved bool) error {
	if f.approveErr != nil {
		return f.approveErr
	}
	f.approvedCall = &struct {
		score  int
		status string
		auto   bool
	}{score, newStatus, autoApproved}
	return nil
}

func (f *fakeStorage) SaveAnswersSnapshot(ctx context.Context, registrationID, snapshot string) error {
	f.savedSnapshot = &snapshot
	return nil
}

func (f *fakeStorage) RecordAssessmentScoreOnly(ctx context.Context, registrationID string, score int, reasoning string) error {
	f.scoreOnlyCall = &struct {
		score     int
		reasoning string
	}{score, reasoning}
	return nil
}

type fakeNotifications struct {
	crewApproved, crewPending, ownerAutoApproved, ownerNeedsReview int
}

func (f *fakeNotifications) NotifyCrewApproved(ctx context.Context, profile *domain.Profile, journeyName, registrationID string) error {
	f.crewApproved++
	return nil
}
func (f *fakeNotifications) NotifyCrewPending(ctx context.Context, profile *domain.Profile, journeyName, registrationID string) error {
	f.crewPending++
	return nil
}
func (f *fakeNotifications) NotifyOwnerAutoApproved(ctx context.Context, owner *domain.Profile, crewName, journeyName, registrationID string) error {
	f.ownerAutoApproved++
	return nil
}
func (f *fakeNotifications) NotifyOwnerNeedsReview(ctx context.Context, owner *domain.Profile, crewName, journeyName, registrationID string, score int) error {
	f.ownerNeedsReview++
	return nil
}

func baseContext() *store.AssessmentContext {
	return &store.AssessmentContext{
		Registration: &domain.Registration{
			ID:     "reg-1",
			UserID: "user-1",
			LegID:  "leg-1",
			Status: domain.StatusPendingApproval,
		},
		Leg: &domain.Leg{ID: "leg-1", JourneyID: "jrn-1"},
		Journey: &domain.Journey{
			ID:                 "jrn-1",
			OwnerID:            "owner-1",
			Name:               "Biscay Crossing",
			AutoApproveEnabled: true,
			RiskLevels:         []string{"Coastal sailing"},
			MinExperienceLevel: 2,
		},
		Requirements: []domain.Requirement{
			{ID: "req-skill", JourneyID: "jrn-1", Type: domain.RequirementSkill, SkillName: "Navigation", Weight: 1},
		},
		Profile: &domain.Profile{
			UserID:          "user-1",
			DisplayName:     "Alex",
			ExperienceLevel: 3,
			RiskComfortRaw:  `["Coastal sailing","Offshore sailing"]`,
			AIConsentGiven:  true,
		},
		Owner: &domain.Profile{UserID: "owner-1", DisplayName: "Sam"},
	}
}

func newTestPipeline(t *testing.T, storage *fakeStorage, ai AI, notifier *fakeNotifications) *Pipeline {
	t.Helper()
	cfg := config.AssessmentConfig{AutoApproveThreshold: 80, PhotoMatchConfidence: 0.70}
	scorer := NewScorer(ai, staticImage("aW1n"), cfg, logger.NewTestLogger(t))
	return NewPipeline(storage, scorer, notifier, cfg, logger.NewTestLogger(t))
}

func TestRunAutoApprovesAboveThreshold(t *testing.T) {
	storage := &fakeStorage{ctx: baseContext()}
	ai := &fakeAI{responses: []string{`[{"index":0,"score":9,"reasoning":"excellent"}]`}}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.True(t, outcome.AutoApproved)
	assert.Equal(t, 90, outcome.Score)
	require.NotNil(t, storage.passedSet)
	assert.True(t, *storage.passedSet)
	require.NotNil(t, storage.approvedCall)
	assert.Equal(t, domain.StatusApproved, storage.approvedCall.status)
	assert.Equal(t, 1, notifier.crewApproved)
	assert.Equal(t, 1, notifier.ownerAutoApproved)
	assert.Zero(t, notifier.crewPending)
}

func TestRunBelowThresholdGoesToReview(t *testing.T) {
	storage := &fakeStorage{ctx: baseContext()}
	ai := &fakeAI{responses: []string{`[{"index":0,"score":5,"reasoning":"partial"}]`}}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.False(t, outcome.AutoApproved)
	assert.Equal(t, 50, outcome.Score)
	require.NotNil(t, storage.passedSet)
	assert.False(t, *storage.passedSet)
	assert.Nil(t, storage.approvedCall)
	require.NotNil(t, storage.scoreOnlyCall)
	assert.Equal(t, 1, notifier.crewPending)
	assert.Equal(t, 1, notifier.ownerNeedsReview)
}

func TestRunSkipsWhenAutoApprovalDisabled(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Journey.AutoApproveEnabled = false
	storage := &fakeStorage{ctx: assessCtx}
	ai := &fakeAI{}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.True(t, outcome.Skipped)
	assert.Empty(t, ai.requests, "no AI call when the journey opted out")
	assert.Nil(t, storage.passedSet)
}

func TestRunConsentGateBlocksAICalls(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Profile.AIConsentGiven = false
	storage := &fakeStorage{ctx: assessCtx}
	ai := &fakeAI{}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.True(t, outcome.Skipped)
	assert.Empty(t, ai.requests)
	assert.Equal(t, 1, notifier.ownerNeedsReview)
}

func TestRunPrecheckFailureShortCircuitsAI(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Journey.RiskLevels = []string{"Coastal sailing", "Ocean crossing"}
	assessCtx.Profile.RiskComfortRaw = `["Coastal sailing"]`
	storage := &fakeStorage{ctx: assessCtx}
	ai := &fakeAI{}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.True(t, outcome.AssessmentFailed)
	assert.False(t, outcome.AutoApproved)
	assert.Empty(t, ai.requests, "pre-check failure must prevent AI scoring")
	assert.Contains(t, outcome.Reasoning, "Ocean crossing")
	assert.Equal(t, 1, notifier.ownerNeedsReview)
}

func TestRunExperiencePrecheckFailure(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Profile.ExperienceLevel = 2
	assessCtx.Leg.MinExperienceLevel = 3
	storage := &fakeStorage{ctx: assessCtx}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, &fakeAI{}, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.True(t, outcome.AssessmentFailed)
	assert.Contains(t, outcome.Reasoning, "Competent Crew")
	assert.Contains(t, outcome.Reasoning, "Coastal Skipper")
}

func TestRunFailClosedOnScorerError(t *testing.T) {
	storage := &fakeStorage{ctx: baseContext()}
	ai := &fakeAI{err: fmt.Errorf("all providers down")}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	// No scored requirements + assessmentFailed: the aggregate of an empty
	// set is 100, but the fail-closed policy still blocks approval.
	assert.True(t, outcome.AssessmentFailed)
	assert.False(t, outcome.AutoApproved)
	assert.Equal(t, 100, outcome.Score)
	assert.Equal(t, 1, notifier.ownerNeedsReview)
}

func TestRunEmptyRequirementSetAutoApproves(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Requirements = nil
	storage := &fakeStorage{ctx: assessCtx}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, &fakeAI{}, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 100, outcome.Score)
	assert.True(t, outcome.AutoApproved)
}

func TestRunNonPendingRegistrationNeverAutoApproved(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Registration.Status = domain.StatusCancelled
	storage := &fakeStorage{ctx: assessCtx}
	ai := &fakeAI{responses: []string{`[{"index":0,"score":10,"reasoning":"perfect"}]`}}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.False(t, outcome.AutoApproved)
	assert.Nil(t, storage.approvedCall)
}

func TestRunGuardedUpdateLossDowngradesToReview(t *testing.T) {
	storage := &fakeStorage{
		ctx:        baseContext(),
		approveErr: fmt.Errorf("registration reg-1 is no longer pending"),
	}
	ai := &fakeAI{responses: []string{`[{"index":0,"score":10,"reasoning":"perfect"}]`}}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.False(t, outcome.AutoApproved)
	require.NotNil(t, storage.scoreOnlyCall)
	assert.Equal(t, 1, notifier.crewPending)
	assert.Zero(t, notifier.crewApproved)
}

func TestRunLoadFailureAbortsWithoutWrites(t *testing.T) {
	storage := &fakeStorage{loadErr: fmt.Errorf("registration missing")}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, &fakeAI{}, notifier)
	_, err := p.Run(context.Background(), "reg-1", nil)
	require.Error(t, err)
	assert.Nil(t, storage.passedSet)
	assert.Empty(t, storage.upserted)
}

func TestRunFreshAnswersOverrideStored(t *testing.T) {
	assessCtx := baseContext()
	assessCtx.Requirements = []domain.Requirement{
		{ID: "q-1", JourneyID: "jrn-1", Type: domain.RequirementQuestion, QuestionText: "Why this journey?", Weight: 1},
	}
	storage := &fakeStorage{
		ctx: assessCtx,
		answers: map[string]domain.Answer{
			"q-1": {RequirementID: "q-1", Text: "stale answer"},
		},
	}
	ai := &fakeAI{responses: []string{`[{"index":0,"score":8,"reasoning":"good"}]`}}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	_, err := p.Run(context.Background(), "reg-1", []domain.Answer{
		{RequirementID: "q-1", UserID: "user-1", Text: "fresh answer"},
	})
	require.NoError(t, err)

	require.Len(t, ai.requests, 1)
	assert.Contains(t, ai.requests[0].Prompt, "fresh answer")
	assert.NotContains(t, ai.requests[0].Prompt, "stale answer")
}

func questionContext() *store.AssessmentContext {
	assessCtx := baseContext()
	assessCtx.Requirements = []domain.Requirement{
		{ID: "q-1", JourneyID: "jrn-1", Type: domain.RequirementQuestion, QuestionText: "Why this journey?", Weight: 1},
	}
	return assessCtx
}

func TestRunIdenticalResubmissionReusesPriorResult(t *testing.T) {
	assessCtx := questionContext()
	assessCtx.Registration.AIMatchScore = 85
	assessCtx.Registration.AIMatchReasoning = "good fit"
	assessCtx.Registration.AnswersSnapshot = `[{"requirementId":"q-1","text":"I love the Atlantic"}]`
	storage := &fakeStorage{
		ctx: assessCtx,
		answers: map[string]domain.Answer{
			"q-1": {RequirementID: "q-1", Text: "I love the Atlantic"},
		},
	}
	ai := &fakeAI{}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 85, outcome.Score)
	assert.Equal(t, "good fit", outcome.Reasoning)
	assert.Empty(t, ai.requests, "unchanged answers must not trigger AI calls")
	assert.Empty(t, storage.upserted)
	assert.Nil(t, storage.passedSet)
	assert.Zero(t, notifier.crewPending+notifier.ownerNeedsReview)
}

func TestRunChangedAnswersAreReassessed(t *testing.T) {
	assessCtx := questionContext()
	assessCtx.Registration.AnswersSnapshot = `[{"requirementId":"q-1","text":"old answer"}]`
	storage := &fakeStorage{
		ctx: assessCtx,
		answers: map[string]domain.Answer{
			"q-1": {RequirementID: "q-1", Text: "new answer"},
		},
	}
	ai := &fakeAI{responses: []string{`[{"index":0,"score":8,"reasoning":"good"}]`}}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	_, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	require.Len(t, ai.requests, 1)
	require.NotNil(t, storage.savedSnapshot)
	assert.Equal(t, `[{"requirementId":"q-1","text":"new answer"}]`, *storage.savedSnapshot)
}

func TestRunSnapshotNotSavedOnScorerFailure(t *testing.T) {
	storage := &fakeStorage{
		ctx: questionContext(),
		answers: map[string]domain.Answer{
			"q-1": {RequirementID: "q-1", Text: "an answer"},
		},
	}
	ai := &fakeAI{err: fmt.Errorf("all providers down")}
	notifier := &fakeNotifications{}

	p := newTestPipeline(t, storage, ai, notifier)
	outcome, err := p.Run(context.Background(), "reg-1", nil)
	require.NoError(t, err)

	assert.True(t, outcome.AssessmentFailed)
	assert.Nil(t, storage.savedSnapshot, "a failed run must stay re-runnable")
}
