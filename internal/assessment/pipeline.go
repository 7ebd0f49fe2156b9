// internal/assessment/pipeline.go

// Package assessment decides automated approval of crew registrations: AI-free
// pre-checks, per-type AI scoring, weighted aggregation and a fail-closed
// decision.
package assessment

import (
	"context"
	"fmt"
	"strings"

	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/common/metrics"
	"sailmatch-workers/internal/domain"
	"sailmatch-workers/internal/store"
)

// Storage is the persistence surface the pipeline needs; satisfied by
// *store.Store.
type Storage interface {
	LoadAssessmentContext(ctx context.Context, registrationID string) (*store.AssessmentContext, error)
	GetAnswers(ctx context.Context, userID string, requirementIDs []string) (map[string]domain.Answer, error)
	UpsertAssessmentResult(ctx context.Context, r *domain.AssessmentResult) error
	SetResultsPassed(ctx context.Context, registrationID string, passed bool) error
	SaveAnswersSnapshot(ctx context.Context, registrationID, snapshot string) error
	UpdateRegistrationAssessment(ctx context.Context, registrationID string, score int, reasoning, newStatus string, autoApproved bool) error
	RecordAssessmentScoreOnly(ctx context.Context, registrationID string, score int, reasoning string) error
}

// Notifications is the delivery surface; satisfied by *notify.Notifier.
type Notifications interface {
	NotifyCrewApproved(ctx context.Context, profile *domain.Profile, journeyName, registrationID string) error
	NotifyCrewPending(ctx context.Context, profile *domain.Profile, journeyName, registrationID string) error
	NotifyOwnerAutoApproved(ctx context.Context, owner *domain.Profile, crewName, journeyName, registrationID string) error
	NotifyOwnerNeedsReview(ctx context.Context, owner *domain.Profile, crewName, journeyName, registrationID string, score int) error
}

// Outcome is the pipeline's terminal result for one registration.
type Outcome struct {
	RegistrationID   string `json:"registrationId"`
	Skipped          bool   `json:"skipped"` // auto-approval disabled or consent missing
	Score            int    `json:"score"`
	AutoApproved     bool   `json:"autoApproved"`
	AssessmentFailed bool   `json:"assessmentFailed"`
	Reasoning        string `json:"reasoning"`
}

type Pipeline struct {
	storage  Storage
	scorer   *Scorer
	notifier Notifications
	cfg      config.AssessmentConfig
	logger   logger.Logger
}

func NewPipeline(storage Storage, scorer *Scorer, notifier Notifications, cfg config.AssessmentConfig, log logger.Logger) *Pipeline {
	return &Pipeline{
		storage:  storage,
		scorer:   scorer,
		notifier: notifier,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "assessment-pipeline"}),
	}
}

// Run assesses one registration end to end. freshAnswers carries answers the
// caller just wrote, handed over directly so the pipeline never races the
// answer write. The policy is fail-closed: any per-type scoring error forces
// rejection no matter how high the numeric score is.
func (p *Pipeline) Run(ctx context.Context, registrationID string, freshAnswers []domain.Answer) (*Outcome, error) {
	// 1. Load context. A missing row aborts before any writes.
	assessCtx, err := p.storage.LoadAssessmentContext(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{RegistrationID: registrationID}
	journey := assessCtx.Journey
	profile := assessCtx.Profile
	crewName := profile.DisplayName
	if crewName == "" {
		crewName = "A crew member"
	}

	// 2. Auto-approval gate.
	if !journey.AutoApproveEnabled {
		p.logger.Info("auto-approval disabled for journey, skipping", map[string]interface{}{
			"registrationId": registrationID,
			"journeyId":      journey.ID,
		})
		outcome.Skipped = true
		return outcome, nil
	}

	// 3. Consent gate: without AI consent no AI call is made; the owner
	// reviews manually.
	if !profile.AIConsentGiven {
		outcome.Skipped = true
		outcome.Reasoning = "Crew member has not consented to AI processing"
		if err := p.notifier.NotifyOwnerNeedsReview(ctx, assessCtx.Owner, crewName, journey.Name, registrationID, 0); err != nil {
			p.logger.Warn("owner notification failed", map[string]interface{}{"error": err.Error()})
		}
		return outcome, nil
	}

	// 4. Identical-resubmission check. Answers are collected once, up front;
	// when their canonical snapshot is byte-equal to the one the last
	// completed assessment scored, the prior result is reused without any AI
	// call or write.
	var questionReqs []domain.Requirement
	for _, req := range assessCtx.Requirements {
		if req.Type == domain.RequirementQuestion {
			questionReqs = append(questionReqs, req)
		}
	}
	answers, answersErr := p.collectAnswers(ctx, profile.UserID, questionReqs, freshAnswers)
	snapshot := ""
	if answersErr == nil {
		snapshot = canonicalAnswersSnapshot(answers)
		if reg := assessCtx.Registration; reg.AnswersSnapshot != "" && reg.AnswersSnapshot == snapshot {
			outcome.Score = reg.AIMatchScore
			outcome.AutoApproved = reg.AutoApproved
			outcome.Reasoning = reg.AIMatchReasoning
			metrics.AssessmentsCompleted.WithLabelValues("reused").Inc()
			p.logger.Info("answers unchanged since last assessment, reusing prior result", map[string]interface{}{
				"registrationId": registrationID,
				"score":          reg.AIMatchScore,
			})
			return outcome, nil
		}
	}

	var trail []string
	assessmentFailed := false

	// 5. Pre-checks, no AI involved.
	if missing := CheckRiskLevels(journey.RiskLevels, profile.RiskComfortRaw); len(missing) > 0 {
		assessmentFailed = true
		trail = append(trail, fmt.Sprintf("Risk level check failed: missing %s", strings.Join(missing, ", ")))
	}
	requiredLevel := RequiredExperienceLevel(journey, assessCtx.Leg)
	if ok, msg := CheckExperienceLevel(profile.ExperienceLevel, requiredLevel); !ok {
		assessmentFailed = true
		trail = append(trail, msg)
	}

	p.recordPrecheckResults(ctx, assessCtx, registrationID, !assessmentFailed, trail)

	// 6. Per-type AI assessment, skipped entirely when a pre-check failed.
	var scored []domain.AssessmentResult
	if !assessmentFailed {
		scored, trail = p.runScorers(ctx, assessCtx, registrationID, answers, answersErr, trail, &assessmentFailed)
	} else {
		trail = append(trail, "AI assessment skipped after pre-check failure")
	}

	// 7. Aggregation over AI-scored requirements only.
	weights := make(map[string]float64)
	for _, req := range assessCtx.Requirements {
		weights[req.ID] = req.Weight
	}
	aggregate := Aggregate(scored, weights)

	// 8. Decision.
	threshold := journey.AutoApproveThreshold
	if threshold <= 0 {
		threshold = p.cfg.AutoApproveThreshold
	}
	autoApprove := !assessmentFailed &&
		aggregate >= threshold &&
		assessCtx.Registration.Status == domain.StatusPendingApproval

	outcome.Score = aggregate
	outcome.AssessmentFailed = assessmentFailed
	outcome.Reasoning = strings.Join(trail, " | ")

	// 9. Persistence.
	if err := p.storage.SetResultsPassed(ctx, registrationID, autoApprove); err != nil {
		return nil, err
	}

	if autoApprove {
		err := p.storage.UpdateRegistrationAssessment(ctx, registrationID, aggregate, outcome.Reasoning, domain.StatusApproved, true)
		if err != nil {
			// The guarded update lost to a concurrent status change; fall
			// back to the manual-review branch.
			p.logger.Warn("auto-approval update rejected, downgrading to manual review", map[string]interface{}{
				"registrationId": registrationID,
				"error":          err.Error(),
			})
			autoApprove = false
			if err := p.storage.RecordAssessmentScoreOnly(ctx, registrationID, aggregate, outcome.Reasoning); err != nil {
				return nil, err
			}
		}
	} else {
		if err := p.storage.RecordAssessmentScoreOnly(ctx, registrationID, aggregate, outcome.Reasoning); err != nil {
			return nil, err
		}
	}
	outcome.AutoApproved = autoApprove

	// A failed assessment is not a completed one: only a clean run records
	// its snapshot, so a transient scorer outage never blocks a re-run.
	if !assessmentFailed && answersErr == nil {
		if err := p.storage.SaveAnswersSnapshot(ctx, registrationID, snapshot); err != nil {
			p.logger.Warn("answers snapshot persistence failed", map[string]interface{}{
				"registrationId": registrationID,
				"error":          err.Error(),
			})
		}
	}

	// 10. Notification: exactly one branch fires.
	p.dispatchNotifications(ctx, assessCtx, outcome, crewName)

	status := "needs_review"
	if autoApprove {
		status = "auto_approved"
	}
	metrics.AssessmentsCompleted.WithLabelValues(status).Inc()

	p.logger.Info("assessment complete", map[string]interface{}{
		"registrationId":   registrationID,
		"score":            aggregate,
		"autoApproved":     autoApprove,
		"assessmentFailed": assessmentFailed,
	})
	return outcome, nil
}

// runScorers executes the three AI scorer types. Each is independently
// fault-tolerant: one type failing records the error and flips the fail-closed
// flag without blocking the others.
func (p *Pipeline) runScorers(ctx context.Context, assessCtx *store.AssessmentContext, registrationID string, answers map[string]domain.Answer, answersErr error, trail []string, assessmentFailed *bool) ([]domain.AssessmentResult, []string) {
	var skillReqs, questionReqs, passportReqs []domain.Requirement
	for _, req := range assessCtx.Requirements {
		switch req.Type {
		case domain.RequirementSkill:
			skillReqs = append(skillReqs, req)
		case domain.RequirementQuestion:
			questionReqs = append(questionReqs, req)
		case domain.RequirementPassport:
			passportReqs = append(passportReqs, req)
		}
	}

	var scored []domain.AssessmentResult

	if len(skillReqs) > 0 {
		results, err := p.scorer.ScoreSkills(ctx, skillReqs, assessCtx.Profile)
		if err != nil {
			*assessmentFailed = true
			trail = append(trail, fmt.Sprintf("Skill assessment failed: %v", err))
		} else {
			scored = append(scored, results...)
		}
	}

	if len(questionReqs) > 0 {
		if answersErr != nil {
			*assessmentFailed = true
			trail = append(trail, fmt.Sprintf("Answer lookup failed: %v", answersErr))
		} else {
			results, err := p.scorer.ScoreQuestions(ctx, questionReqs, answers)
			if err != nil {
				*assessmentFailed = true
				trail = append(trail, fmt.Sprintf("Question assessment failed: %v", err))
			} else {
				scored = append(scored, results...)
			}
		}
	}

	for _, req := range passportReqs {
		result, err := p.scorer.ScorePassport(ctx, req, assessCtx.Profile)
		if err != nil {
			*assessmentFailed = true
			trail = append(trail, fmt.Sprintf("Passport assessment failed: %v", err))
			continue
		}
		scored = append(scored, result)
	}

	// Upsert each result as produced; a retry overwrites rather than
	// duplicates.
	for i := range scored {
		scored[i].RegistrationID = registrationID
		if scored[i].Reasoning != "" {
			trail = append(trail, scored[i].Reasoning)
		}
		if err := p.storage.UpsertAssessmentResult(ctx, &scored[i]); err != nil {
			*assessmentFailed = true
			trail = append(trail, fmt.Sprintf("Result persistence failed: %v", err))
		}
	}

	return scored, trail
}

// collectAnswers merges freshly handed-over answers on top of stored ones.
func (p *Pipeline) collectAnswers(ctx context.Context, userID string, questionReqs []domain.Requirement, freshAnswers []domain.Answer) (map[string]domain.Answer, error) {
	ids := make([]string, 0, len(questionReqs))
	for _, req := range questionReqs {
		ids = append(ids, req.ID)
	}

	answers, err := p.storage.GetAnswers(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range freshAnswers {
		answers[a.RequirementID] = a
	}
	return answers, nil
}

// recordPrecheckResults writes result rows for requirement rows of the
// pre-check types. They carry no weight in the aggregate but the owner sees
// their outcome alongside the AI-scored rows.
func (p *Pipeline) recordPrecheckResults(ctx context.Context, assessCtx *store.AssessmentContext, registrationID string, passed bool, trail []string) {
	score := 10.0
	reasoning := "Pre-checks passed"
	if !passed {
		score = 0
		reasoning = strings.Join(trail, " | ")
	}

	for _, req := range assessCtx.Requirements {
		if req.Type != domain.RequirementRiskLevel && req.Type != domain.RequirementExperienceLevel {
			continue
		}
		result := &domain.AssessmentResult{
			RegistrationID: registrationID,
			RequirementID:  req.ID,
			Score:          score,
			Reasoning:      reasoning,
		}
		if err := p.storage.UpsertAssessmentResult(ctx, result); err != nil {
			p.logger.Warn("precheck result persistence failed", map[string]interface{}{
				"requirementId": req.ID,
				"error":         err.Error(),
			})
		}
	}
}

func (p *Pipeline) dispatchNotifications(ctx context.Context, assessCtx *store.AssessmentContext, outcome *Outcome, crewName string) {
	journeyName := assessCtx.Journey.Name
	registrationID := outcome.RegistrationID

	var errs []error
	if outcome.AutoApproved {
		errs = append(errs,
			p.notifier.NotifyCrewApproved(ctx, assessCtx.Profile, journeyName, registrationID),
			p.notifier.NotifyOwnerAutoApproved(ctx, assessCtx.Owner, crewName, journeyName, registrationID),
		)
	} else {
		errs = append(errs,
			p.notifier.NotifyCrewPending(ctx, assessCtx.Profile, journeyName, registrationID),
			p.notifier.NotifyOwnerNeedsReview(ctx, assessCtx.Owner, crewName, journeyName, registrationID, outcome.Score),
		)
	}
	for _, err := range errs {
		if err != nil {
			p.logger.Warn("notification dispatch failed", map[string]interface{}{
				"registrationId": registrationID,
				"error":          err.Error(),
			})
		}
	}
}
