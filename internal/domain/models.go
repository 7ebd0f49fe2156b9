// internal/domain/models.go
package domain

// RequirementType is the closed set of requirement kinds a journey owner can
// attach to a journey. risk_level and experience_level are pre-checked
// without AI; skill, passport and question are AI-scored.
type RequirementType string

const (
	RequirementRiskLevel       RequirementType = "risk_level"
	RequirementExperienceLevel RequirementType = "experience_level"
	RequirementSkill           RequirementType = "skill"
	RequirementPassport        RequirementType = "passport"
	RequirementQuestion        RequirementType = "question"
)

// Requirement is immutable once created by the journey owner; the assessment
// pipeline only reads it.
type Requirement struct {
	ID                    string           `json:"id"`
	JourneyID             string           `json:"journeyId"`
	Type                  RequirementType  `json:"type"`
	QuestionText          string           `json:"questionText,omitempty"`
	SkillName             string           `json:"skillName,omitempty"`
	QualificationCriteria string           `json:"qualificationCriteria,omitempty"`
	Weight                float64          `json:"weight"` // clamped to [0,10]
	IsRequired            bool             `json:"isRequired"`
	Order                 int              `json:"order"`
	PassportOptions       *PassportOptions `json:"passportOptions,omitempty"`
}

type PassportOptions struct {
	RequirePhotoValidation bool    `json:"requirePhotoValidation"`
	PassConfidenceScore    float64 `json:"passConfidenceScore"` // 0-10, default 7
}

// AssessmentResult is one row per (registration, requirement), upserted
// idempotently. Passed stays nil until the overall decision is computed.
type AssessmentResult struct {
	RegistrationID  string   `json:"registrationId"`
	RequirementID   string   `json:"requirementId"`
	Score           float64  `json:"score"` // clamped to [0,10]
	Reasoning       string   `json:"reasoning"`
	Passed          *bool    `json:"passed"`
	PhotoVerified   *bool    `json:"photoVerified,omitempty"`
	PhotoConfidence *float64 `json:"photoConfidence,omitempty"`
}

// Registration statuses. A registration is auto-approved only while still
// pending.
const (
	StatusPendingApproval = "Pending approval"
	StatusApproved        = "Approved"
	StatusNotApproved     = "Not approved"
	StatusCancelled       = "Cancelled"
)

type Registration struct {
	ID               string `json:"id"`
	UserID           string `json:"userId"`
	LegID            string `json:"legId"`
	Status           string `json:"status"`
	AIMatchScore     int    `json:"aiMatchScore"` // 0-100
	AIMatchReasoning string `json:"aiMatchReasoning"`
	AutoApproved     bool   `json:"autoApproved"`
	// AnswersSnapshot is the canonical JSON of the answers the last completed
	// assessment scored. Empty until a registration has been assessed.
	AnswersSnapshot string `json:"-"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

type Journey struct {
	ID                   string   `json:"id"`
	OwnerID              string   `json:"ownerId"`
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	RiskLevels           []string `json:"riskLevels"`         // required sailing risk levels
	MinExperienceLevel   int      `json:"minExperienceLevel"` // ordinal 1-4
	AutoApproveEnabled   bool     `json:"autoApproveEnabled"`
	AutoApproveThreshold int      `json:"autoApproveThreshold"` // 0 means use default
}

type Leg struct {
	ID                 string  `json:"id"`
	JourneyID          string  `json:"journeyId"`
	Name               string  `json:"name"`
	StartLocation      string  `json:"startLocation"`
	EndLocation        string  `json:"endLocation"`
	StartDate          string  `json:"startDate"`
	EndDate            string  `json:"endDate"`
	StartLat           float64 `json:"startLat,omitempty"`
	StartLon           float64 `json:"startLon,omitempty"`
	MinExperienceLevel int     `json:"minExperienceLevel,omitempty"` // overrides journey when set
	CrewNeeded         int     `json:"crewNeeded,omitempty"`
}

// Profile is the crew member's sailing profile. Risk comfort levels and
// skills arrive from the web layer in inconsistent shapes (scalar, array or
// JSON-encoded string); the pipeline normalizes them.
type Profile struct {
	UserID             string   `json:"userId"`
	DisplayName        string   `json:"displayName"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone,omitempty"`
	ExperienceLevel    int      `json:"experienceLevel"` // ordinal 1-4
	RiskComfortRaw     string   `json:"riskComfortRaw"`  // raw column value, tolerant parse
	Skills             []string `json:"skills,omitempty"`
	PassportImageURL   string   `json:"passportImageUrl,omitempty"`
	PhotoImageURL      string   `json:"photoImageUrl,omitempty"`
	AIConsentGiven     bool     `json:"aiConsentGiven"`
	ProfileDescription string   `json:"profileDescription,omitempty"`
}

// Answer is a crew member's submitted answer to a question-type requirement.
// Freshly written answers are handed to the pipeline directly instead of
// being re-read after a settle delay.
type Answer struct {
	RequirementID string `json:"requirementId"`
	UserID        string `json:"userId"`
	Text          string `json:"text"`
}

// ExperienceLevelName maps the ordinal crew experience level to its
// human-readable name, used verbatim in pre-check failure messages.
func ExperienceLevelName(level int) string {
	switch level {
	case 1:
		return "Novice"
	case 2:
		return "Competent Crew"
	case 3:
		return "Coastal Skipper"
	case 4:
		return "Ocean Skipper"
	default:
		return "Unknown"
	}
}
