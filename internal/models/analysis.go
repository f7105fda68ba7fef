package models

import "time"

// AnalysisRequest is one user submission. It is not kept after the response.
type AnalysisRequest struct {
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description" validate:"required"`
}

type WarningKind string

const (
	WarningMissing WarningKind = "missing"
	WarningClamped WarningKind = "clamped"
	WarningInvalid WarningKind = "invalid"
)

// FieldWarning flags a recoverable problem with one field of the LLM reply.
type FieldWarning struct {
	Field string      `json:"field"`
	Kind  WarningKind `json:"kind"`
}

// AnalysisResult is the parsed LLM reply. Scores are always in [0, 100].
type AnalysisResult struct {
	TechnicalMatch    int            `json:"technical_match"`
	ExperienceMatch   int            `json:"experience_match"`
	SoftSkillsMatch   int            `json:"soft_skills_match"`
	OverallMatch      *int           `json:"overall_match,omitempty"`
	MissingKeywords   []string       `json:"missing_keywords"`
	Summary           string         `json:"summary"`
	InterviewQuestion string         `json:"interview_question,omitempty"`
	Warnings          []FieldWarning `json:"warnings,omitempty"`
}

func (r *AnalysisResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasWarning reports whether field carries a warning of the given kind.
func (r *AnalysisResult) HasWarning(field string, kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Field == field && w.Kind == kind {
			return true
		}
	}
	return false
}

// AnalysisReport wraps a result with what happened on the way to it.
type AnalysisReport struct {
	RequestID               string          `json:"request_id"`
	Result                  *AnalysisResult `json:"result"`
	Provider                string          `json:"provider"`
	ResumePages             int             `json:"resume_pages,omitempty"`
	ResumeTruncated         bool            `json:"resume_truncated"`
	JobDescriptionTruncated bool            `json:"job_description_truncated"`
	Duration                time.Duration   `json:"-"`
	DurationMs              int64           `json:"duration_ms"`
}
