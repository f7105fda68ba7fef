package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Keys the model is asked to return. The parser looks for exactly these.
const (
	FieldTechnicalMatch    = "technical_match"
	FieldExperienceMatch   = "experience_match"
	FieldSoftSkillsMatch   = "soft_skills_match"
	FieldOverallMatch      = "overall_match"
	FieldMissingKeywords   = "missing_keywords"
	FieldSummary           = "summary"
	FieldInterviewQuestion = "interview_question"
)

const analysisPromptTemplate = `ROLE: Senior Technical Recruiter and AI Engineer.
TASK: Analyze the Candidate CV against the Job Description. Judge meaning, seniority and context, not keyword overlap alone.

JOB DESCRIPTION:
<<<
%s
>>>

CANDIDATE CV:
<<<
%s
>>>

Score each dimension from 0 (no match) to 100 (perfect match):
- technical_match: required tools, languages, frameworks and platforms
- experience_match: years, seniority and relevance of past roles
- soft_skills_match: communication, collaboration, ownership and leadership
- overall_match: your overall judgement

List the important job keywords that the CV does not cover in missing_keywords.
Write a short technical summary of the candidate (2-4 sentences) in summary.
Write one hard technical interview question for this candidate in interview_question.

OUTPUT FORMAT (JSON ONLY, no markdown, no text before or after):
{
  "technical_match": <0-100>,
  "experience_match": <0-100>,
  "soft_skills_match": <0-100>,
  "overall_match": <0-100>,
  "missing_keywords": ["list", "of", "missing", "keywords"],
  "summary": "Technical summary of the candidate.",
  "interview_question": "One hard technical interview question."
}`

var ErrEmptyInput = errors.New("resume text and job description must not be empty")

// Prompt is a built analysis prompt plus what truncation did to its inputs.
type Prompt struct {
	Text                    string
	ResumeTruncated         bool
	JobDescriptionTruncated bool
}

type PromptBuilder struct {
	maxChars   int
	floorChars int
	overhead   int
}

// NewPromptBuilder returns a builder keeping the whole prompt within maxChars
// runes. floorChars is how much of each input survives the first two
// truncation passes.
func NewPromptBuilder(maxChars, floorChars int) *PromptBuilder {
	if floorChars < 0 {
		floorChars = 0
	}
	return &PromptBuilder{
		maxChars:   maxChars,
		floorChars: floorChars,
		overhead:   utf8.RuneCountInString(fmt.Sprintf(analysisPromptTemplate, "", "")),
	}
}

// BuildAnalysisPrompt embeds both texts in the analysis prompt. When the
// prompt would exceed the budget the job description is cut first, then the
// resume; each keeps its beginning.
func (pb *PromptBuilder) BuildAnalysisPrompt(resumeText, jobDescription string) (*Prompt, error) {
	if strings.TrimSpace(resumeText) == "" || strings.TrimSpace(jobDescription) == "" {
		return nil, ErrEmptyInput
	}

	resumeLen := utf8.RuneCountInString(resumeText)
	jdLen := utf8.RuneCountInString(jobDescription)
	jdKeep, resumeKeep := fitBudget(jdLen, resumeLen, pb.Capacity(), pb.floorChars)
	if jdKeep == 0 || resumeKeep == 0 {
		return nil, pb.budgetError()
	}

	prompt := &Prompt{
		JobDescriptionTruncated: jdKeep < jdLen,
		ResumeTruncated:         resumeKeep < resumeLen,
	}
	jobDescription = truncateRunes(jobDescription, jdKeep)
	resumeText = truncateRunes(resumeText, resumeKeep)
	prompt.Text = fmt.Sprintf(analysisPromptTemplate, jobDescription, resumeText)

	return prompt, nil
}

// Capacity is how many runes of input fit beside the template.
func (pb *PromptBuilder) Capacity() int {
	return max(pb.maxChars-pb.overhead, 0)
}

// CheckBudget fails when the budget cannot hold at least one rune of each
// input, so a misconfiguration is caught at startup.
func (pb *PromptBuilder) CheckBudget() error {
	if pb.Capacity() < 2 {
		return pb.budgetError()
	}
	return nil
}

func (pb *PromptBuilder) budgetError() error {
	return &ConfigurationError{
		Setting: "PROMPT_MAX_CHARS",
		Reason:  fmt.Sprintf("(%d) leaves no room for the CV and job description; the prompt template alone takes %d characters", pb.maxChars, pb.overhead),
	}
}

// fitBudget decides how many runes of each text to keep. Pass one trims the
// job description down to floor, pass two trims the resume down to floor,
// pass three removes what is still over budget, job description first.
func fitBudget(jdLen, resumeLen, available, floor int) (jdKeep, resumeKeep int) {
	jdKeep, resumeKeep = jdLen, resumeLen
	excess := jdKeep + resumeKeep - available
	if excess <= 0 {
		return jdKeep, resumeKeep
	}

	cut := func(keep *int, limit int) {
		if excess <= 0 || *keep <= limit {
			return
		}
		n := min(excess, *keep-limit)
		*keep -= n
		excess -= n
	}

	cut(&jdKeep, floor)
	cut(&resumeKeep, floor)
	cut(&jdKeep, 0)
	cut(&resumeKeep, 0)

	return jdKeep, resumeKeep
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
