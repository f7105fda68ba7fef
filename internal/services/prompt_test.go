package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAnalysisPrompt_EmbedsInputsVerbatim(t *testing.T) {
	pb := NewPromptBuilder(60000, 2000)

	resume := "Jane Doe\nSenior Go engineer, 8 years.\nKafka, PostgreSQL, gRPC"
	jd := "We need a backend engineer with Go and Kubernetes."

	prompt, err := pb.BuildAnalysisPrompt(resume, jd)
	require.NoError(t, err)

	assert.Contains(t, prompt.Text, resume)
	assert.Contains(t, prompt.Text, jd)
	assert.False(t, prompt.ResumeTruncated)
	assert.False(t, prompt.JobDescriptionTruncated)

	for _, key := range []string{FieldTechnicalMatch, FieldExperienceMatch, FieldSoftSkillsMatch, FieldMissingKeywords, FieldSummary} {
		assert.Contains(t, prompt.Text, key)
	}
}

func TestBuildAnalysisPrompt_RejectsEmptyInput(t *testing.T) {
	pb := NewPromptBuilder(60000, 2000)

	tests := []struct {
		name   string
		resume string
		jd     string
	}{
		{"empty resume", "", "Go engineer"},
		{"empty job description", "Jane Doe", ""},
		{"whitespace resume", " \n\t ", "Go engineer"},
		{"whitespace job description", "Jane Doe", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := pb.BuildAnalysisPrompt(tt.resume, tt.jd)
			assert.ErrorIs(t, err, ErrEmptyInput)
			assert.Nil(t, prompt)
		})
	}
}

func TestBuildAnalysisPrompt_StaysWithinBudget(t *testing.T) {
	pb := NewPromptBuilder(6000, 500)

	resume := strings.Repeat("résumé ", 2000)
	jd := strings.Repeat("job ", 2000)

	prompt, err := pb.BuildAnalysisPrompt(resume, jd)
	require.NoError(t, err)

	assert.LessOrEqual(t, utf8.RuneCountInString(prompt.Text), 6000)
	assert.True(t, prompt.ResumeTruncated)
	assert.True(t, prompt.JobDescriptionTruncated)
	assert.True(t, utf8.ValidString(prompt.Text))
}

func TestBuildAnalysisPrompt_CutsJobDescriptionFirst(t *testing.T) {
	pb := NewPromptBuilder(0, 100)
	available := 3000
	pb.maxChars = pb.overhead + available

	resume := strings.Repeat("r", 2000)
	jd := strings.Repeat("j", 2000)

	prompt, err := pb.BuildAnalysisPrompt(resume, jd)
	require.NoError(t, err)

	assert.True(t, prompt.JobDescriptionTruncated)
	assert.False(t, prompt.ResumeTruncated)
	assert.Contains(t, prompt.Text, resume)
	assert.Contains(t, prompt.Text, strings.Repeat("j", 1000))
	assert.NotContains(t, prompt.Text, strings.Repeat("j", 1001))
	assert.Equal(t, pb.maxChars, utf8.RuneCountInString(prompt.Text))
}

func TestBuildAnalysisPrompt_TruncationKeepsPrefix(t *testing.T) {
	pb := NewPromptBuilder(0, 10)
	pb.maxChars = pb.overhead + 40

	resume := "RESUME-START " + strings.Repeat("x", 200) + " RESUME-END"
	jd := "JD-START " + strings.Repeat("y", 200) + " JD-END"

	prompt, err := pb.BuildAnalysisPrompt(resume, jd)
	require.NoError(t, err)

	assert.Contains(t, prompt.Text, "RESUME-START")
	assert.NotContains(t, prompt.Text, "RESUME-END")
	assert.NotContains(t, prompt.Text, "JD-END")
}

func TestFitBudget(t *testing.T) {
	tests := []struct {
		name               string
		jdLen, resumeLen   int
		available, floor   int
		wantJD, wantResume int
	}{
		{"fits", 100, 100, 500, 50, 100, 100},
		{"jd cut only", 300, 100, 300, 50, 200, 100},
		{"jd down to floor then resume", 300, 300, 200, 50, 50, 150},
		{"both at floor then jd to zero", 300, 300, 60, 50, 10, 50},
		{"nothing fits", 300, 300, 0, 50, 0, 0},
		{"input shorter than floor", 20, 300, 100, 50, 20, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jd, resume := fitBudget(tt.jdLen, tt.resumeLen, tt.available, tt.floor)
			assert.Equal(t, tt.wantJD, jd, "job description")
			assert.Equal(t, tt.wantResume, resume, "resume")
			assert.LessOrEqual(t, jd+resume, max(tt.available, 0))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", truncateRunes("héllo", 0))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "héllo", truncateRunes("héllo", 50))
}

func TestBuildAnalysisPrompt_BudgetTooSmall(t *testing.T) {
	tests := []struct {
		name  string
		extra int
		floor int
	}{
		{"below template size", -500, 0},
		{"exactly template size", 0, 0},
		{"room for one input only", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewPromptBuilder(0, tt.floor)
			pb.maxChars = pb.overhead + tt.extra

			prompt, err := pb.BuildAnalysisPrompt("Go developer", "Backend engineer")
			assert.Nil(t, prompt)

			var configErr *ConfigurationError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, "PROMPT_MAX_CHARS", configErr.Setting)
		})
	}
}

func TestCheckBudget(t *testing.T) {
	pb := NewPromptBuilder(100, 0)
	var configErr *ConfigurationError
	assert.ErrorAs(t, pb.CheckBudget(), &configErr)
	assert.Equal(t, 0, pb.Capacity())

	pb = NewPromptBuilder(60000, 2000)
	assert.NoError(t, pb.CheckBudget())
	assert.Equal(t, 60000-pb.overhead, pb.Capacity())
}
