package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvanalyzer/semantic-cv-analyzer/internal/models"
)

const sampleReply = `{"technical_match": 90, "experience_match": 85, "soft_skills_match": 70, "missing_keywords": ["Kubernetes"], "summary": "Experienced Python backend engineer with AWS."}`

type analyzerFixture struct {
	llm      *scriptedLLM
	loader   *stubLoader
	metrics  *Metrics
	analyzer AnalyzerService
}

func newAnalyzerFixture(llm LLMClient, timeout time.Duration) *analyzerFixture {
	f := &analyzerFixture{
		loader:  &stubLoader{content: &DocumentContent{Text: "Jane Doe\nGo, PostgreSQL, Kafka", PageCount: 2, MIMEType: mimePDF}},
		metrics: NewMetrics(),
	}
	if scripted, ok := llm.(*scriptedLLM); ok {
		f.llm = scripted
	}
	f.analyzer = NewAnalyzerService(
		f.loader,
		llm,
		NewPromptBuilder(60000, 2000),
		NewResponseParser(false),
		f.metrics,
		timeout,
		nil,
	)
	return f
}

func (f *analyzerFixture) outcomes(outcome string) float64 {
	return counterValue(f.metrics.Registry(), "cv_analyzer_analyses_total", map[string]string{"outcome": outcome})
}

func TestAnalyze_Success(t *testing.T) {
	f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: sampleReply}), time.Second)
	ctx := WithRequestID(context.Background(), "req-123")

	report, err := f.analyzer.Analyze(ctx, models.AnalysisRequest{
		ResumeText:     "5 years Python, Django, AWS",
		JobDescription: "Seeking Python backend engineer, 3+ years, AWS experience",
	})
	require.NoError(t, err)

	assert.Equal(t, "req-123", report.RequestID)
	assert.Equal(t, "fake", report.Provider)
	assert.Equal(t, 90, report.Result.TechnicalMatch)
	assert.Equal(t, 85, report.Result.ExperienceMatch)
	assert.Equal(t, 70, report.Result.SoftSkillsMatch)
	assert.Equal(t, []string{"Kubernetes"}, report.Result.MissingKeywords)
	assert.Equal(t, "Experienced Python backend engineer with AWS.", report.Result.Summary)
	assert.Empty(t, report.Result.Warnings)
	assert.False(t, report.ResumeTruncated)
	assert.False(t, report.JobDescriptionTruncated)

	prompt := f.llm.lastPrompt()
	assert.Contains(t, prompt, "5 years Python, Django, AWS")
	assert.Contains(t, prompt, "Seeking Python backend engineer, 3+ years, AWS experience")

	assert.Equal(t, float64(1), f.outcomes(OutcomeSuccess))
}

func TestAnalyze_GeneratesRequestID(t *testing.T) {
	f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: sampleReply}), time.Second)

	report, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "cv", JobDescription: "jd"})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RequestID)
}

func TestAnalyze_EmptyInputSkipsLLM(t *testing.T) {
	f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: sampleReply}), time.Second)

	report, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "  ", JobDescription: "jd"})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.EqualValues(t, 0, f.llm.calls.Load())
	assert.Equal(t, float64(1), f.outcomes(OutcomeInvalidRequest))
}

func TestAnalyze_Timeout(t *testing.T) {
	f := newAnalyzerFixture(newScriptedLLM(scriptedReply{hang: true}), 20*time.Millisecond)

	start := time.Now()
	_, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "cv", JobDescription: "jd"})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Timeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, float64(1), f.outcomes(OutcomeTimeout))
}

// rawDeadlineLLM returns the bare context error, as some transports do.
type rawDeadlineLLM struct{}

func (rawDeadlineLLM) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (rawDeadlineLLM) Provider() string { return "raw" }

func TestAnalyze_TimeoutFromBareContextError(t *testing.T) {
	f := newAnalyzerFixture(rawDeadlineLLM{}, 20*time.Millisecond)

	_, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "cv", JobDescription: "jd"})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Timeout)
	assert.Equal(t, "raw", transportErr.Provider)
}

func TestAnalyze_MissingAPIKey(t *testing.T) {
	cause := &ConfigurationError{Setting: "API key", Reason: "is missing"}
	f := newAnalyzerFixture(NewUnavailableLLM("gemini", cause), time.Second)

	assert.False(t, f.analyzer.LLMConfigured())
	assert.Equal(t, "gemini", f.analyzer.Provider())

	_, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "cv", JobDescription: "jd"})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, float64(1), f.outcomes(OutcomeConfigurationError))
}

func TestAnalyze_UnparseableReply(t *testing.T) {
	f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: "As an AI model I cannot score people."}), time.Second)

	_, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "cv", JobDescription: "jd"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, float64(1), f.outcomes(OutcomeParseError))
}

func TestAnalyze_RecordsParseWarnings(t *testing.T) {
	reply := `{"technical_match": 120, "experience_match": 60, "summary": "ok"}`
	f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: reply}), time.Second)

	report, err := f.analyzer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "cv", JobDescription: "jd"})
	require.NoError(t, err)

	assert.Equal(t, 100, report.Result.TechnicalMatch)
	assert.True(t, report.Result.HasWarning(FieldSoftSkillsMatch, models.WarningMissing))

	reg := f.metrics.Registry()
	assert.Equal(t, float64(1), counterValue(reg, "cv_analyzer_parse_warnings_total",
		map[string]string{"field": FieldTechnicalMatch, "kind": string(models.WarningClamped)}))
	assert.Equal(t, float64(1), counterValue(reg, "cv_analyzer_parse_warnings_total",
		map[string]string{"field": FieldSoftSkillsMatch, "kind": string(models.WarningMissing)}))
}

func TestAnalyze_ReportsTruncation(t *testing.T) {
	llm := newScriptedLLM(scriptedReply{text: sampleReply})
	pb := NewPromptBuilder(0, 100)
	pb.maxChars = pb.overhead + 500

	analyzer := NewAnalyzerService(&stubLoader{}, llm, pb, NewResponseParser(false), nil, time.Second, nil)

	report, err := analyzer.Analyze(context.Background(), models.AnalysisRequest{
		ResumeText:     strings.Repeat("cv ", 100),
		JobDescription: strings.Repeat("jd ", 1000),
	})
	require.NoError(t, err)
	assert.True(t, report.JobDescriptionTruncated)
	assert.False(t, report.ResumeTruncated)
}

func TestAnalyzeDocument(t *testing.T) {
	t.Run("extracts then analyzes", func(t *testing.T) {
		f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: sampleReply}), time.Second)

		report, err := f.analyzer.AnalyzeDocument(context.Background(), []byte("%PDF-"), "cv.pdf", "Go engineer")
		require.NoError(t, err)

		assert.Equal(t, 2, report.ResumePages)
		assert.Contains(t, f.llm.lastPrompt(), "Go, PostgreSQL, Kafka")
	})

	t.Run("extraction failure stops the pipeline", func(t *testing.T) {
		f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: sampleReply}), time.Second)
		f.loader.err = &ExtractionError{Filename: "scan.pdf", Reason: "no text content found"}

		_, err := f.analyzer.AnalyzeDocument(context.Background(), []byte("%PDF-"), "scan.pdf", "Go engineer")

		var extractionErr *ExtractionError
		assert.ErrorAs(t, err, &extractionErr)
		assert.EqualValues(t, 0, f.llm.calls.Load())
		assert.Equal(t, float64(1), f.outcomes(OutcomeExtractionError))
	})

	t.Run("empty job description", func(t *testing.T) {
		f := newAnalyzerFixture(newScriptedLLM(scriptedReply{text: sampleReply}), time.Second)

		_, err := f.analyzer.AnalyzeDocument(context.Background(), []byte("%PDF-"), "cv.pdf", "\n")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}
