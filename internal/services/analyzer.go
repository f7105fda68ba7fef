package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cvanalyzer/semantic-cv-analyzer/internal/logger"
	"cvanalyzer/semantic-cv-analyzer/internal/models"
)

type AnalyzerService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error)
	AnalyzeDocument(ctx context.Context, data []byte, filename, jobDescription string) (*models.AnalysisReport, error)
	LLMConfigured() bool
	Provider() string
}

type analyzerService struct {
	loader        DocumentLoader
	llm           LLMClient
	promptBuilder *PromptBuilder
	parser        *ResponseParser
	metrics       *Metrics
	timeout       time.Duration
	log           *logger.Logger
}

func NewAnalyzerService(
	loader DocumentLoader,
	llm LLMClient,
	promptBuilder *PromptBuilder,
	parser *ResponseParser,
	metrics *Metrics,
	timeout time.Duration,
	log *logger.Logger,
) AnalyzerService {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &analyzerService{
		loader:        loader,
		llm:           llm,
		promptBuilder: promptBuilder,
		parser:        parser,
		metrics:       metrics,
		timeout:       timeout,
		log:           log.WithComponent("analyzer"),
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx so the report and logs carry the caller's id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

func (a *analyzerService) LLMConfigured() bool {
	return IsLLMConfigured(a.llm)
}

func (a *analyzerService) Provider() string {
	return a.llm.Provider()
}

// AnalyzeDocument extracts the resume text from an uploaded file and analyzes it.
func (a *analyzerService) AnalyzeDocument(ctx context.Context, data []byte, filename, jobDescription string) (*models.AnalysisReport, error) {
	requestID := requestIDFrom(ctx)
	ctx = WithRequestID(ctx, requestID)
	log := a.log.WithRequestID(requestID)

	if strings.TrimSpace(jobDescription) == "" {
		a.metrics.ObserveOutcome(OutcomeInvalidRequest)
		return nil, ErrEmptyInput
	}

	log.Info().Str("filename", filename).Int("bytes", len(data)).Msg("extracting resume text")
	content, err := a.loader.ExtractText(ctx, data, filename)
	if err != nil {
		log.Warn().Err(err).Msg("resume extraction failed")
		a.metrics.ObserveOutcome(OutcomeFor(err))
		return nil, err
	}
	log.Info().Int("pages", content.PageCount).Str("mime", content.MIMEType).Int("chars", len(content.Text)).Msg("resume text extracted")

	report, err := a.Analyze(ctx, models.AnalysisRequest{
		ResumeText:     content.Text,
		JobDescription: jobDescription,
	})
	if err != nil {
		return nil, err
	}
	report.ResumePages = content.PageCount
	return report, nil
}

// Analyze runs prompt building, the LLM call and reply parsing once.
func (a *analyzerService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error) {
	requestID := requestIDFrom(ctx)
	log := a.log.WithRequestID(requestID)
	start := time.Now()

	report, err := a.analyze(ctx, req, log)
	outcome := OutcomeFor(err)
	a.metrics.ObserveOutcome(outcome)
	if err != nil {
		log.Error().Err(err).Str("outcome", outcome).Dur("elapsed", time.Since(start)).Msg("analysis failed")
		return nil, err
	}

	report.RequestID = requestID
	report.Duration = time.Since(start)
	report.DurationMs = report.Duration.Milliseconds()
	log.Info().
		Int("technical", report.Result.TechnicalMatch).
		Int("experience", report.Result.ExperienceMatch).
		Int("soft_skills", report.Result.SoftSkillsMatch).
		Int("missing_keywords", len(report.Result.MissingKeywords)).
		Dur("elapsed", report.Duration).
		Msg("analysis completed")
	return report, nil
}

func (a *analyzerService) analyze(ctx context.Context, req models.AnalysisRequest, log *logger.Logger) (*models.AnalysisReport, error) {
	prompt, err := a.promptBuilder.BuildAnalysisPrompt(req.ResumeText, req.JobDescription)
	if err != nil {
		return nil, err
	}
	if prompt.JobDescriptionTruncated || prompt.ResumeTruncated {
		log.Warn().
			Bool("job_description_truncated", prompt.JobDescriptionTruncated).
			Bool("resume_truncated", prompt.ResumeTruncated).
			Msg("inputs truncated to fit the prompt budget")
	}
	log.Debug().Int("prompt_chars", len(prompt.Text)).Msg("sending prompt")

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	llmStart := time.Now()
	raw, err := a.llm.Complete(callCtx, prompt.Text)
	a.metrics.ObserveLLMDuration(a.llm.Provider(), time.Since(llmStart))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			var transportErr *TransportError
			if !errors.As(err, &transportErr) || !transportErr.Timeout {
				err = &TransportError{Provider: a.llm.Provider(), Timeout: true, Err: err}
			}
		}
		return nil, err
	}
	log.Debug().Int("response_chars", len(raw)).Msg("LLM response received")

	result, err := a.parser.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("response_head", truncateRunes(raw, 200)).Msg("could not parse LLM response")
		return nil, err
	}
	for _, w := range result.Warnings {
		a.metrics.ObserveParseWarning(w.Field, string(w.Kind))
		log.Warn().Str("field", w.Field).Str("kind", string(w.Kind)).Msg("LLM response field needs attention")
	}

	return &models.AnalysisReport{
		Result:                  result,
		Provider:                a.llm.Provider(),
		ResumeTruncated:         prompt.ResumeTruncated,
		JobDescriptionTruncated: prompt.JobDescriptionTruncated,
	}, nil
}

// OutcomeFor names the outcome of err as recorded in metrics.
func OutcomeFor(err error) string {
	var (
		extractionErr *ExtractionError
		configErr     *ConfigurationError
		transportErr  *TransportError
		parseErr      *ParseError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrEmptyInput):
		return OutcomeInvalidRequest
	case errors.As(err, &extractionErr):
		return OutcomeExtractionError
	case errors.As(err, &configErr):
		return OutcomeConfigurationError
	case errors.As(err, &transportErr):
		if transportErr.Timeout {
			return OutcomeTimeout
		}
		return OutcomeTransportError
	case errors.As(err, &parseErr):
		return OutcomeParseError
	default:
		return OutcomeInternalError
	}
}
