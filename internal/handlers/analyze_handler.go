package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"cvanalyzer/semantic-cv-analyzer/internal/logger"
	"cvanalyzer/semantic-cv-analyzer/internal/models"
	"cvanalyzer/semantic-cv-analyzer/internal/services"
)

const pageTitle = "Semantic CV Analyzer"

type AnalyzeHandler struct {
	analyzer     services.AnalyzerService
	maxFileSize  int64
	setupMessage string
	validate     *validator.Validate
	log          *logger.Logger
}

// NewAnalyzeHandler serves the web form and the JSON API. setupMessage is
// shown on the form while no API key is configured.
func NewAnalyzeHandler(
	analyzer services.AnalyzerService,
	maxFileSize int64,
	setupMessage string,
	log *logger.Logger,
) *AnalyzeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalyzeHandler{
		analyzer:     analyzer,
		maxFileSize:  maxFileSize,
		setupMessage: setupMessage,
		validate:     validator.New(),
		log:          log.WithComponent("http"),
	}
}

func (h *AnalyzeHandler) pageData(jobDescription string) fiber.Map {
	return fiber.Map{
		"Title":          pageTitle,
		"JobDescription": jobDescription,
		"LLMConfigured":  h.analyzer.LLMConfigured(),
		"SetupMessage":   h.setupMessage,
		"MaxFileSizeMB":  h.maxFileSize / (1 << 20),
	}
}

// HandleIndex handles GET /
func (h *AnalyzeHandler) HandleIndex(c *fiber.Ctx) error {
	return c.Render("index", h.pageData(""))
}

// HandleAnalyzeForm handles POST /analyze from the web form and renders the
// result, or the error, on the same page.
func (h *AnalyzeHandler) HandleAnalyzeForm(c *fiber.Ctx) error {
	jobDescription := c.FormValue("job_description")
	data := h.pageData(jobDescription)

	report, err := h.analyzeUpload(c, jobDescription)
	if err != nil {
		view := describeError(err)
		data["Error"] = view
		return c.Status(view.Status).Render("index", data)
	}

	data["Report"] = report
	return c.Render("index", data)
}

// HandleAnalyzeAPI handles POST /api/v1/analyze (multipart: cv, job_description)
func (h *AnalyzeHandler) HandleAnalyzeAPI(c *fiber.Ctx) error {
	report, err := h.analyzeUpload(c, c.FormValue("job_description"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(report)
}

// HandleAnalyzeText handles POST /api/v1/analyze/text with both texts as JSON.
func (h *AnalyzeHandler) HandleAnalyzeText(c *fiber.Ctx) error {
	var req models.AnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request payload",
			Kind:  services.OutcomeInvalidRequest,
			Code:  fiber.StatusBadRequest,
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:  "resume_text and job_description are required",
			Kind:   services.OutcomeInvalidRequest,
			Code:   fiber.StatusBadRequest,
			Detail: err.Error(),
		})
	}

	report, err := h.analyzer.Analyze(h.requestContext(c), req)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(report)
}

func (h *AnalyzeHandler) analyzeUpload(c *fiber.Ctx, jobDescription string) (*models.AnalysisReport, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, services.ErrEmptyInput
	}

	cvFile, err := c.FormFile("cv")
	if err != nil {
		return nil, services.ErrEmptyInput
	}

	if cvFile.Size > h.maxFileSize {
		return nil, h.tooLargeError(cvFile.Filename)
	}

	data, err := readUpload(cvFile, h.maxFileSize)
	if err != nil {
		return nil, &services.ExtractionError{Filename: cvFile.Filename, Reason: "upload could not be read", Err: err}
	}

	return h.analyzer.AnalyzeDocument(h.requestContext(c), data, cvFile.Filename, jobDescription)
}

func (h *AnalyzeHandler) tooLargeError(filename string) error {
	return &services.ExtractionError{
		Filename: filename,
		Reason:   fmt.Sprintf("file too large, max size is %d bytes", h.maxFileSize),
	}
}

// renderTooLarge shows the form page for a request the server rejected
// before any handler ran because the body exceeded the limit.
func (h *AnalyzeHandler) renderTooLarge(c *fiber.Ctx) error {
	view := describeError(h.tooLargeError(""))
	view.Status = fiber.StatusRequestEntityTooLarge

	data := h.pageData("")
	data["Error"] = view
	return c.Status(view.Status).Render("index", data)
}

func (h *AnalyzeHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		ctx = services.WithRequestID(ctx, id)
	}
	return ctx
}

func (h *AnalyzeHandler) errorJSON(c *fiber.Ctx, err error) error {
	view := describeError(err)
	if view.Kind == services.OutcomeInternalError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("unexpected analysis error")
	}
	return c.Status(view.Status).JSON(models.ErrorResponse{
		Error:   view.Title + ": " + view.Message,
		Kind:    view.Kind,
		Code:    view.Status,
		Detail:  err.Error(),
		Request: c.GetRespHeader(fiber.HeaderXRequestID),
	})
}

func readUpload(file *multipart.FileHeader, limit int64) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}
