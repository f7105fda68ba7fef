package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"

	"cvanalyzer/semantic-cv-analyzer/internal/models"
	"cvanalyzer/semantic-cv-analyzer/internal/services"
	"cvanalyzer/semantic-cv-analyzer/internal/views"
)

// Score bands for the UI indicators.
const (
	ScoreExcellent = 80
	ScoreModerate  = 60
)

// ScoreClass names the indicator band for a 0-100 score.
func ScoreClass(score int) string {
	switch {
	case score >= ScoreExcellent:
		return "excellent"
	case score >= ScoreModerate:
		return "moderate"
	default:
		return "weak"
	}
}

const formRoute = "/analyze"

type AppOptions struct {
	BodyLimit  int
	AccessLog  bool
	Metrics    *services.Metrics
	LLMTimeout time.Duration
}

// NewApp wires middleware, views and routes into a fiber app.
func NewApp(analyzeHandler *AnalyzeHandler, healthHandler *HealthHandler, opts AppOptions) *fiber.App {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	engine.AddFunc("scoreClass", ScoreClass)

	writeTimeout := 30 * time.Second
	if opts.LLMTimeout+10*time.Second > writeTimeout {
		writeTimeout = opts.LLMTimeout + 10*time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:      pageTitle,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		BodyLimit:    opts.BodyLimit,
		Views:        engine,
		ErrorHandler: newErrorHandler(analyzeHandler),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path} ${respHeader:X-Request-ID}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Web UI
	app.Get("/", analyzeHandler.HandleIndex)
	app.Post(formRoute, analyzeHandler.HandleAnalyzeForm)

	// API
	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.HandleHealth)
	api.Post("/analyze", analyzeHandler.HandleAnalyzeAPI)
	api.Post("/analyze/text", analyzeHandler.HandleAnalyzeText)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	return app
}

// newErrorHandler answers with JSON, except for an oversized upload from the
// web form, which gets the form page with an error banner.
func newErrorHandler(analyzeHandler *AnalyzeHandler) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		if code == fiber.StatusRequestEntityTooLarge && c.Method() == fiber.MethodPost && c.Path() == formRoute {
			return analyzeHandler.renderTooLarge(c)
		}

		return c.Status(code).JSON(models.ErrorResponse{
			Error: err.Error(),
			Kind:  "http_error",
			Code:  code,
		})
	}
}

