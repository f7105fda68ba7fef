package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cvanalyzer/semantic-cv-analyzer/internal/models"
	"cvanalyzer/semantic-cv-analyzer/internal/services"
)

type HealthHandler struct {
	analyzer services.AnalyzerService
}

func NewHealthHandler(analyzer services.AnalyzerService) *HealthHandler {
	return &HealthHandler{analyzer: analyzer}
}

// HandleHealth reports "degraded" while the API key is missing; the UI still works.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	status := "healthy"
	if !h.analyzer.LLMConfigured() {
		status = "degraded"
	}
	return c.JSON(models.HealthResponse{
		Status:        status,
		LLMConfigured: h.analyzer.LLMConfigured(),
		Provider:      h.analyzer.Provider(),
	})
}
