package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cvanalyzer/semantic-cv-analyzer/internal/services"
)

// errorView is what the user sees for a failed analysis.
type errorView struct {
	Kind    string
	Title   string
	Message string
	Status  int
}

// describeError maps the analyzer error taxonomy to a status code and a
// user-facing message. A parse failure is never shown as a score.
func describeError(err error) errorView {
	var (
		extractionErr *services.ExtractionError
		configErr     *services.ConfigurationError
		transportErr  *services.TransportError
		parseErr      *services.ParseError
	)

	switch {
	case errors.Is(err, services.ErrEmptyInput):
		return errorView{
			Kind:    services.OutcomeInvalidRequest,
			Title:   "Missing input",
			Message: "Please provide both a job description and a CV.",
			Status:  fiber.StatusBadRequest,
		}
	case errors.As(err, &extractionErr):
		return errorView{
			Kind:    services.OutcomeExtractionError,
			Title:   "Could not read the CV",
			Message: "No text could be extracted (" + extractionErr.Reason + "). Please try again with a different file: a text-based PDF, a DOCX or a TXT.",
			Status:  fiber.StatusUnprocessableEntity,
		}
	case errors.As(err, &configErr):
		return errorView{
			Kind:    services.OutcomeConfigurationError,
			Title:   "Analysis is not configured",
			Message: "The " + configErr.Setting + " " + configErr.Reason + ". Update the configuration and restart the server.",
			Status:  fiber.StatusServiceUnavailable,
		}
	case errors.As(err, &transportErr) && transportErr.Timeout:
		return errorView{
			Kind:    services.OutcomeTimeout,
			Title:   "Analysis timed out",
			Message: "The AI service did not answer in time. Please try again in a moment.",
			Status:  fiber.StatusGatewayTimeout,
		}
	case errors.As(err, &transportErr):
		return errorView{
			Kind:    services.OutcomeTransportError,
			Title:   "Analysis temporarily unavailable",
			Message: "The AI service could not be reached. Please try again in a moment.",
			Status:  fiber.StatusServiceUnavailable,
		}
	case errors.As(err, &parseErr) && parseErr.Reason == services.ReasonMissingField:
		return errorView{
			Kind:    services.OutcomeParseError,
			Title:   "Incomplete analysis",
			Message: "The AI response did not include the " + parseErr.Field + " score. No score is shown; please run the analysis again.",
			Status:  fiber.StatusBadGateway,
		}
	case errors.As(err, &parseErr):
		return errorView{
			Kind:    services.OutcomeParseError,
			Title:   "Unreadable analysis",
			Message: "The AI service did not return a structured analysis (it may have declined the request). This is not a score; please run the analysis again.",
			Status:  fiber.StatusBadGateway,
		}
	default:
		return errorView{
			Kind:    services.OutcomeInternalError,
			Title:   "Unexpected error",
			Message: "Something went wrong while analyzing the CV. Please try again.",
			Status:  fiber.StatusInternalServerError,
		}
	}
}
