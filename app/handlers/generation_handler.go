// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/app/services"
	businessflow "github.com/mzare/copyforge/business_flow"
	"github.com/mzare/copyforge/utils"
)

// GenerationHandlerInterface defines the contract for generation handlers
type GenerationHandlerInterface interface {
	GenerateFromTemplate(c fiber.Ctx) error
	GenerateContent(c fiber.Ctx) error
	GenerateCalendar(c fiber.Ctx) error
}

// GenerationHandler handles generation-related HTTP requests
type GenerationHandler struct {
	generationFlow businessflow.GenerationFlow
	validator      *validator.Validate
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generationFlow businessflow.GenerationFlow) *GenerationHandler {
	return &GenerationHandler{
		generationFlow: generationFlow,
		validator:      validator.New(),
	}
}

func (h *GenerationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *GenerationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GenerateFromTemplate handles stored-template generation. Ledger failures
// never block this endpoint (best-effort policy).
func (h *GenerationHandler) GenerateFromTemplate(c fiber.Ctx) error {
	var req dto.GenerateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	organizationID, ok := c.Locals("organization_id").(string)
	if !ok || organizationID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Organization ID not found in context", "MISSING_ORGANIZATION_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.generationFlow.GenerateFromTemplate(h.createRequestContext(c, "/api/v1/generate"), &req, organizationID, metadata)
	if err != nil {
		return h.mapGenerationError(c, "Template generation failed", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Generation completed successfully", result)
}

// GenerateContent handles free-prompt email generation. Cost accounting is
// mandatory here (strict policy): ledger failures become 500s.
func (h *GenerationHandler) GenerateContent(c fiber.Ctx) error {
	var req dto.GenerateContentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	organizationID, ok := c.Locals("organization_id").(string)
	if !ok || organizationID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Organization ID not found in context", "MISSING_ORGANIZATION_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.generationFlow.GenerateContent(h.createRequestContext(c, "/api/v1/generate/content"), &req, organizationID, metadata)
	if err != nil {
		return h.mapGenerationError(c, "Content generation failed", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Generation completed successfully", result)
}

// GenerateCalendar handles free-prompt calendar entry generation (strict
// policy, same as content).
func (h *GenerationHandler) GenerateCalendar(c fiber.Ctx) error {
	var req dto.GenerateCalendarRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	organizationID, ok := c.Locals("organization_id").(string)
	if !ok || organizationID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Organization ID not found in context", "MISSING_ORGANIZATION_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.generationFlow.GenerateCalendar(h.createRequestContext(c, "/api/v1/generate/calendar"), &req, organizationID, metadata)
	if err != nil {
		return h.mapGenerationError(c, "Calendar generation failed", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Generation completed successfully", result)
}

// mapGenerationError translates flow errors to the response taxonomy:
// 404 for missing templates, 400 for caller mistakes, 500 for everything
// upstream (key store, provider, ledger under strict policy).
func (h *GenerationHandler) mapGenerationError(c fiber.Ctx, message string, err error) error {
	if businessflow.IsTemplateNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Prompt template not found", "TEMPLATE_NOT_FOUND", err.Error())
	}
	if businessflow.IsInvalidKeyMode(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid key mode", "INVALID_KEY_MODE", err.Error())
	}
	if businessflow.IsProviderKeyNotConfigured(err) {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Provider key not configured", "PROVIDER_KEY_NOT_CONFIGURED", err.Error())
	}
	if errors.Is(err, services.ErrAIResponseMalformed) {
		log.Println("AI response malformed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Provider returned malformed output", "AI_RESPONSE_MALFORMED", nil)
	}
	if errors.Is(err, services.ErrAIGenerationFailed) {
		log.Println("AI generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "AI generation failed", "AI_GENERATION_FAILED", nil)
	}

	var ledgerErr *services.LedgerError
	if errors.As(err, &ledgerErr) {
		log.Println("Ledger call failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Cost accounting failed", "LEDGER_FAILED", ledgerErr.Error())
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, "GENERATION_FAILED", nil)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *GenerationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	// Generation requests wait on the LLM provider; the timeout covers the
	// whole pipeline including ledger retries.
	return h.createRequestContextWithTimeout(c, endpoint, 180*time.Second)
}

func (h *GenerationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
