// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mzare/copyforge/app/dto"
	businessflow "github.com/mzare/copyforge/business_flow"
	"github.com/mzare/copyforge/utils"
)

// TemplateAdminHandlerInterface defines the contract for template admin handlers
type TemplateAdminHandlerInterface interface {
	UpsertTemplate(c fiber.Ctx) error
	ListTemplates(c fiber.Ctx) error
}

// TemplateAdminHandler handles administrative template management requests
type TemplateAdminHandler struct {
	templateFlow businessflow.TemplateFlow
	validator    *validator.Validate
}

// NewTemplateAdminHandler creates a new template admin handler
func NewTemplateAdminHandler(templateFlow businessflow.TemplateFlow) *TemplateAdminHandler {
	return &TemplateAdminHandler{
		templateFlow: templateFlow,
		validator:    validator.New(),
	}
}

func (h *TemplateAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TemplateAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// UpsertTemplate creates or replaces the prompt template for (app_id, type)
func (h *TemplateAdminHandler) UpsertTemplate(c fiber.Ctx) error {
	var req dto.UpsertTemplateRequest
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.templateFlow.UpsertTemplate(h.createRequestContext(c, "/api/v1/admin/templates"), &req, metadata)
	if err != nil {
		if businessflow.IsTemplateContentRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template content is required", "TEMPLATE_CONTENT_REQUIRED", nil)
		}
		if businessflow.IsTemplateTypeRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template type is required", "TEMPLATE_TYPE_REQUIRED", nil)
		}

		log.Println("Template upsert failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template upsert failed", "TEMPLATE_UPSERT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template stored successfully", result)
}

// ListTemplates returns all templates configured for an application
func (h *TemplateAdminHandler) ListTemplates(c fiber.Ctx) error {
	appID := c.Params("app_id")
	if appID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "App ID is required", "MISSING_APP_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.templateFlow.ListTemplates(h.createRequestContext(c, "/api/v1/admin/templates/"+appID), appID, metadata)
	if err != nil {
		log.Println("Template listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template listing failed", "TEMPLATE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Templates retrieved successfully", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *TemplateAdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
