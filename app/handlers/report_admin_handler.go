// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mzare/copyforge/app/dto"
	businessflow "github.com/mzare/copyforge/business_flow"
	"github.com/mzare/copyforge/utils"
)

// ReportAdminHandlerInterface defines the contract for report admin handlers
type ReportAdminHandlerInterface interface {
	UsageReport(c fiber.Ctx) error
}

// ReportAdminHandler handles administrative reporting requests
type ReportAdminHandler struct {
	reportFlow businessflow.ReportFlow
	validator  *validator.Validate
}

// NewReportAdminHandler creates a new report admin handler
func NewReportAdminHandler(reportFlow businessflow.ReportFlow) *ReportAdminHandler {
	return &ReportAdminHandler{
		reportFlow: reportFlow,
		validator:  validator.New(),
	}
}

func (h *ReportAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// UsageReport streams an xlsx export of generation usage
func (h *ReportAdminHandler) UsageReport(c fiber.Ctx) error {
	query := dto.UsageReportQuery{
		OrganizationID: c.Query("organization_id"),
		AppID:          c.Query("app_id"),
		From:           c.Query("from"),
		To:             c.Query("to"),
	}

	if err := h.validator.Struct(&query); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	report, err := h.reportFlow.UsageReport(h.createRequestContext(c, "/api/v1/admin/reports/usage"), &query, metadata)
	if err != nil {
		if businessflow.IsInvalidDateRange(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", nil)
		}

		log.Println("Usage report failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Usage report failed", "USAGE_REPORT_FAILED", nil)
	}

	filename := fmt.Sprintf("usage-report-%s.xlsx", utils.UTCNow().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(report)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ReportAdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
