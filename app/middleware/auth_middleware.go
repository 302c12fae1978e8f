package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/app/services"
	"github.com/mzare/copyforge/utils"
)

// OrganizationAuth extracts the caller organization identity from the
// organization header (set by the upstream authentication layer, trusted
// here) and stores it in request locals. Requests without it are rejected.
func OrganizationAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		organizationID := strings.TrimSpace(c.Get(utils.OrganizationIDHeader))
		if organizationID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
				Success: false,
				Message: "Missing organization header",
				Error: dto.ErrorDetail{
					Code: "MISSING_ORGANIZATION_HEADER",
				},
			})
		}

		c.Locals("organization_id", organizationID)
		return c.Next()
	}
}

// ServiceAuth verifies the internal service JWT when service-to-service
// authentication is enabled. tokenService may be nil when disabled; the
// middleware then passes everything through.
func ServiceAuth(tokenService services.TokenService, enabled bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !enabled || tokenService == nil {
			return c.Next()
		}

		token := strings.TrimSpace(c.Get(utils.ServiceTokenHeader))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Missing service token",
				Error: dto.ErrorDetail{
					Code: "MISSING_SERVICE_TOKEN",
				},
			})
		}

		claims, err := tokenService.ValidateServiceToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid service token",
				Error: dto.ErrorDetail{
					Code:    "INVALID_SERVICE_TOKEN",
					Details: err.Error(),
				},
			})
		}

		c.Locals("service_name", claims.ServiceName)
		return c.Next()
	}
}
