package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/mzare/copyforge/app/services"
	"github.com/mzare/copyforge/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRequest(t *testing.T, app *fiber.App, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestOrganizationAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/probe", OrganizationAuth(), func(c fiber.Ctx) error {
		return c.SendString(c.Locals("organization_id").(string))
	})

	resp := runRequest(t, app, map[string]string{utils.OrganizationIDHeader: "org-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = runRequest(t, app, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "MISSING_ORGANIZATION_HEADER", envelope.Error.Code)
}

func TestServiceAuthDisabledPassesThrough(t *testing.T) {
	app := fiber.New()
	app.Get("/probe", ServiceAuth(nil, false), func(c fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp := runRequest(t, app, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceAuthValidatesToken(t *testing.T) {
	tokenService, err := services.NewTokenService(
		"test-secret-key-for-jwt-signing-32-chars", 15*time.Minute, "copyforge", "internal-services")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/probe", ServiceAuth(tokenService, true), func(c fiber.Ctx) error {
		return c.SendString(c.Locals("service_name").(string))
	})

	resp := runRequest(t, app, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = runRequest(t, app, map[string]string{utils.ServiceTokenHeader: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokenService.GenerateServiceToken("campaign-service")
	require.NoError(t, err)

	resp = runRequest(t, app, map[string]string{utils.ServiceTokenHeader: token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
