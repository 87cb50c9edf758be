package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/codescreenhq/codescreen-api/internal/config"
	"github.com/codescreenhq/codescreen-api/internal/handler"
)

func TestHealthCheckReportsServiceIdentity(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "codescreen-api", AppEnv: "test"}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Equal(t, "ok", body.Data.Status)
	require.Equal(t, "codescreen-api", body.Data.Service)
	require.Equal(t, "test", body.Data.Environment)
	require.NotEmpty(t, body.Data.Uptime)
}
