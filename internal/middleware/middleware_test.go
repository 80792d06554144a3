package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/storefront/internal/utils"
)

const (
	userSecret  = "user-secret"
	adminSecret = "admin-secret"
)

type staticChecker map[uint]bool

func (s staticChecker) IsAdmin(_ context.Context, id uint) (bool, error) {
	return s[id], nil
}

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(userSecret), func(c *fiber.Ctx) error {
		id, ok := GetCurrentUserID(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		return c.JSON(fiber.Map{"id": id})
	})
	app.Get("/admin", AdminMiddleware(adminSecret, staticChecker{1: true}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func authRequest(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddlewareScopes(t *testing.T) {
	app := newAuthApp()

	userToken, err := utils.GenerateToken(userSecret, 7, utils.ScopeUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := utils.GenerateToken(adminSecret, 1, utils.ScopeAdmin, time.Hour)
	require.NoError(t, err)
	demotedToken, err := utils.GenerateToken(adminSecret, 2, utils.ScopeAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, authRequest(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusOK, authRequest(t, app, "/me", userToken))
	assert.Equal(t, fiber.StatusUnauthorized, authRequest(t, app, "/me", adminToken))

	assert.Equal(t, fiber.StatusNoContent, authRequest(t, app, "/admin", adminToken))
	assert.Equal(t, fiber.StatusUnauthorized, authRequest(t, app, "/admin", userToken))
	assert.Equal(t, fiber.StatusForbidden, authRequest(t, app, "/admin", demotedToken))
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	app := newAuthApp()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPMetricsHandlerRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(metrics.Handler())
	app.Get("/hello/:name", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "nope")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/hello/ann", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	created := prometheus.Labels{"method": http.MethodGet, "route": "/hello/:name", "status": "201"}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.With(created)))
	failed := prometheus.Labels{"method": http.MethodGet, "route": "/fail", "status": "418"}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.With(failed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
	assert.Positive(t, testutil.CollectAndCount(metrics.Duration))

	again, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	require.NoError(t, err)
	assert.Same(t, metrics.Requests, again.Requests)
}

func TestHTTPMetricsHandlerNoopWhenNil(t *testing.T) {
	app := fiber.New()
	app.Use((*HTTPMetrics)(nil).Handler())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoggerWritesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(fiber.HeaderXRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "request rejected", entries[1].Message)
	assert.EqualValues(t, fiber.StatusNotFound, entries[1].ContextMap()["status"])
}
