package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func runWithRole(role string, allowed ...string) *httptest.ResponseRecorder {
	e := echo.New()
	setRole := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role != "" {
				c.Set(middleware.CtxUserRoleKey, role)
			}
			return next(c)
		}
	}
	e.GET("/x", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, setRole, middleware.RoleGuard(allowed...))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func TestRoleGuard(t *testing.T) {
	allowed := []string{middleware.RoleAdmin, middleware.RoleManager}

	assert.Equal(t, http.StatusNoContent, runWithRole("ADMIN", allowed...).Code)
	assert.Equal(t, http.StatusNoContent, runWithRole("MANAGER", allowed...).Code)
	assert.Equal(t, http.StatusForbidden, runWithRole("STAFF", allowed...).Code)
	assert.Equal(t, http.StatusUnauthorized, runWithRole("", allowed...).Code)
}

func TestRequestLogger_LogsStatusAndRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(middleware.RequestLogger(zap.New(core)))
	e.GET("/items/:id", func(c echo.Context) error {
		c.Set(middleware.CtxShopIDKey, int64(3))
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/12", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		first := entries[0].ContextMap()
		assert.Equal(t, "/items/:id", first["path"])
		assert.Equal(t, int64(200), first["status"])
		assert.Equal(t, int64(3), first["shop_id"])
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, int64(500), entries[1].ContextMap()["status"])
	}
}
