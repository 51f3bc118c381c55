package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret"

type mwErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	ShopID int64  `json:"shop_id"`
}

func mustMakeJWT(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()

	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":     float64(7),
		"role":    "MANAGER",
		"shop_id": float64(3),
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

// 認証後にcontextの値をそのまま返すだけのルート
func newAuthEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/p")
	g.Use(middleware.AuthJWT(config.Config{JWTSecret: testSecret}))
	g.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, mwOKResponse{
			UserID: c.Get(middleware.CtxUserIDKey).(int64),
			Role:   c.Get(middleware.CtxUserRoleKey).(string),
			ShopID: c.Get(middleware.CtxShopIDKey).(int64),
		})
	})
	return e
}

func runRequest(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

func TestAuthJWT_SetsContext(t *testing.T) {
	e := newAuthEcho()
	tok := mustMakeJWT(t, validClaims(), jwt.SigningMethodHS256)

	rec := runRequest(e, "Bearer "+tok)

	require.Equal(t, http.StatusOK, rec.Code)
	var body mwOKResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, mwOKResponse{UserID: 7, Role: "MANAGER", ShopID: 3}, body)
}

func TestAuthJWT_StringSubject(t *testing.T) {
	e := newAuthEcho()
	claims := validClaims()
	claims["sub"] = "42"
	claims["shop_id"] = "9"

	rec := runRequest(e, "Bearer "+mustMakeJWT(t, claims, jwt.SigningMethodHS256))

	require.Equal(t, http.StatusOK, rec.Code)
	var body mwOKResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, int64(9), body.ShopID)
}

func TestAuthJWT_Unauthorized(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noRole := validClaims()
	delete(noRole, "role")
	noSub := validClaims()
	delete(noSub, "sub")

	cases := []struct {
		name   string
		header func(t *testing.T) string
	}{
		{"missing header", func(t *testing.T) string { return "" }},
		{"not bearer", func(t *testing.T) string { return "Basic abc" }},
		{"empty token", func(t *testing.T) string { return "Bearer " }},
		{"garbage", func(t *testing.T) string { return "Bearer not.a.jwt" }},
		{"expired", func(t *testing.T) string { return "Bearer " + mustMakeJWT(t, expired, jwt.SigningMethodHS256) }},
		{"other alg", func(t *testing.T) string { return "Bearer " + mustMakeJWT(t, validClaims(), jwt.SigningMethodHS512) }},
		{"no role", func(t *testing.T) string { return "Bearer " + mustMakeJWT(t, noRole, jwt.SigningMethodHS256) }},
		{"no sub", func(t *testing.T) string { return "Bearer " + mustMakeJWT(t, noSub, jwt.SigningMethodHS256) }},
	}

	e := newAuthEcho()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runRequest(e, tc.header(t))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
		})
	}
}

func TestAuthJWT_WrongSecret(t *testing.T) {
	e := newAuthEcho()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other"))
	require.NoError(t, err)

	rec := runRequest(e, "Bearer "+tok)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_ShopIDRequired(t *testing.T) {
	e := newAuthEcho()
	missing := validClaims()
	delete(missing, "shop_id")
	zero := validClaims()
	zero["shop_id"] = float64(0)

	for _, claims := range []jwt.MapClaims{missing, zero} {
		rec := runRequest(e, "Bearer "+mustMakeJWT(t, claims, jwt.SigningMethodHS256))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "SHOP_ID_REQUIRED", decodeError(t, rec).Code)
	}
}
