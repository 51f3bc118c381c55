package handler

import (
	"net/http"
	"strconv"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/middleware"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: usecase.CodeValidation})
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		//ロック待ち・衝突はクライアント側で再試行できる
		if he.Retryable() {
			c.Response().Header().Set("Retry-After", "1")
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: he.Code})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: usecase.CodePersistence})
}

// middleware.AuthJWT が c.Set した値を取り出す
func actorFromContext(c echo.Context) (userID int64, shopID int64, ok bool) {
	userID, ok = c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || userID <= 0 {
		return 0, 0, false
	}
	shopID, ok = c.Get(middleware.CtxShopIDKey).(int64)
	if !ok || shopID <= 0 {
		return 0, 0, false
	}
	return userID, shopID, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// クエリの整数。空ならdef
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
