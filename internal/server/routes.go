package server

import (
	"net/http"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/handler"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/metrics"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, invH *handler.InventoryHandler, saleH *handler.SaleHandler) {
	//認証なし
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	//ここから下はJWT必須（shop_idはトークンから）
	invH.RegisterRoutes(e, cfg)
	saleH.RegisterRoutes(e, cfg)
}
