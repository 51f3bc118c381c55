package handler

import (
	"net/http"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/middleware"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SaleCreateRequest struct {
	Items []usecase.SaleLineInput `json:"items"`
}

type SaleRefundRequest struct {
	Reason string `json:"reason"`
}

// /sales（レジの販売確定と返金）
type SaleHandler struct {
	uc *usecase.SaleUsecase
}

// DI
func NewSaleHandler(uc *usecase.SaleUsecase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

func (h *SaleHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	sales := e.Group("/sales")
	sales.Use(middleware.AuthJWT(cfg))

	sales.POST("", h.create)
	sales.GET("/:id", h.get)
	sales.POST("/:id/refund", h.refund, middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager))
}

func (h *SaleHandler) create(c echo.Context) error {
	var req SaleCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	cashierID, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.CompleteSale(c.Request().Context(), shopID, cashierID, req.Items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *SaleHandler) get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	_, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetSale(c.Request().Context(), shopID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) refund(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req SaleRefundRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	actorID, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.RefundSale(c.Request().Context(), shopID, actorID, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
