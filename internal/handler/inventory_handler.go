package handler

import (
	"context"
	"net/http"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/middleware"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/usecase"

	"github.com/labstack/echo/v4"
)

const defaultHistoryPageSize = 20

// POST /inventory/:product_id/adjust, receive
type StockChangeRequest struct {
	Quantity    int64  `json:"quantity"`
	ReferenceID *int64 `json:"reference_id"`
	Note        string `json:"note"`
}

// PUT /inventory/:product_id。送られた項目だけ上書き
type InventoryUpdateRequest struct {
	StockQuantity     *int64  `json:"stock_quantity"`
	AvailableQuantity *int64  `json:"available_quantity"`
	ReservedQuantity  *int64  `json:"reserved_quantity"`
	ReorderLevel      *int64  `json:"reorder_level"`
	ReorderQuantity   *int64  `json:"reorder_quantity"`
	Location          *string `json:"location"`
	Reason            string  `json:"reason"`
}

// reserve / release / fulfill
type OrderMovementRequest struct {
	Quantity int64 `json:"quantity"`
	OrderID  int64 `json:"order_id"`
}

// /inventory 以下をまとめる
type InventoryHandler struct {
	uc   *usecase.InventoryUsecase
	view *usecase.InventoryViewUsecase
}

// DI
func NewInventoryHandler(uc *usecase.InventoryUsecase, view *usecase.InventoryViewUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc, view: view}
}

// /inventory を登録（全ルートJWT必須）
func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	inv := e.Group("/inventory")
	inv.Use(middleware.AuthJWT(cfg))

	managers := middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager)

	inv.GET("/low-stock", h.lowStock)
	inv.GET("/:product_id", h.get)
	inv.GET("/:product_id/history", h.history)
	inv.GET("/:product_id/sales-stats", h.salesStats)

	inv.POST("/:product_id/adjust", h.adjust, managers)
	inv.PUT("/:product_id", h.update, managers)
	inv.POST("/:product_id/receive", h.receive, managers)

	inv.POST("/:product_id/reserve", h.reserve)
	inv.POST("/:product_id/release", h.release)
	inv.POST("/:product_id/fulfill", h.fulfill)
}

func (h *InventoryHandler) get(c echo.Context) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	_, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	inv, err := h.uc.GetInventory(c.Request().Context(), shopID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *InventoryHandler) history(c echo.Context) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	pageSize, ok := queryInt(c, "page_size", defaultHistoryPageSize)
	if !ok {
		return badRequest(c, "invalid page_size")
	}
	_, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.view.GetHistory(c.Request().Context(), shopID, productID, page, pageSize)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) lowStock(c echo.Context) error {
	_, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	items, err := h.view.GetLowStock(c.Request().Context(), shopID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

func (h *InventoryHandler) salesStats(c echo.Context) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return badRequest(c, "invalid days")
	}
	_, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.view.GetSalesStats(c.Request().Context(), shopID, productID, days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) adjust(c echo.Context) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	var req StockChangeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	actorID, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdjustStock(c.Request().Context(), shopID, actorID, productID, req.Quantity, req.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) update(c echo.Context) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	var req InventoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	actorID, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.SetInventoryFields(c.Request().Context(), shopID, actorID, productID, usecase.SetInventoryInput{
		StockQuantity:     req.StockQuantity,
		AvailableQuantity: req.AvailableQuantity,
		ReservedQuantity:  req.ReservedQuantity,
		ReorderLevel:      req.ReorderLevel,
		ReorderQuantity:   req.ReorderQuantity,
		Location:          req.Location,
		Reason:            req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) receive(c echo.Context) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	var req StockChangeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	actorID, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ReceiveStock(c.Request().Context(), shopID, actorID, productID, req.Quantity, req.ReferenceID, req.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) reserve(c echo.Context) error {
	return h.orderMovement(c, h.uc.ReserveStock)
}

func (h *InventoryHandler) release(c echo.Context) error {
	return h.orderMovement(c, h.uc.ReleaseReservation)
}

func (h *InventoryHandler) fulfill(c echo.Context) error {
	return h.orderMovement(c, h.uc.FulfillReservation)
}

type orderMovementFunc func(ctx context.Context, shopID, actorID, productID, quantity, orderID int64) (usecase.MutationOutput, error)

func (h *InventoryHandler) orderMovement(c echo.Context, fn orderMovementFunc) error {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}
	var req OrderMovementRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	actorID, shopID, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := fn(c.Request().Context(), shopID, actorID, productID, req.Quantity, req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
