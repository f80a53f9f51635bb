package orders

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/zelalemgb/linkclinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/orders", h.PlaceOrder, auth.RequireRole("admin", "physician"))
	api.POST("/orders/:id/complete", h.CompleteOrder, auth.RequireRole("admin", "physician", "lab", "radiology", "pharmacist"))
	api.POST("/orders/:id/cancel", h.CancelOrder, auth.RequireRole("admin", "physician"))
	api.GET("/encounters/:id/orders", h.ListOrders)
}

func (h *Handler) PlaceOrder(c echo.Context) error {
	var o Order
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if o.OrderedBy == "" {
		o.OrderedBy = auth.UserIDFromContext(ctx)
	}
	if err := h.svc.Place(ctx, &o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) CompleteOrder(c echo.Context) error {
	return h.setStatus(c, h.svc.Complete)
}

func (h *Handler) CancelOrder(c echo.Context) error {
	return h.setStatus(c, h.svc.Cancel)
}

func (h *Handler) setStatus(c echo.Context, fn func(ctx context.Context, id uuid.UUID) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	if err := fn(c.Request().Context(), id); err != nil {
		return orderStatusError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListOrders(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	items, err := h.svc.ListByEncounter(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"orders": items})
}

func orderStatusError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
