package billing

import (
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
	api.POST("/charges", h.AddCharge, auth.RequireRole("admin", "cashier", "physician", "registrar"))
	api.POST("/charges/:id/settle", h.SettleCharge, auth.RequireRole("admin", "cashier"))
	api.GET("/encounters/:id/charges", h.ListCharges)
}

func (h *Handler) AddCharge(c echo.Context) error {
	var item ChargeableLineItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddCharge(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

type settleRequest struct {
	Status PaymentStatus `json:"status"`
}

func (h *Handler) SettleCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid line item id")
	}
	var req settleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	item, err := h.svc.Settle(ctx, id, req.Status, auth.UserIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListCharges(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	items, err := h.svc.ListCharges(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"charges": items})
}
