package queue

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/zelalemgb/linkclinic/internal/platform/auth"
	"github.com/zelalemgb/linkclinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/queues/:dashboard", h.GetQueue)
	api.GET("/routing/awaiting", h.GetAwaitingRouting, auth.RequireRole("admin", "cashier"))
}

func (h *Handler) GetQueue(c echo.Context) error {
	dashboard := Dashboard(c.Param("dashboard"))
	if !dashboard.Valid() {
		return echo.NewHTTPError(http.StatusNotFound, "unknown dashboard")
	}
	rows, err := h.svc.GetQueue(c.Request().Context(), dashboard, requestFacility(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Queue rows are small and already ordered; page in memory.
	page := pagination.FromContext(c)
	total := len(rows)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rows[start:end], total, page.Limit, page.Offset))
}

func (h *Handler) GetAwaitingRouting(c echo.Context) error {
	rows, err := h.svc.AwaitingRouting(c.Request().Context(), requestFacility(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"awaiting_routing": rows})
}

// requestFacility prefers the caller's facility claim; admins may widen or
// narrow the view with ?facility_id=.
func requestFacility(c echo.Context) uuid.UUID {
	ctx := c.Request().Context()
	if auth.IsSuperOperator(auth.RolesFromContext(ctx)) {
		if fid, err := uuid.Parse(c.QueryParam("facility_id")); err == nil {
			return fid
		}
		return uuid.Nil
	}
	if fid, err := uuid.Parse(auth.FacilityFromContext(ctx)); err == nil {
		return fid
	}
	if fid, err := uuid.Parse(c.QueryParam("facility_id")); err == nil {
		return fid
	}
	return uuid.Nil
}
