package encounter

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
	api.POST("/encounters", h.RegisterEncounter, auth.RequireRole("admin", "registrar"))
	api.GET("/encounters/:id", h.GetEncounter)
	api.GET("/encounters/:id/timeline", h.GetTimeline)
	api.GET("/encounters/:id/events", h.GetEvents)
	api.POST("/encounters/:id/advance", h.AdvanceStage)
}

type registerRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	FacilityID      uuid.UUID `json:"facility_id"`
	ConsultationFee float64   `json:"consultation_fee"`
}

func (h *Handler) RegisterEncounter(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	actor := actorFromContext(c)
	// Facility comes from the token claim when present; the request body is
	// the fallback for callers without a facility claim.
	facilityID := req.FacilityID
	if fid, err := uuid.Parse(auth.FacilityFromContext(ctx)); err == nil {
		facilityID = fid
	}
	enc, err := h.svc.Register(ctx, actor, req.PatientID, facilityID, req.ConsultationFee)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, enc)
}

type advanceRequest struct {
	NextStage Stage `json:"next_stage"`
}

func (h *Handler) AdvanceStage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	var req advanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.NextStage == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "next_stage is required")
	}

	ctx := c.Request().Context()
	result, err := h.svc.AdvanceStage(ctx, actorFromContext(c), id, req.NextStage, facilityScope(c))
	if err != nil {
		return transitionHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	enc, err := h.svc.Get(c.Request().Context(), id, facilityScope(c))
	if err != nil {
		return transitionHTTPError(err)
	}
	return c.JSON(http.StatusOK, enc)
}

func (h *Handler) GetTimeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	entries, err := h.svc.Timeline(c.Request().Context(), id, facilityScope(c))
	if err != nil {
		return transitionHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"timeline": entries})
}

func (h *Handler) GetEvents(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	events, err := h.svc.Events(c.Request().Context(), id, facilityScope(c))
	if err != nil {
		return transitionHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// actorFromContext resolves the acting staff identity from the auth
// middleware. A nil return means no identity was established.
func actorFromContext(c echo.Context) *Actor {
	ctx := c.Request().Context()
	id := auth.UserIDFromContext(ctx)
	if id == "" {
		return nil
	}
	return &Actor{ID: id, Roles: auth.RolesFromContext(ctx)}
}

// facilityScope limits reads and writes to the caller's facility. Admins and
// callers without a facility claim see across facilities.
func facilityScope(c echo.Context) uuid.UUID {
	ctx := c.Request().Context()
	if auth.IsSuperOperator(auth.RolesFromContext(ctx)) {
		return uuid.Nil
	}
	fid, err := uuid.Parse(auth.FacilityFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return fid
}

// transitionHTTPError maps the domain error taxonomy onto HTTP status codes.
func transitionHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConcurrentModification):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
