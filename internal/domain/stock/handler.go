package stock

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodnet/bloodnet/internal/platform/auth"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHospital, auth.RoleBloodBank, auth.RoleNGO))
	read.GET("/organizations/:id/stock", h.ListByOrg)
	read.GET("/organizations/:id/stock/:group", h.Get)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleBloodBank))
	write.PUT("/organizations/:id/stock/:group", h.Report)
}

type reportBody struct {
	Units int `json:"units"`
}

func (h *Handler) Report(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}
	group, err := blood.ParseGroup(c.Param("group"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var body reportBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	snap, err := h.svc.Report(c.Request().Context(), orgID, group, body.Units)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotBloodBank):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) Get(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}
	group, err := blood.ParseGroup(c.Param("group"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	snap, err := h.svc.Get(c.Request().Context(), orgID, group)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "stock snapshot not found")
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) ListByOrg(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}
	items, err := h.svc.ListByOrg(c.Request().Context(), orgID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
