package resource

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodnet/bloodnet/internal/platform/auth"
	"github.com/bloodnet/bloodnet/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	org := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHospital, auth.RoleBloodBank, auth.RoleNGO))
	org.POST("/resource-requests", h.Create)
	org.GET("/resource-requests", h.List)
	org.GET("/resource-requests/:id", h.Get)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/resource-requests/:id/approve", h.Approve)
	admin.POST("/resource-requests/:id/reject", h.Reject)
	admin.POST("/resource-requests/:id/fulfill", h.Fulfill)
}

func (h *Handler) Create(c echo.Context) error {
	var rr ResourceRequest
	if err := c.Bind(&rr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if rr.OrganizationID == uuid.Nil {
		if orgID, err := uuid.Parse(auth.OrgIDFromContext(c.Request().Context())); err == nil {
			rr.OrganizationID = orgID
		}
	}
	created, err := h.svc.Create(c.Request().Context(), &rr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rr, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "resource request not found")
	}
	return c.JSON(http.StatusOK, rr)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := Filter{
		Kind:   Kind(c.QueryParam("kind")),
		Status: Status(c.QueryParam("status")),
	}
	if oid := c.QueryParam("organization_id"); oid != "" {
		id, err := uuid.Parse(oid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid organization_id")
		}
		filter.OrganizationID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Approve(c echo.Context) error { return h.review(c, h.svc.Approve) }
func (h *Handler) Reject(c echo.Context) error  { return h.review(c, h.svc.Reject) }
func (h *Handler) Fulfill(c echo.Context) error { return h.review(c, h.svc.Fulfill) }

func (h *Handler) review(c echo.Context, fn func(ctx context.Context, id uuid.UUID, reviewer string) (*ResourceRequest, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reviewer := auth.UserIDFromContext(c.Request().Context())
	rr, err := fn(c.Request().Context(), id, reviewer)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "resource request not found")
		case errors.Is(err, ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rr)
}
