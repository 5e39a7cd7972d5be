package request

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodnet/bloodnet/internal/platform/auth"
	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
	"github.com/bloodnet/bloodnet/internal/platform/redisutil"
	"github.com/bloodnet/bloodnet/pkg/blood"
	"github.com/bloodnet/bloodnet/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHospital, auth.RoleBloodBank, auth.RoleNGO))
	read.GET("/blood-requests", h.List)
	read.GET("/blood-requests/queue", h.Queue)
	read.GET("/blood-requests/:id", h.Get)

	hospital := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHospital))
	hospital.POST("/blood-requests", h.Create)
	hospital.POST("/blood-requests/:id/cancel", h.Cancel)
	hospital.POST("/blood-requests/:id/search", h.Search)

	bank := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleBloodBank))
	bank.POST("/blood-requests/:id/accept", h.Accept)
	bank.POST("/blood-requests/:id/reject", h.Reject)
	bank.POST("/blood-requests/:id/complete", h.Complete)
}

type requestView struct {
	*BloodRequest
	Priority priority.Result `json:"priority"`
}

func (h *Handler) Create(c echo.Context) error {
	var br BloodRequest
	if err := c.Bind(&br); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if br.HospitalID == uuid.Nil {
		if orgID, err := uuid.Parse(auth.OrgIDFromContext(c.Request().Context())); err == nil {
			br.HospitalID = orgID
		}
	}
	created, err := h.svc.Create(c.Request().Context(), &br)
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
	br, res, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "blood request not found")
	}
	return c.JSON(http.StatusOK, requestView{BloodRequest: br, Priority: res})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := Filter{Status: Status(c.QueryParam("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	if g := c.QueryParam("blood_group"); g != "" {
		group, err := blood.ParseGroup(g)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		filter.BloodGroup = group
	}
	if u := c.QueryParam("urgency"); u != "" {
		urgency, err := blood.ParseUrgency(u)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		filter.Urgency = urgency
	}
	if hid := c.QueryParam("hospital_id"); hid != "" {
		id, err := uuid.Parse(hid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital_id")
		}
		filter.HospitalID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Queue(c echo.Context) error {
	entries, err := h.svc.Queue(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":   len(entries),
		"entries": entries,
	})
}

func (h *Handler) Accept(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bankID, err := uuid.Parse(auth.OrgIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "caller has no organization")
	}
	br, err := h.svc.Accept(c.Request().Context(), id, bankID)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, br)
}

func (h *Handler) Reject(c echo.Context) error {
	return h.simpleTransition(c, h.svc.Reject)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.simpleTransition(c, h.svc.Complete)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.simpleTransition(c, h.svc.Cancel)
}

func (h *Handler) Search(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := h.svc.Search(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "blood request not found")
		case errors.Is(err, ErrNotSearchable):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, proximity.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) simpleTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*BloodRequest, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	br, err := fn(c.Request().Context(), id)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, br)
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "blood request not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, redisutil.ErrLockNotAcquired):
		return echo.NewHTTPError(http.StatusConflict, "request is being processed, retry shortly")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
