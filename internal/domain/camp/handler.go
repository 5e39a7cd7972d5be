package camp

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
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHospital, auth.RoleBloodBank, auth.RoleNGO))
	read.GET("/camps", h.List)
	read.GET("/camps/:id", h.Get)
	read.GET("/camps/:id/slots", h.ListSlots)
	read.GET("/slots/:id/registrations", h.ListRegistrations)

	organizer := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleNGO, auth.RoleBloodBank))
	organizer.POST("/camps", h.Create)
	organizer.POST("/camps/:id/slots", h.AddSlot)
	organizer.POST("/camps/:id/start", h.Start)
	organizer.POST("/camps/:id/finish", h.Finish)
	organizer.POST("/camps/:id/cancel", h.Cancel)

	// Donor booking is open so unauthenticated donors can sign up.
	api.POST("/slots/:id/registrations", h.Register)
}

func (h *Handler) Create(c echo.Context) error {
	var camp Camp
	if err := c.Bind(&camp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if camp.OrganizerID == uuid.Nil {
		if orgID, err := uuid.Parse(auth.OrgIDFromContext(c.Request().Context())); err == nil {
			camp.OrganizerID = orgID
		}
	}
	created, err := h.svc.Create(c.Request().Context(), &camp)
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
	camp, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "camp not found")
	}
	return c.JSON(http.StatusOK, camp)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := Filter{
		City:   c.QueryParam("city"),
		Status: Status(c.QueryParam("status")),
	}
	if oid := c.QueryParam("organizer_id"); oid != "" {
		id, err := uuid.Parse(oid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid organizer_id")
		}
		filter.OrganizerID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddSlot(c echo.Context) error {
	campID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var slot Slot
	if err := c.Bind(&slot); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slot.CampID = campID
	created, err := h.svc.AddSlot(c.Request().Context(), &slot)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "camp not found")
		case errors.Is(err, ErrCampClosed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListSlots(c echo.Context) error {
	campID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slots, err := h.svc.ListSlots(c.Request().Context(), campID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "camp not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, slots)
}

type registerBody struct {
	DonorID uuid.UUID `json:"donor_id"`
}

func (h *Handler) Register(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}
	var body registerBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reg, err := h.svc.Register(c.Request().Context(), slotID, body.DonorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotNotFound), errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrSlotFull), errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrCampClosed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, reg)
}

func (h *Handler) ListRegistrations(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}
	regs, err := h.svc.ListRegistrations(c.Request().Context(), slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "slot not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, regs)
}

func (h *Handler) Start(c echo.Context) error  { return h.transition(c, h.svc.Start) }
func (h *Handler) Finish(c echo.Context) error { return h.transition(c, h.svc.Finish) }
func (h *Handler) Cancel(c echo.Context) error { return h.transition(c, h.svc.Cancel) }

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Camp, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	camp, err := fn(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "camp not found")
		case errors.Is(err, ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, camp)
}
