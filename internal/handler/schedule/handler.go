package schedule

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/frontdesk-api/internal/handler"
	"github.com/jwalitptl/frontdesk-api/internal/middleware"
	"github.com/jwalitptl/frontdesk-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	schedules := r.Group("/schedules", middleware.RequireRoles(handler.FrontDesk...))
	{
		schedules.GET("", h.SchedulesForDate)
		schedules.GET("/:id/available-dates", h.AvailableDates)
	}
}

// AvailableDates lists upcoming dates for a schedule; ?count= defaults to 8.
func (h *Handler) AvailableDates(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	count, err := handler.QueryInt(c, "count", 0)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if _, given := c.GetQuery("count"); given && count <= 0 {
		httputil.RespondWithError(c, apperrors.NewBadRequest("count must be positive", nil))
		return
	}

	resp, err := h.service.AvailableDates(c.Request.Context(), id, count)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) SchedulesForDate(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		httputil.RespondWithError(c, apperrors.NewBadRequest("date query parameter is required", nil))
		return
	}

	schedules, err := h.service.SchedulesForDate(c.Request.Context(), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, schedules)
}
