package masterdata

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/frontdesk-api/internal/handler"
	"github.com/jwalitptl/frontdesk-api/internal/middleware"
	"github.com/jwalitptl/frontdesk-api/internal/service/masterdata"
	"github.com/jwalitptl/frontdesk-api/pkg/httputil"
)

type Handler struct {
	service *masterdata.Service
}

func NewHandler(service *masterdata.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	master := r.Group("/master", middleware.RequireRoles(handler.Anyone...))
	{
		master.GET("/hospital-charge", h.HospitalCharge)
		master.GET("/specializations", h.Specializations)
	}
}

func (h *Handler) HospitalCharge(c *gin.Context) {
	charge, err := h.service.HospitalCharge(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"hospital_charge": charge})
}

func (h *Handler) Specializations(c *gin.Context) {
	list, err := h.service.Specializations(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}
