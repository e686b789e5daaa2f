package bill

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/frontdesk-api/internal/handler"
	"github.com/jwalitptl/frontdesk-api/internal/middleware"
	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/service/appointment"
	"github.com/jwalitptl/frontdesk-api/internal/service/billing"
	"github.com/jwalitptl/frontdesk-api/pkg/httputil"
)

type Handler struct {
	billing      *billing.Service
	appointments *appointment.Service
}

func NewHandler(billing *billing.Service, appointments *appointment.Service) *Handler {
	return &Handler{billing: billing, appointments: appointments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	billingRoles := middleware.RequireRoles(handler.Billing...)
	cashierRoles := middleware.RequireRoles(handler.Cashier...)
	adminRoles := middleware.RequireRoles(handler.Admin...)

	bills := r.Group("/bills")
	{
		bills.GET("/unpaid", cashierRoles, h.ListUnpaid)
		bills.GET("/paid", cashierRoles, h.ListPaid)
		bills.GET("/revenue", cashierRoles, h.Revenue)

		bills.POST("/appointment/:appointmentId", billingRoles, h.GenerateAppointmentBill)
		bills.POST("/patient/:patientId/tests", billingRoles, h.CreateTestBill)
		bills.GET("/patient/:patientId", billingRoles, h.ListPatientBills)

		bills.GET("/:id", billingRoles, h.GetBill)
		bills.DELETE("/:id", adminRoles, h.DeleteBill)
		bills.POST("/:id/tests/:testId", billingRoles, h.AddTest)
		bills.DELETE("/:id/items/:itemId", billingRoles, h.RemoveItem)
		bills.POST("/:id/pay", cashierRoles, h.PayBill)
	}
}

func (h *Handler) GenerateAppointmentBill(c *gin.Context) {
	appointmentID, err := handler.ParamID(c, "appointmentId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.appointments.GenerateBill(c.Request.Context(), appointmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, bill)
}

func (h *Handler) CreateTestBill(c *gin.Context) {
	patientID, err := handler.ParamID(c, "patientId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.CreateTestBillRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.billing.CreateTestOnlyBill(c.Request.Context(), patientID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, bill)
}

func (h *Handler) AddTest(c *gin.Context) {
	billID, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	testID, err := handler.ParamID(c, "testId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.billing.AddTest(c.Request.Context(), billID, testID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	billID, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	itemID, err := handler.ParamID(c, "itemId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.billing.RemoveItem(c.Request.Context(), billID, itemID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) PayBill(c *gin.Context) {
	billID, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.PayBillRequest
	if err := handler.BindOptionalJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.billing.Pay(c.Request.Context(), billID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) GetBill(c *gin.Context) {
	billID, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.billing.Get(c.Request.Context(), billID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) DeleteBill(c *gin.Context) {
	billID, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.billing.DeleteBill(c.Request.Context(), billID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPatientBills(c *gin.Context) {
	patientID, err := handler.ParamID(c, "patientId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bills, err := h.billing.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bills)
}

func (h *Handler) ListUnpaid(c *gin.Context) {
	bills, err := h.billing.ListUnpaid(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bills)
}

func (h *Handler) ListPaid(c *gin.Context) {
	bills, err := h.billing.ListPaid(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bills)
}

func (h *Handler) Revenue(c *gin.Context) {
	summary, err := h.billing.Revenue(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}
