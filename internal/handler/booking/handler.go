package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/service/booking"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

// CreateBookingRequest is the POST /bookings body. The patient always comes
// from the token.
type CreateBookingRequest struct {
	ProviderID        string                  `json:"provider_id"`
	ProviderName      string                  `json:"provider_name"`
	ProviderSpecialty string                  `json:"provider_specialty"`
	Date              string                  `json:"date" binding:"required,ymd"`
	Time              string                  `json:"time" binding:"required,hhmm"`
	VisitType         string                  `json:"visit_type" binding:"max=64"`
	PaymentMethod     string                  `json:"payment_method" binding:"max=64"`
	PaymentAmount     float64                 `json:"payment_amount" binding:"gte=0"`
	FamilyMemberIDs   []uuid.UUID             `json:"family_member_ids"`
	Overrides         model.ClinicalOverrides `json:"clinical_overrides"`
	CreateTicket      *bool                   `json:"create_ticket"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/bookings", middleware.RequireRole(model.RolePatient), h.CreateBooking)

	appointments := r.Group("/appointments")
	{
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/cancel", middleware.RequireRole(model.RolePatient), h.CancelAppointment)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	createTicket := true
	if req.CreateTicket != nil {
		createTicket = *req.CreateTicket
	}

	result, err := h.service.CreateBooking(c.Request.Context(), booking.Request{
		PatientID:         actor.UserID,
		Locale:            middleware.LocaleFromContext(c),
		ProviderID:        req.ProviderID,
		ProviderName:      req.ProviderName,
		ProviderSpecialty: req.ProviderSpecialty,
		Date:              req.Date,
		Time:              req.Time,
		VisitType:         req.VisitType,
		PaymentMethod:     req.PaymentMethod,
		PaymentAmount:     req.PaymentAmount,
		FamilyMemberIDs:   req.FamilyMemberIDs,
		Overrides:         req.Overrides,
		CreateTicket:      createTicket,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	appt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	actor, _ := middleware.ActorFromContext(c)
	if !canView(appt, actor) {
		// Hide appointments the caller has no part in.
		_ = c.Error(apperrors.NewNotFound("appointment", nil))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	var req CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(handler.BindError(err))
			return
		}
	}

	actor, _ := middleware.ActorFromContext(c)
	appt, err := h.service.CancelAppointment(c.Request.Context(), actor.UserID, id, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func canView(appt *model.Appointment, actor model.Actor) bool {
	switch actor.Role {
	case model.RoleStaff, model.RoleSystem:
		return true
	case model.RolePatient:
		return appt.PatientID == actor.UserID
	}
	return actor.ProviderID != nil && appt.ProviderID != nil && *actor.ProviderID == *appt.ProviderID
}
