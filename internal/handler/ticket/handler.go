package ticket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/service/ticket"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Handler struct {
	service *ticket.Service
}

func NewHandler(service *ticket.Service) *Handler {
	return &Handler{service: service}
}

type CreateTicketRequest struct {
	Type              model.TicketType `json:"type" binding:"required"`
	PatientID         uuid.UUID        `json:"patient_id" binding:"required"`
	OrderingDoctorID  *uuid.UUID       `json:"ordering_doctor_id"`
	FulfillingPartyID *uuid.UUID       `json:"fulfilling_party_id"`
	PaymentMethod     string           `json:"payment_method" binding:"max=64"`
	PaymentAmount     float64          `json:"payment_amount" binding:"gte=0"`
	Metadata          model.JSONMap    `json:"metadata"`
	Note              string           `json:"note" binding:"max=1000"`
}

type TransitionRequest struct {
	Action      model.TicketAction `json:"action" binding:"required"`
	Note        string             `json:"note" binding:"max=1000"`
	ConfirmCash bool               `json:"confirm_cash"`
}

type MessageRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tickets := r.Group("/tickets")
	{
		tickets.POST("", h.CreateTicket)
		tickets.GET("/:id", h.GetTicket)
		tickets.POST("/:id/transitions", h.Transition)
		tickets.POST("/:id/messages", h.AppendMessage)
	}
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	actor, _ := middleware.ActorFromContext(c)
	t, err := h.service.CreateTicket(c.Request.Context(), actor, ticket.CreateRequest{
		Type:              req.Type,
		PatientID:         req.PatientID,
		OrderingDoctorID:  req.OrderingDoctorID,
		FulfillingPartyID: req.FulfillingPartyID,
		PaymentMethod:     req.PaymentMethod,
		PaymentAmount:     req.PaymentAmount,
		Metadata:          req.Metadata,
		Note:              req.Note,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(t))
}

func (h *Handler) GetTicket(c *gin.Context) {
	t, ok := h.visibleTicket(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "ticket")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	actor, _ := middleware.ActorFromContext(c)
	t, err := h.service.Transition(c.Request.Context(), id, ticket.TransitionRequest{
		Action:      req.Action,
		Actor:       actor,
		Note:        req.Note,
		ConfirmCash: req.ConfirmCash,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

func (h *Handler) AppendMessage(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "ticket")
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	actor, _ := middleware.ActorFromContext(c)
	msg, err := h.service.AppendMessage(c.Request.Context(), id, actor, req.Body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(msg))
}

// visibleTicket loads the ticket and reports not found to actors with no part
// in it.
func (h *Handler) visibleTicket(c *gin.Context) (*model.Ticket, bool) {
	id, ok := handler.ParamID(c, "id", "ticket")
	if !ok {
		return nil, false
	}

	t, err := h.service.GetTicket(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}

	actor, _ := middleware.ActorFromContext(c)
	if !ticket.CanAct(t, actor) {
		_ = c.Error(apperrors.NewNotFound("ticket", nil))
		return nil, false
	}
	return t, true
}
