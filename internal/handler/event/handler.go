package event

import (
	"github.com/gin-gonic/gin"

	"github.com/eventpool/lottery-api/internal/handler"
	"github.com/eventpool/lottery-api/internal/model"
	eventService "github.com/eventpool/lottery-api/internal/service/event"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/httputil"
)

type Handler struct {
	service *eventService.Service
}

func NewHandler(service *eventService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("", h.ListEvents)
		events.GET("/:id", h.GetEvent)
		events.POST("/:id/close", h.CloseEvent)
	}
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	event, err := h.service.Create(c.Request.Context(), handler.MemberID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, event)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	event, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, event)
}

func (h *Handler) ListEvents(c *gin.Context) {
	filters := &model.EventFilters{
		Status: model.EventStatus(c.Query("status")),
	}

	events, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, events)
}

func (h *Handler) CloseEvent(c *gin.Context) {
	id, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	if err := h.service.Close(c.Request.Context(), handler.MemberID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"status": model.EventStatusClosed})
}
