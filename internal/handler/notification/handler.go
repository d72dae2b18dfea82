package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/eventpool/lottery-api/internal/handler"
	notificationService "github.com/eventpool/lottery-api/internal/service/notification"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/httputil"
)

type Handler struct {
	service *notificationService.Service
}

func NewHandler(service *notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.POST("/:id/responded", h.MarkResponded)
	}
}

func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.service.List(c.Request.Context(), handler.MemberID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), handler.MemberID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"read": true})
}

func (h *Handler) MarkResponded(c *gin.Context) {
	id, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.MarkResponded(c.Request.Context(), handler.MemberID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"responded": true})
}
