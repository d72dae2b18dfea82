package waitlist

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/eventpool/lottery-api/internal/handler"
	"github.com/eventpool/lottery-api/internal/model"
	waitlistService "github.com/eventpool/lottery-api/internal/service/waitlist"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/httputil"
)

type Handler struct {
	service *waitlistService.Service
}

func NewHandler(service *waitlistService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	waitlist := r.Group("/events/:id/waitlist")
	{
		waitlist.POST("", h.Join)
		waitlist.DELETE("", h.Leave)
		waitlist.GET("/me", h.Status)
		waitlist.GET("", h.Entries)
	}
}

func (h *Handler) Join(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	// The body is optional: only geolocation-gated events require one.
	var req model.JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.service.Join(c.Request.Context(), eventID, handler.MemberID(c), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, gin.H{"status": model.EntryStatusWaiting})
}

func (h *Handler) Leave(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	if err := h.service.Leave(c.Request.Context(), eventID, handler.MemberID(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"left": true})
}

func (h *Handler) Status(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	entry, err := h.service.Status(c.Request.Context(), eventID, handler.MemberID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"on_waitlist": entry != nil, "entry": entry})
}

func (h *Handler) Entries(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	entries, err := h.service.Entries(c.Request.Context(), eventID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, entries)
}
