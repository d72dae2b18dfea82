package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eventpool/lottery-api/internal/handler"
	auditService "github.com/eventpool/lottery-api/internal/service/audit"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/httputil"
)

type Handler struct {
	service *auditService.Service
}

func NewHandler(service *auditService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events/:id/audit", h.ListByEvent)
}

func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.service.ListByEvent(c.Request.Context(), eventID, limit)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, records)
}
