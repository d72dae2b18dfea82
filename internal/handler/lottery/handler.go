package lottery

import (
	"github.com/gin-gonic/gin"

	"github.com/eventpool/lottery-api/internal/handler"
	lotteryService "github.com/eventpool/lottery-api/internal/service/lottery"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/httputil"
)

type Handler struct {
	service *lotteryService.Service
}

func NewHandler(service *lotteryService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	lottery := r.Group("/events/:id")
	{
		lottery.POST("/lottery", h.RunLottery)
		lottery.POST("/invitation/accept", h.AcceptInvitation)
		lottery.POST("/invitation/decline", h.DeclineInvitation)
	}
}

type runLotteryRequest struct {
	SampleSize int `json:"sample_size" binding:"required,min=1"`
}

func (h *Handler) RunLottery(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	var req runLotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	summary, err := h.service.InitializeLottery(c.Request.Context(), eventID, req.SampleSize)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) AcceptInvitation(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	if err := h.service.AcceptInvitation(c.Request.Context(), eventID, handler.MemberID(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"accepted": true})
}

func (h *Handler) DeclineInvitation(c *gin.Context) {
	eventID, err := handler.ParseIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	if err := h.service.DeclineInvitation(c.Request.Context(), eventID, handler.MemberID(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"declined": true})
}
