package outbound

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inboxhook/internal/constants"
	"inboxhook/internal/logger"
	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/logging"
	"inboxhook/pkg/models"
)

// Sender is the part of Client the handlers use.
type Sender interface {
	SendMessage(ctx context.Context, platform, recipientID, text string) (SendResult, error)
	ReplyToComment(ctx context.Context, platform, commentID, text string) (ReplyResult, error)
}

// Recorder stores a message the business sent so the thread shows it before
// the echo arrives.
type Recorder interface {
	Record(ctx context.Context, source string, msg models.StoredMessage) (bool, error)
}

type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Text        string `json:"text" binding:"required"`
}

type ReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

type Handler struct {
	sender   Sender
	recorder Recorder
	logger   logger.Logger
	now      func() int64
}

func NewHandler(sender Sender, recorder Recorder, log logger.Logger) *Handler {
	return &Handler{
		sender:   sender,
		recorder: recorder,
		logger:   log,
		now:      nowMillis,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/:platform/messages", h.SendMessage)
	router.POST("/:platform/comments/:commentId/replies", h.ReplyToComment)
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(pkgerrors.ToHTTPStatus(err), pkgerrors.ToErrorResponse(err))
}

func platformParam(c *gin.Context) (string, bool) {
	switch p := c.Param("platform"); p {
	case constants.PlatformFacebook, constants.PlatformInstagram:
		return p, true
	}
	c.JSON(http.StatusNotFound, pkgerrors.ToErrorResponse(
		pkgerrors.ErrNotFound.WithMessage("unknown platform")))
	return "", false
}

// SendMessage godoc
// @Summary      Send a direct message
// @Tags         outbound
// @Accept       json
// @Produce      json
// @Param        platform  path      string              true  "facebook or instagram"
// @Param        message   body      SendMessageRequest  true  "Recipient and text"
// @Success      200  {object}  SendResult
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      502  {object}  errors.ErrorResponse
// @Router       /api/{platform}/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	ctx := logging.WithPlatform(c.Request.Context(), platform)
	res, err := h.sender.SendMessage(ctx, platform, req.RecipientID, req.Text)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.recorder != nil && res.MessageID != "" {
		msg := models.StoredMessage{
			ID:             res.MessageID,
			ConversationID: res.RecipientID,
			SenderID:       constants.BusinessSenderID,
			Text:           req.Text,
			Timestamp:      h.now(),
			IsFromMe:       true,
			Platform:       platform,
		}
		if _, err := h.recorder.Record(logging.WithMessageID(ctx, msg.ID), constants.EnvelopeSourceOutbound, msg); err != nil {
			h.logger.WarnwCtx(ctx, "Sent message was not recorded", "error", err)
		}
	}

	c.JSON(http.StatusOK, res)
}

// ReplyToComment godoc
// @Summary      Reply to a comment
// @Tags         outbound
// @Accept       json
// @Produce      json
// @Param        platform   path      string        true  "facebook or instagram"
// @Param        commentId  path      string        true  "Comment ID"
// @Param        reply      body      ReplyRequest  true  "Reply text"
// @Success      200  {object}  ReplyResult
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      502  {object}  errors.ErrorResponse
// @Router       /api/{platform}/comments/{commentId}/replies [post]
func (h *Handler) ReplyToComment(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	ctx := logging.WithPlatform(c.Request.Context(), platform)
	res, err := h.sender.ReplyToComment(ctx, platform, c.Param("commentId"), req.Text)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
