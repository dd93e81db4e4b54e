// Package messages is the read/write API the dashboard and backfill jobs use
// against the event store.
package messages

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inboxhook/internal/constants"
	"inboxhook/internal/eventstore"
	"inboxhook/internal/ingestion"
	"inboxhook/internal/logger"
	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/logging"
	"inboxhook/pkg/models"
)

// CreateMessageRequest is the body backfill jobs post. Text, timestamp and
// attachments are optional.
type CreateMessageRequest struct {
	ID             string              `json:"id" binding:"required"`
	ConversationID string              `json:"conversationId" binding:"required"`
	SenderID       string              `json:"senderId"`
	Text           string              `json:"text"`
	Timestamp      int64               `json:"timestamp"`
	IsFromMe       bool                `json:"isFromMe"`
	Attachments    []models.Attachment `json:"attachments"`
	Platform       string              `json:"platform"`
}

func (r CreateMessageRequest) toMessage(now time.Time) models.StoredMessage {
	ts := r.Timestamp
	if ts == 0 {
		ts = now.UnixMilli()
	}
	return models.StoredMessage{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Text:           r.Text,
		Timestamp:      ts,
		IsFromMe:       r.IsFromMe,
		Attachments:    r.Attachments,
		Platform:       r.Platform,
	}
}

type ListResponse struct {
	Messages []models.StoredMessage `json:"messages"`
	// LastUpdate is only set on unfiltered listings.
	LastUpdate *int64 `json:"lastUpdate,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type Handler struct {
	store  eventstore.Store
	ingest *ingestion.Service
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(store eventstore.Store, ingest *ingestion.Service, log logger.Logger) *Handler {
	return &Handler{
		store:  store,
		ingest: ingest,
		logger: log,
		now:    time.Now,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	msgs := router.Group("/messages")
	{
		msgs.GET("", h.List)
		msgs.POST("", h.Create)
		msgs.DELETE("", h.Clear)
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(pkgerrors.ToHTTPStatus(err), pkgerrors.ToErrorResponse(err))
}

// List godoc
// @Summary      List stored messages
// @Description  With conversationId, that thread sorted by timestamp; otherwise every message plus lastUpdate
// @Tags         messages
// @Produce      json
// @Param        conversationId  query     string  false  "Conversation to filter by"
// @Success      200  {object}  ListResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /api/messages [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if conversationID := c.Query("conversationId"); conversationID != "" {
		msgs, err := h.store.ListByConversation(ctx, conversationID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, ListResponse{Messages: nonNil(msgs)})
		return
	}

	snap, err := h.store.ListAll(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	lastUpdate := snap.LastUpdate
	c.JSON(http.StatusOK, ListResponse{Messages: nonNil(snap.Messages), LastUpdate: &lastUpdate})
}

// Create godoc
// @Summary      Store a message
// @Description  Idempotent on id; used by sync jobs to backfill history
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        message  body      CreateMessageRequest  true  "Message"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /api/messages [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(
			pkgerrors.ErrValidation.WithMessage("id and conversationId are required").WithCause(err)))
		return
	}

	msg := req.toMessage(h.now())
	ctx := logging.WithMessageID(c.Request.Context(), msg.ID)

	inserted, err := h.ingest.Record(ctx, constants.EnvelopeSourceBackfill, msg)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.DebugwCtx(ctx, "Message recorded",
		"conversation_id", msg.ConversationID,
		"inserted", inserted,
	)
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// Clear godoc
// @Summary      Delete every stored message
// @Tags         messages
// @Produce      json
// @Success      200  {object}  SuccessResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /api/messages [delete]
func (h *Handler) Clear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.WarnwCtx(c.Request.Context(), "Message store cleared")
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// Backfill consumes envelopes from the backfill topic.
func (h *Handler) Backfill(ctx context.Context, env models.MessageEnvelope) error {
	if env.Message.Timestamp == 0 {
		env.Message.Timestamp = h.now().UnixMilli()
	}

	inserted, err := h.ingest.Record(ctx, constants.EnvelopeSourceBackfill, env.Message)
	if err != nil {
		return err
	}

	h.logger.DebugwCtx(ctx, "Backfill message recorded",
		"conversation_id", env.Message.ConversationID,
		"inserted", inserted,
	)
	return nil
}

func nonNil(msgs []models.StoredMessage) []models.StoredMessage {
	if msgs == nil {
		return []models.StoredMessage{}
	}
	return msgs
}
