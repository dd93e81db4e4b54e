// Package webhook serves the Meta webhook callback for each platform: the
// subscription handshake on GET and event delivery on POST.
package webhook

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inboxhook/internal/constants"
	"inboxhook/internal/credentials"
	"inboxhook/internal/ingestion"
	"inboxhook/internal/logger"
	"inboxhook/internal/normalizer"
	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/logging"
	"inboxhook/pkg/metrics"
	"inboxhook/pkg/models"
)

const (
	QueryMode        = "hub.mode"
	QueryVerifyToken = "hub.verify_token"
	QueryChallenge   = "hub.challenge"
)

// SecretProvider resolves the app secret deliveries are signed with. An empty
// secret disables the signature check.
type SecretProvider interface {
	AppSecret(ctx context.Context, platform string) (string, error)
}

// Platform describes one webhook endpoint.
type Platform struct {
	Name string
	// Object is the top-level discriminator deliveries must carry.
	Object string
}

func Platforms() []Platform {
	return []Platform{
		{Name: constants.PlatformFacebook, Object: constants.ObjectPage},
		{Name: constants.PlatformInstagram, Object: constants.ObjectInstagram},
	}
}

type IngestResponse struct {
	Success  bool                   `json:"success"`
	Messages []models.StoredMessage `json:"messages"`
}

type Handler struct {
	tokens       credentials.VerifyTokenRegistry
	secrets      SecretProvider
	ingest       *ingestion.Service
	maxBodyBytes int64
	logger       logger.Logger
}

func NewHandler(tokens credentials.VerifyTokenRegistry, secrets SecretProvider, ingest *ingestion.Service, maxBodyBytes int64, log logger.Logger) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = constants.DefaultMaxBodyBytes
	}
	return &Handler{
		tokens:       tokens,
		secrets:      secrets,
		ingest:       ingest,
		maxBodyBytes: maxBodyBytes,
		logger:       log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	hooks := router.Group("/webhooks")
	for _, p := range Platforms() {
		hooks.GET("/"+p.Name, h.Verify(p))
		hooks.POST("/"+p.Name, h.Receive(p))
	}
}

func (h *Handler) fail(c *gin.Context, platform string, err error) {
	status := pkgerrors.ToHTTPStatus(err)
	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(ctx, "Webhook request failed", "platform", platform, "error", err)
	} else {
		h.logger.WarnwCtx(ctx, "Webhook request rejected", "platform", platform, "error", err)
	}
	c.JSON(status, pkgerrors.ToErrorResponse(err))
}

// Verify godoc
// @Summary      Webhook subscription handshake
// @Description  Echoes hub.challenge when hub.mode is subscribe and hub.verify_token matches the registered token
// @Tags         webhooks
// @Produce      plain
// @Param        platform          path   string  true  "facebook or instagram"
// @Param        hub.mode          query  string  true  "Must be subscribe"
// @Param        hub.verify_token  query  string  true  "Shared verify token"
// @Param        hub.challenge     query  string  true  "Value to echo back"
// @Success      200  {string}  string
// @Failure      403  {object}  errors.ErrorResponse
// @Router       /webhooks/{platform} [get]
func (h *Handler) Verify(p Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.WithPlatform(c.Request.Context(), p.Name)
		c.Request = c.Request.WithContext(ctx)

		status := http.StatusForbidden
		defer func() { metrics.IncWebhookRequest(p.Name, http.MethodGet, status) }()

		registered, err := h.tokens.VerifyToken(ctx, p.Name)
		if err != nil {
			h.fail(c, p.Name, pkgerrors.ErrConfiguration.WithMessage("verify token lookup failed").WithCause(err))
			return
		}
		if registered == "" {
			h.fail(c, p.Name, pkgerrors.ErrConfiguration.WithMessage("verify token is not configured"))
			return
		}

		if !handshakeOK(c.Query(QueryMode), c.Query(QueryVerifyToken), registered) {
			h.fail(c, p.Name, pkgerrors.ErrForbidden)
			return
		}

		status = http.StatusOK
		h.logger.InfowCtx(ctx, "Webhook subscription verified", "platform", p.Name)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(c.Query(QueryChallenge)))
	}
}

// handshakeOK never treats an empty registered token as a wildcard.
func handshakeOK(mode, token, registered string) bool {
	if registered == "" || mode != constants.HubModeSubscribe {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(registered)) == 1
}

// Receive godoc
// @Summary      Receive webhook events
// @Description  Normalizes the delivery and stores every message it contains
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        platform  path  string  true  "facebook or instagram"
// @Success      200  {object}  IngestResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      401  {object}  errors.ErrorResponse
// @Failure      413  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /webhooks/{platform} [post]
func (h *Handler) Receive(p Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logging.WithPlatform(c.Request.Context(), p.Name)
		c.Request = c.Request.WithContext(ctx)

		status := http.StatusInternalServerError
		defer func() {
			metrics.IncWebhookRequest(p.Name, http.MethodPost, status)
			metrics.ObserveWebhookDuration(p.Name, time.Since(start))
		}()

		resp, err := h.receive(ctx, p, c.Request)
		if err != nil {
			status = pkgerrors.ToHTTPStatus(err)
			h.fail(c, p.Name, err)
			return
		}

		status = http.StatusOK
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) receive(ctx context.Context, p Platform, r *http.Request) (*IngestResponse, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		return nil, pkgerrors.ErrValidation.WithMessage("failed to read request body").WithCause(err)
	}
	if int64(len(body)) > h.maxBodyBytes {
		return nil, pkgerrors.ErrPayloadTooLarge.WithDetail("limit_bytes", h.maxBodyBytes)
	}

	if err := h.checkSignature(ctx, p.Name, body, r.Header.Get(constants.SignatureHeader)); err != nil {
		return nil, err
	}

	payload, err := normalizer.Parse(body)
	if err != nil {
		return nil, err
	}
	if err := normalizer.ValidateObject(p.Name, payload); err != nil {
		return nil, err
	}

	result := normalizer.NormalizePayload(p.Name, payload)
	for _, s := range result.Skipped {
		h.logger.DebugwCtx(ctx, "Sub-event skipped",
			"entry", s.Entry,
			"index", s.Index,
			"source", s.Source,
			"reason", s.Reason,
		)
		metrics.IncWebhookEvent(p.Name, s.Source, "skipped")
	}

	report, err := h.ingest.Ingest(ctx, p.Name, result.Events)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	h.logger.InfowCtx(ctx, "Webhook delivery processed",
		"events", len(result.Events),
		"skipped", len(result.Skipped),
		"stored", report.Stored,
		"duplicates", report.Duplicates,
		"filtered", report.Filtered,
		"failed", report.Failed,
	)

	return &IngestResponse{Success: true, Messages: report.Messages}, nil
}

func (h *Handler) checkSignature(ctx context.Context, platform string, body []byte, header string) error {
	if h.secrets == nil {
		return nil
	}

	secret, err := h.secrets.AppSecret(ctx, platform)
	if err != nil {
		return pkgerrors.ErrInternal.WithCause(err)
	}
	if secret == "" {
		return nil
	}

	if !ValidSignature(secret, body, header) {
		return pkgerrors.ErrUnauthorized.WithMessage("invalid webhook signature")
	}
	return nil
}
