// Package outbound calls the Graph API on behalf of the connected business
// account: sending direct messages and replying to comments.
package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"inboxhook/internal/config"
	"inboxhook/internal/constants"
	"inboxhook/internal/credentials"
	"inboxhook/internal/logger"
	"inboxhook/pkg/circuitbreaker"
	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/metrics"
	"inboxhook/pkg/retry"
)

const maxErrorBody = 4 << 10

type SendResult struct {
	RecipientID string `json:"recipientId"`
	MessageID   string `json:"messageId"`
}

type ReplyResult struct {
	ID string `json:"id"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Client struct {
	http     *http.Client
	creds    credentials.Store
	baseURLs map[string]string
	policy   retry.Policy
	breakers map[string]*circuitbreaker.Wrapper
	logger   logger.Logger
	now      func() time.Time
}

func NewClient(cfg *config.Config, creds credentials.Store, log logger.Logger) *Client {
	timeout := cfg.Outbound.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	c := &Client{
		http:     &http.Client{Timeout: timeout},
		creds:    creds,
		baseURLs: make(map[string]string),
		policy:   retryPolicy(cfg.Outbound.Retry),
		breakers: make(map[string]*circuitbreaker.Wrapper),
		logger:   log,
		now:      time.Now,
	}

	for _, platform := range []string{constants.PlatformFacebook, constants.PlatformInstagram} {
		p, _ := cfg.Platforms.Get(platform)
		base := p.GraphAPIURL
		if base == "" {
			base = constants.DefaultGraphAPIURL
		}
		c.baseURLs[platform] = strings.TrimRight(base, "/")
		c.breakers[platform] = newBreaker("graph-api-"+platform, cfg.CircuitBreaker)
	}

	return c
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return policy
}

// Only retryable upstream failures count against the breaker; a 400 from the
// API says nothing about its health.
func newBreaker(name string, cfg config.CircuitBreakerConfig) *circuitbreaker.Wrapper {
	cbConfig := circuitbreaker.DefaultConfig(name)
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = circuitbreaker.TripOnFailureRatio(cfg.MinRequests, cfg.FailureRatio)
	}
	cbConfig.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return !appErr.IsRetryable()
		}
		return false
	}
	return circuitbreaker.NewWrapper(cbConfig)
}

// SendMessage sends a text direct message to recipientID.
func (c *Client) SendMessage(ctx context.Context, platform, recipientID, text string) (SendResult, error) {
	creds, err := c.credentials(ctx, platform)
	if err != nil {
		return SendResult{}, err
	}

	body := map[string]interface{}{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": text},
		"messaging_type": "RESPONSE",
	}

	var out struct {
		RecipientID string `json:"recipient_id"`
		MessageID   string `json:"message_id"`
	}
	if err := c.call(ctx, platform, "send_message", messagesPath(platform, creds), creds.AccessToken, body, &out); err != nil {
		return SendResult{}, err
	}

	return SendResult{RecipientID: firstNonEmpty(out.RecipientID, recipientID), MessageID: out.MessageID}, nil
}

// ReplyToComment posts text as a public reply under commentID.
func (c *Client) ReplyToComment(ctx context.Context, platform, commentID, text string) (ReplyResult, error) {
	creds, err := c.credentials(ctx, platform)
	if err != nil {
		return ReplyResult{}, err
	}

	var out ReplyResult
	body := map[string]string{"message": text}
	if err := c.call(ctx, platform, "reply_comment", commentPath(platform, commentID), creds.AccessToken, body, &out); err != nil {
		return ReplyResult{}, err
	}
	return out, nil
}

func messagesPath(platform string, creds credentials.Credentials) string {
	if platform == constants.PlatformInstagram && creds.AccountID != "" {
		return "/" + creds.AccountID + "/messages"
	}
	return "/me/messages"
}

func commentPath(platform, commentID string) string {
	if platform == constants.PlatformInstagram {
		return "/" + commentID + "/replies"
	}
	return "/" + commentID + "/comments"
}

func (c *Client) credentials(ctx context.Context, platform string) (credentials.Credentials, error) {
	if _, ok := c.baseURLs[platform]; !ok {
		return credentials.Credentials{}, pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("unknown platform %q", platform))
	}

	creds, ok, err := c.creds.Get(ctx, platform)
	if err != nil {
		return credentials.Credentials{}, err
	}
	if !ok {
		return credentials.Credentials{}, pkgerrors.ErrConfiguration.
			WithMessage(fmt.Sprintf("%s is not connected", platform)).
			WithDetail("platform", platform)
	}
	if creds.Expired(c.now()) {
		return credentials.Credentials{}, pkgerrors.ErrConfiguration.
			WithMessage(fmt.Sprintf("%s access token expired", platform)).
			WithDetail("platform", platform)
	}
	return creds, nil
}

func (c *Client) call(ctx context.Context, platform, operation, path, token string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURLs[platform] + path
	breaker := c.breakers[platform]

	return retry.Do(ctx, c.policy, func() error {
		_, err := breaker.Execute(ctx, func() (interface{}, error) {
			return nil, c.do(ctx, platform, operation, url, token, payload, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return pkgerrors.ErrUpstream.WithMessage("platform API circuit open").
				WithDetail("platform", platform).
				WithCause(err).
				AsFatal()
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues("outbound", platform+"."+operation).Inc()
		c.logger.WarnwCtx(ctx, "Retrying platform API call",
			"platform", platform,
			"operation", operation,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
}

func (c *Client) do(ctx context.Context, platform, operation, url, token string, payload []byte, out interface{}) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveOutboundRequest(platform, operation, "error", time.Since(start))
		return pkgerrors.ErrUpstream.WithCause(err).WithDetail("platform", platform).AsRetryable()
	}
	defer resp.Body.Close()

	metrics.ObserveOutboundRequest(platform, operation, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return upstreamError(platform, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.ErrUpstream.WithMessage("failed to decode platform response").
			WithCause(err).
			AsFatal()
	}
	return nil
}

// upstreamError keeps the Graph error message. 5xx and 429 are retried, any
// other status is final.
func upstreamError(platform string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	appErr := pkgerrors.ErrUpstream.
		WithDetail("platform", platform).
		WithDetail("upstream_status", resp.StatusCode)

	var ge graphError
	if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
		appErr = appErr.WithMessage(ge.Error.Message).WithDetail("upstream_code", ge.Error.Code)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return appErr.AsRetryable()
	}
	return appErr.AsFatal()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
