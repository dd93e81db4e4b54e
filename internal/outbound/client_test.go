package outbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxhook/internal/config"
	"inboxhook/internal/credentials"
	"inboxhook/internal/logger"
	pkgerrors "inboxhook/pkg/errors"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Platforms: config.PlatformsConfig{
			Facebook:  config.PlatformConfig{AccessToken: "fb-token", AccountID: "PAGE", GraphAPIURL: baseURL},
			Instagram: config.PlatformConfig{AccessToken: "ig-token", AccountID: "IG1", GraphAPIURL: baseURL + "/"},
		},
		Outbound: config.OutboundConfig{
			Timeout: time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:     3,
				InitialInterval: time.Millisecond,
				MaxInterval:     5 * time.Millisecond,
				Multiplier:      2,
			},
		},
	}
}

func newTestClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()
	return NewClient(cfg, credentials.NewConfigStore(cfg.Platforms, logger.NopLogger()), logger.NopLogger())
}

func TestSendMessage(t *testing.T) {
	tests := []struct {
		platform string
		wantPath string
		token    string
	}{
		{"facebook", "/me/messages", "fb-token"},
		{"instagram", "/IG1/messages", "ig-token"},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, "Bearer "+tt.token, r.Header.Get("Authorization"))

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, map[string]interface{}{"id": "U1"}, body["recipient"])
				assert.Equal(t, map[string]interface{}{"text": "hello"}, body["message"])

				_, _ = w.Write([]byte(`{"recipient_id":"U1","message_id":"mid.1"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, testConfig(srv.URL))
			res, err := c.SendMessage(context.Background(), tt.platform, "U1", "hello")
			require.NoError(t, err)
			assert.Equal(t, SendResult{RecipientID: "U1", MessageID: "mid.1"}, res)
		})
	}
}

func TestReplyToComment(t *testing.T) {
	tests := []struct {
		platform string
		wantPath string
	}{
		{"facebook", "/C1/comments"},
		{"instagram", "/C1/replies"},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				_, _ = w.Write([]byte(`{"id":"R1"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, testConfig(srv.URL))
			res, err := c.ReplyToComment(context.Background(), tt.platform, "C1", "thanks")
			require.NoError(t, err)
			assert.Equal(t, "R1", res.ID)
		})
	}
}

func TestCall_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"recipient_id":"U1","message_id":"mid.2"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	res, err := c.SendMessage(context.Background(), "facebook", "U1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "mid.2", res.MessageID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCall_ClientErrorsAreFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"(#100) No matching user found","type":"OAuthException","code":100}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	_, err := c.SendMessage(context.Background(), "facebook", "nobody", "hi")
	require.Error(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, http.StatusBadGateway, pkgerrors.ToHTTPStatus(err))
	assert.Contains(t, err.Error(), "No matching user found")
}

func TestCall_NotConnected(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Platforms.Instagram.AccessToken = ""
	c := newTestClient(t, cfg)

	_, err := c.SendMessage(context.Background(), "instagram", "U1", "hi")
	assert.True(t, pkgerrors.IsConfiguration(err))

	_, err = c.SendMessage(context.Background(), "tiktok", "U1", "hi")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestCall_ExpiredToken(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Platforms.Facebook.ExpiresAt = 1000
	c := newTestClient(t, cfg)

	_, err := c.ReplyToComment(context.Background(), "facebook", "C1", "hi")
	assert.True(t, pkgerrors.IsConfiguration(err))
}
