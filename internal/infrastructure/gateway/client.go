// Package gateway implements the authenticated request chokepoint for all
// marketplace API traffic.
//
// Transport failures never surface as errors: callers receive a synthetic
// status-0 response and branch on Response.OK / Response.Unreachable. The
// one exception is terminal session expiry, which interrupts the caller
// because silent continuation would be incorrect.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/api/metrics"
	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
	"github.com/ecosdelcampo/fieldsync/internal/pkg/bus"
)

const defaultTimeout = 30 * time.Second

// Config captures the settings of the gateway client.
type Config struct {
	// BaseURL is the API origin every endpoint path is resolved against.
	BaseURL string
	// RefreshPath is the cookie-authenticated token refresh endpoint.
	RefreshPath string
	Timeout     time.Duration
}

// Client is the authenticated request gateway. It injects the bearer token,
// performs at most one refresh-and-retry cycle on a 403, and normalizes
// transport failures into a status-0 response.
type Client struct {
	http        *http.Client
	baseURL     string
	refreshPath string
	creds       ports.CredentialStore
	bus         *bus.Bus
	log         zerolog.Logger
}

// New creates a gateway Client. The cookie jar carries the refresh-token
// cookie across calls, mirroring credentialed browser fetches.
func New(cfg Config, creds ports.CredentialStore, b *bus.Bus, log zerolog.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http:        &http.Client{Jar: jar, Timeout: timeout},
		baseURL:     cfg.BaseURL,
		refreshPath: cfg.RefreshPath,
		creds:       creds,
		bus:         b,
		log:         log,
	}, nil
}

// Request issues method against the relative endpoint path. A non-nil body
// is JSON-encoded. The returned error is non-nil only for terminal session
// expiry (domain.ErrSessionExpired).
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, opts ...ports.RequestOption) (*ports.Response, error) {
	var rc ports.RequestConfig
	for _, opt := range opts {
		opt(&rc)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("gateway: encode body: %w", err)
		}
	}

	token, _ := c.creds.Token(ctx)

	resp, err := c.do(ctx, method, endpoint, payload, token, rc.Header)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("transport failure")
		metrics.GatewayRequestsTotal.WithLabelValues("network_error").Inc()
		return networkErrorResponse(err), nil
	}

	// 403 with a stored token means the access token expired. One refresh,
	// one retry, never a loop.
	if resp.Status == http.StatusForbidden && token != "" {
		c.log.Info().Str("endpoint", endpoint).Msg("authorization expired, refreshing token")

		if !c.refresh(ctx) {
			_ = c.creds.Clear(ctx)
			c.bus.Publish(domain.EventSessionExpired, nil)
			metrics.GatewayRequestsTotal.WithLabelValues("http_error").Inc()
			return nil, domain.ErrSessionExpired
		}

		newToken, err := c.creds.Token(ctx)
		if err == nil {
			retried, err := c.do(ctx, method, endpoint, payload, newToken, rc.Header)
			if err != nil {
				metrics.GatewayRequestsTotal.WithLabelValues("network_error").Inc()
				return networkErrorResponse(err), nil
			}
			resp = retried
		}
	}

	if resp.OK() {
		metrics.GatewayRequestsTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.GatewayRequestsTotal.WithLabelValues("http_error").Inc()
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, token string, extra http.Header) (*ports.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range extra {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &ports.Response{Status: res.StatusCode, Header: res.Header, Body: b}, nil
}

// refresh exchanges the cookie-held refresh token for a new access token.
// Never retried; any failure is terminal for the current request.
func (c *Client) refresh(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, nil)
	if err != nil {
		return false
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("token refresh transport failure")
		metrics.GatewayRefreshTotal.WithLabelValues("failed").Inc()
		return false
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Warn().Int("status", res.StatusCode).Msg("token refresh rejected")
		metrics.GatewayRefreshTotal.WithLabelValues("failed").Inc()
		return false
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil || out.Token == "" {
		metrics.GatewayRefreshTotal.WithLabelValues("failed").Inc()
		return false
	}

	if err := c.creds.SaveToken(ctx, out.Token); err != nil {
		c.log.Error().Err(err).Msg("failed to persist refreshed token")
		metrics.GatewayRefreshTotal.WithLabelValues("failed").Inc()
		return false
	}

	c.log.Info().Msg("token refreshed")
	metrics.GatewayRefreshTotal.WithLabelValues("ok").Inc()
	return true
}

// networkErrorResponse is the uniform shape for transport failures: not ok,
// status sentinel 0, and a JSON body naming the underlying cause.
func networkErrorResponse(err error) *ports.Response {
	body, _ := json.Marshal(map[string]string{
		"message": "connection error",
		"error":   err.Error(),
	})
	return &ports.Response{Status: 0, Header: http.Header{}, Body: body}
}
