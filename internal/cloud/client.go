// Package cloud talks to an OpenAI-compatible HTTP API for transcription and
// text polish.
package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/version"
	"golang.org/x/net/http2"
)

const maxErrorBody = 2048

// Config addresses the remote API.
type Config struct {
	BaseURL         string
	TranscribeModel string
	PolishModel     string
	// TextPath selects the transcript in the transcription response, as a
	// dotted path with optional indexes such as "results[0].text".
	TextPath string
	Timeout  time.Duration
}

// Client implements session.Transcriber and session.Polisher.
type Client struct {
	cfg        Config
	credential func() string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP/2-enabled default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client. credential is consulted on every request so key
// changes apply without a restart.
func New(cfg Config, credential func() string, opts ...Option) *Client {
	if credential == nil {
		credential = func() string { return "" }
	}
	if strings.TrimSpace(cfg.TextPath) == "" {
		cfg.TextPath = "text"
	}
	c := &Client{
		cfg:        cfg,
		credential: credential,
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        4,
	}
	_ = http2.ConfigureTransport(tr)
	return &http.Client{Transport: tr, Timeout: timeout}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimSuffix(strings.TrimSpace(c.cfg.BaseURL), "/") + path
}

// do sends req and returns the body of a 2xx response. Every failure is a
// *session.BackendError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", version.UserAgent())
	if key := c.credential(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(req.Context(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(req.Context(), fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("cloud request finished",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return session.NewBackendError(session.ReasonCancelled, ctx.Err())
	}
	return session.NewBackendError(session.ReasonNetwork, err)
}

// statusError maps a non-2xx response onto a failure reason.
func statusError(status int, body []byte) error {
	detail := strings.TrimSpace(string(truncate(body, maxErrorBody)))
	if detail == "" {
		detail = http.StatusText(status)
	}

	reason := session.ReasonAPIRejected
	switch {
	case status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		reason = session.ReasonNetwork
	case status == http.StatusNotFound && mentionsModel(body):
		reason = session.ReasonModelUnavailable
	}
	return &session.BackendError{Reason: reason, Status: status, Err: errors.New(detail)}
}

func mentionsModel(body []byte) bool {
	return bytes.Contains(bytes.ToLower(body), []byte("model"))
}

func invalidResponse(format string, args ...any) error {
	return session.NewBackendError(session.ReasonInvalidResponse, fmt.Errorf(format, args...))
}

func truncate(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}
	return b[:limit]
}
