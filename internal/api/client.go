package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/provider-console/internal/common"
)

// Config for the validation backend client.
type Config struct {
	BaseURL    string        // default http://localhost:8000/api
	Timeout    time.Duration // http client timeout
	HTTPClient *http.Client  // optional; overrides Timeout
}

// Client talks to the provider validation backend over its REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = common.DefaultAPIURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: non-2xx status: %d", e.Method, e.Path, e.StatusCode)
	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return common.ErrNotFound
	}
	return nil
}

// detail extracts FastAPI's {"detail": "..."} message when present.
func (e *StatusError) detail() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != nil {
		return fmt.Sprint(body.Detail)
	}
	return ""
}

// request describes one call; the zero value of optional fields means "none".
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// send issues the request and returns the raw response body for 2xx responses.
// Transport failures are NetworkErrors; non-2xx responses are *StatusError.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	endpoint := c.cfg.BaseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		c.logger.Error("api.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	c.logger.Debug("api.http.request",
		"req_id", reqID,
		"method", r.method,
		"path", r.path,
		"job_id", common.JobIDFromContext(ctx),
		"content_length", len(r.body),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api.http.send_error",
			"req_id", reqID, "method", r.method, "path", r.path, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NetworkError(fmt.Sprintf("%s %s", r.method, r.path), err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("api.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NetworkError(fmt.Sprintf("read %s %s", r.method, r.path), err)
	}

	c.logger.Debug("api.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// getJSON fetches path, checks the body against schema and decodes it into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, schema schemaName, out any) error {
	raw, err := c.send(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	return decode(raw, schema, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, schema schemaName, out any) error {
	bs, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	raw, err := c.send(ctx, request{method: http.MethodPost, path: path, body: bs, contentType: "application/json"})
	if err != nil {
		return err
	}
	return decode(raw, schema, out)
}

func decode(raw []byte, schema schemaName, out any) error {
	if err := validateAgainst(schema, raw); err != nil {
		return common.NewAppError(common.CodeDecode, fmt.Sprintf("%s response", schema), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.NewAppError(common.CodeDecode, fmt.Sprintf("decode %s response", schema), err)
	}
	return nil
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
