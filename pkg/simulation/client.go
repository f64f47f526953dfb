package simulation

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

	"github.com/google/uuid"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
)

const (
	// DefaultEngineURL is where a locally run engine listens.
	DefaultEngineURL = "http://localhost:8000"
	// DefaultTimeout bounds a single engine call.
	DefaultTimeout = 60 * time.Second

	rt60Path   = "/api/v1/simulate/rt60"
	healthPath = "/health"

	maxErrorBody = 64 << 10
)

// Engine runs simulations. Client is the HTTP implementation.
type Engine interface {
	Simulate(ctx context.Context, req EngineRequest) (EngineResponse, error)
	Health(ctx context.Context) (EngineHealth, error)
}

// EngineHealth is the engine's /health reply.
type EngineHealth struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ClientConfig configures the HTTP engine client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client talks to the engine over HTTP/JSON.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates an engine client. Zero config fields get defaults.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     logging.OrNop(cfg.Logger).With(logging.Component("engine_client")),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultEngineURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// BaseURL is the engine root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Simulate posts req and decodes the reply. Transport failures, non-2xx
// replies and undecodable bodies come back as *EngineError. A decoded reply
// with status "error" is returned as is for the caller to interpret.
func (c *Client) Simulate(ctx context.Context, req EngineRequest) (EngineResponse, error) {
	var resp EngineResponse
	body, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("marshal request: %w", err)
	}
	err = c.do(ctx, http.MethodPost, rt60Path, body, &resp)
	return resp, err
}

// Health fetches the engine's health report.
func (c *Client) Health(ctx context.Context) (EngineHealth, error) {
	var h EngineHealth
	err := c.do(ctx, http.MethodGet, healthPath, nil, &h)
	return h, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.New().String()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	timer := logging.StartTimer(c.logger, "engine call",
		logging.Operation(method+" "+path), logging.RequestID(requestID))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		timer.EndError(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &EngineError{Message: fmt.Sprintf("engine did not answer within %s", c.timeout)}
		}
		return &EngineError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(resp)
		timer.EndError(fmt.Errorf("status %d", resp.StatusCode))
		return &EngineError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		timer.EndError(err)
		return &EngineError{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	timer.End(logging.Int("status", resp.StatusCode))
	return nil
}

// errorMessage pulls a message out of an error reply: a JSON "message",
// "detail" or "error_message" field, else the status text.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message      string          `json:"message"`
		Detail       json.RawMessage `json:"detail"`
		ErrorMessage string          `json:"error_message"`
	}
	if json.Unmarshal(data, &body) == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.ErrorMessage != "":
			return body.ErrorMessage
		case len(body.Detail) > 0:
			var s string
			if json.Unmarshal(body.Detail, &s) == nil && s != "" {
				return s
			}
			return string(body.Detail)
		}
	}
	return fmt.Sprintf("HTTP Error %d", resp.StatusCode)
}
