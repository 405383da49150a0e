package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is the normalized outcome of a tool invocation. Every call yields
// exactly one of {success:true}, {success:true,data} or
// {success:false,error}; a transport response outside that shape is itself
// treated as a failure. The unexported-style annotation fields are engine
// metadata and never part of the wire contract.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`

	// ValidationFailed marks a result produced before any transport call.
	ValidationFailed bool `json:"-"`
	// RetryExhausted marks a final failure after the single retry.
	RetryExhausted bool `json:"-"`
}

// Transport performs the actual tool call. Implementations must return a
// normalized Result; any fault they cannot normalize is returned as an error
// and treated as a failure by the gateway, never propagated further.
type Transport interface {
	RoundTrip(ctx context.Context, def Definition, params map[string]any) (Result, error)
}

// HTTPTransport dispatches tool calls to real HTTP endpoints under a base
// URL. Path placeholders ({order_id}) are filled from params; POST bodies
// carry the params as JSON.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport builds a transport with a sane default client timeout.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, def Definition, params map[string]any) (Result, error) {
	url := t.BaseURL + def.Endpoint
	for key, value := range params {
		url = strings.ReplaceAll(url, "{"+key+"}", fmt.Sprint(value))
	}

	var body io.Reader
	method := def.Method
	if method == "" {
		method = http.MethodGet
	}
	if method == http.MethodPost {
		encoded, err := json.Marshal(params)
		if err != nil {
			return Result{}, fmt.Errorf("encode params: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Result{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Success: false, Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))}, nil
	}
	return normalize(raw)
}

func (t *HTTPTransport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

// normalize maps a raw response body onto the uniform result contract.
// Endpoints that already speak the contract pass through; a bare JSON object
// is wrapped as success data; anything else is a malformed-response failure.
func normalize(raw []byte) (Result, error) {
	var envelope struct {
		Success *bool          `json:"success"`
		Data    map[string]any `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Success != nil {
		if !*envelope.Success && envelope.Error == "" {
			return Result{}, fmt.Errorf("malformed tool response: failure without error message")
		}
		return Result{Success: *envelope.Success, Data: envelope.Data, Error: envelope.Error}, nil
	}

	var plain map[string]any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return Result{}, fmt.Errorf("malformed tool response: %s", truncate(string(raw), 100))
	}
	return Result{Success: true, Data: plain}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
