package synthia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// ──────────────────────────────────────────────
// Federation transport — named serverless actions
// ──────────────────────────────────────────────

const federationMaxErrorBodySize = 128 * 1024 // 128KB limit for error response bodies

// pingAction is the lightweight health-check action.
const pingAction = "ping"

// FederationInvoker is the transport to the federation's named actions.
// Implementations return the raw response body; callers parse it leniently.
type FederationInvoker interface {
	// Invoke sends a request payload to the named action and waits for the
	// response body.
	Invoke(ctx context.Context, action string, payload interface{}) ([]byte, error)
	// Ping sends a lightweight health check with a bounded wait. Any timeout
	// or error yields false; Ping never returns an error.
	Ping(ctx context.Context) bool
}

// FederationError wraps HTTP non-2xx responses with status code and body
// preview.
type FederationError struct {
	Action      string
	StatusCode  int
	BodyPreview string // truncated to 512 chars
}

func (e *FederationError) Error() string {
	return fmt.Sprintf("federation: %s: http %d: %s", e.Action, e.StatusCode, e.BodyPreview)
}

// ──────────────────────────────────────────────
// HTTPFederation
// ──────────────────────────────────────────────

// HTTPFederationConfig holds the optional knobs of HTTPFederation.
type HTTPFederationConfig struct {
	RequestTimeout time.Duration // default 15s
	HealthTimeout  time.Duration // default 3s
	Headers        map[string]string
	Tracer         *CallTracer
}

// HTTPFederation invokes federation actions over HTTP POST at
// {base}/functions/{action} with a JSON body.
type HTTPFederation struct {
	baseURL       string
	apiKey        string
	headers       map[string]string
	healthTimeout time.Duration
	client        *http.Client
	tracer        *CallTracer
}

// NewHTTPFederation creates an HTTP transport for the given federation.
func NewHTTPFederation(baseURL, apiKey string, config ...HTTPFederationConfig) *HTTPFederation {
	cfg := HTTPFederationConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 3 * time.Second
	}
	return &HTTPFederation{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		headers:       cfg.Headers,
		healthTimeout: cfg.HealthTimeout,
		client:        &http.Client{Timeout: cfg.RequestTimeout},
		tracer:        cfg.Tracer,
	}
}

func (f *HTTPFederation) url(action string) string {
	return fmt.Sprintf("%s/functions/%s", f.baseURL, action)
}

func (f *HTTPFederation) Invoke(ctx context.Context, action string, payload interface{}) ([]byte, error) {
	start := time.Now()
	body, err := f.invoke(ctx, action, payload)
	if f.tracer != nil {
		f.tracer.Record(newCallSpan(action, start, err))
	}
	return body, err
}

func (f *HTTPFederation) invoke(ctx context.Context, action string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("federation: %s: marshal: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.url(action), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("federation: %s: request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("federation: %s: call: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limited := io.LimitReader(resp.Body, federationMaxErrorBodySize)
		body, _ := io.ReadAll(limited)
		preview := string(body)
		if len(preview) > 512 {
			preview = preview[:512] + "..."
		}
		return nil, &FederationError{
			Action:      action,
			StatusCode:  resp.StatusCode,
			BodyPreview: preview,
		}
	}

	return io.ReadAll(resp.Body)
}

// Ping sends the health-check action with its own bounded timeout. Any
// failure yields false.
func (f *HTTPFederation) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, f.healthTimeout)
	defer cancel()
	_, err := f.Invoke(ctx, pingAction, map[string]interface{}{})
	if err != nil {
		log.Printf("[Federation] health check failed: %v", err)
		return false
	}
	return true
}

var _ FederationInvoker = (*HTTPFederation)(nil)

// ──────────────────────────────────────────────
// InProcessFederation (for testing)
// ──────────────────────────────────────────────

// InProcessFederation implements FederationInvoker by calling a handler
// function directly. Used for deterministic testing without a network.
type InProcessFederation struct {
	handler func(action string, payload []byte) ([]byte, error)
	healthy atomic.Bool
}

// NewInProcessFederation creates a transport that delegates to the given
// handler. The transport starts healthy.
func NewInProcessFederation(handler func(action string, payload []byte) ([]byte, error)) *InProcessFederation {
	t := &InProcessFederation{handler: handler}
	t.healthy.Store(true)
	return t
}

// SetHealthy controls what Ping reports. Safe to call concurrently with
// Ping.
func (t *InProcessFederation) SetHealthy(healthy bool) {
	t.healthy.Store(healthy)
}

func (t *InProcessFederation) Invoke(ctx context.Context, action string, payload interface{}) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("federation: %s: marshal: %w", action, err)
	}
	return t.handler(action, data)
}

func (t *InProcessFederation) Ping(ctx context.Context) bool {
	return t.healthy.Load()
}

var _ FederationInvoker = (*InProcessFederation)(nil)
