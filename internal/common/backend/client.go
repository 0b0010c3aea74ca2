// Package backend is the typed client of the royalty backend REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 10 << 20

// Doer is satisfied by *http.Client and the breaker-wrapped common/http client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    Doer
	logger  logger.Logger
	tracer  trace.Tracer
}

func NewClient(baseURL string, doer Doer, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    doer,
		logger:  log.WithFields(map[string]interface{}{"component": "backend"}),
		tracer:  otel.Tracer("royalty-portal/backend"),
	}
}

type call struct {
	endpoint string // metric and span label
	method   string
	path     string
	token    string
	headers  map[string]string
	body     interface{}
	out      interface{}
}

func (c *Client) do(ctx context.Context, cl call) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "backend."+cl.endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", cl.method),
			attribute.String("backend.endpoint", cl.endpoint),
		),
	)
	defer span.End()
	defer func() {
		metrics.BackendDuration.WithLabelValues(cl.endpoint).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return errors.NewValidationError(fmt.Sprintf("encode %s body: %v", cl.endpoint, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return errors.NewBackendUnavailableError(cl.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(cl.endpoint, "transport_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Warn("backend call failed", map[string]interface{}{
			"endpoint": cl.endpoint,
			"path":     cl.path,
			"error":    err.Error(),
		})
		return errors.NewBackendUnavailableError(cl.endpoint, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.BackendRequests.WithLabelValues(cl.endpoint, "transport_error").Inc()
		span.RecordError(err)
		return errors.NewBackendUnavailableError(cl.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.BackendRequests.WithLabelValues(cl.endpoint, "rejected").Inc()
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		c.logger.Info("backend rejected call", map[string]interface{}{
			"endpoint": cl.endpoint,
			"path":     cl.path,
			"status":   resp.StatusCode,
		})
		return errors.NewBackendRejectedError(cl.endpoint, resp.StatusCode, extractDetail(data))
	}

	metrics.BackendRequests.WithLabelValues(cl.endpoint, "ok").Inc()

	if cl.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		span.RecordError(err)
		return errors.NewBackendDecodeError(cl.endpoint, err)
	}
	return nil
}

// extractDetail returns the error payload's "detail" field when it is a
// string. Structured details fall back to the generic message.
func extractDetail(data []byte) string {
	var payload struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Detail.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
