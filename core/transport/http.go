package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	readBufferSize = 32 * 1024
	maxErrorBody   = 4 * 1024
)

// HTTP posts the message as JSON and reads a text/event-stream response.
type HTTP struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client. Its transport is used as is,
// without tracing.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithRequestTimeout bounds the whole exchange including reading the
// stream. Zero means no timeout.
func WithRequestTimeout(timeout time.Duration) HTTPOption {
	return func(h *HTTP) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url: url,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.timeout > 0 {
		client := *h.client
		client.Timeout = h.timeout
		h.client = &client
	}
	return h
}

func (h *HTTP) Stream(ctx context.Context, req Request) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		ctx, span := tracer.Start(ctx, "stream response", trace.WithAttributes(
			attribute.String("transport.kind", "http"),
			attribute.String("request.url", h.url),
		))
		defer span.End()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		body, err := json.Marshal(req)
		if err != nil {
			fail(fmt.Errorf("error marshalling request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
		if err != nil {
			fail(fmt.Errorf("error creating HTTP request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")

		span.AddEvent("request started")
		resp, err := h.client.Do(httpReq)
		if err != nil {
			fail(fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if errorBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}
			fail(fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status))
			return
		}

		received := 0
		buf := make([]byte, readBufferSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				if received == 0 {
					span.AddEvent("received first chunk")
				}
				received += n
				if !yield(bytes.Clone(buf[:n]), nil) {
					return
				}
			}

			if errors.Is(err, io.EOF) {
				span.SetAttributes(attribute.Int("response.bytes", received))
				h.logger.Debug("response stream complete", slog.Int("bytes", received))
				return
			} else if err != nil {
				fail(fmt.Errorf("error reading response: %w", err))
				return
			}
		}
	}
}
