package transport

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WebSocket opens one connection per turn. The request is sent as a single
// JSON text message and every text message received afterwards is one
// event record; the server closes the connection when the turn is over.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

type WebSocketOption func(*WebSocket)

func WithDialer(dialer *websocket.Dialer) WebSocketOption {
	return func(w *WebSocket) {
		if dialer != nil {
			w.dialer = dialer
		}
	}
}

// WithHeader adds headers to the opening handshake.
func WithHeader(header http.Header) WebSocketOption {
	return func(w *WebSocket) { w.header = header }
}

func WithWebSocketLogger(logger *slog.Logger) WebSocketOption {
	return func(w *WebSocket) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WebSocket) Stream(ctx context.Context, req Request) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		ctx, span := tracer.Start(ctx, "stream response", trace.WithAttributes(
			attribute.String("transport.kind", "websocket"),
			attribute.String("request.url", w.url),
		))
		defer span.End()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		conn, resp, err := w.dialer.DialContext(ctx, w.url, w.header)
		if err != nil {
			if resp != nil {
				span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
				err = fmt.Errorf("%w: %s: %w", ErrUnexpectedStatus, resp.Status, err)
			}
			fail(fmt.Errorf("failed to open websocket: %w", err))
			return
		}
		defer conn.Close()

		// Unblock ReadMessage when the caller gives up.
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()

		if err := conn.WriteJSON(req); err != nil {
			fail(fmt.Errorf("failed to send request: %w", err))
			return
		}

		messages := 0
		for {
			messageType, message, err := conn.ReadMessage()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				span.SetAttributes(attribute.Int("response.messages", messages))
				w.logger.Debug("websocket closed by server", slog.Int("messages", messages))
				return
			} else if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = errors.Join(ctxErr, err)
				}
				fail(fmt.Errorf("error reading websocket: %w", err))
				return
			}

			if messageType != websocket.TextMessage {
				w.logger.Debug("ignoring non-text websocket message", slog.Int("type", messageType))
				continue
			}

			messages++
			if !yield(frame(message), nil) {
				return
			}
		}
	}
}

// frame wraps one message as an event-stream record so it can share the
// framer with the HTTP transport.
func frame(message []byte) []byte {
	var b strings.Builder
	for line := range strings.Lines(string(message)) {
		line = strings.TrimRight(line, "\r\n")
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		b.WriteString("data: \n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}
