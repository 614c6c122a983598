// Package transport sends a chat message to the backend and exposes the
// response as a lazy sequence of raw chunks in event-stream framing.
package transport

import (
	"context"
	"errors"
	"iter"
)

// ErrUnexpectedStatus is returned when the backend answers with a non-2xx
// status.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Request is the body sent for every turn.
type Request struct {
	Message string `json:"message"`
}

// Transport issues one request per turn. The returned sequence yields raw
// chunks with arbitrary split points; any error ends it.
type Transport interface {
	Stream(ctx context.Context, req Request) iter.Seq2[[]byte, error]
}
