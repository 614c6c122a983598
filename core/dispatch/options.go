package dispatch

import (
	"log/slog"

	"github.com/koscakluka/ema-chat/core/events"
)

type Option func(*Dispatcher)

// WithMinPayloadChars sets the shortest audio payload that is still
// queued for playback.
func WithMinPayloadChars(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.minPayloadChars = n
		}
	}
}

// WithToolCallObserver receives every tool call the backend reports. The
// observer is called synchronously and must not block.
func WithToolCallObserver(observer func(events.ToolCall)) Option {
	return func(d *Dispatcher) { d.onToolCall = observer }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}
