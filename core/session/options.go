package session

import (
	"log/slog"
	"time"

	"github.com/koscakluka/ema-chat/core/audio"
	"github.com/koscakluka/ema-chat/core/events"
	"github.com/koscakluka/ema-chat/core/playback"
)

type Option func(*options)

type options struct {
	purgeOnTransportError bool
	minPayloadChars       int
	interClipGap          time.Duration
	maxUnlockAttempts     int
	encoding              audio.EncodingInfo
	decoder               playback.Decoder
	onToolCall            func(events.ToolCall)
	logger                *slog.Logger
}

// WithPurgeOnTransportError drops audio that has not started playing when
// the transport fails. By default queued audio keeps playing.
func WithPurgeOnTransportError(purge bool) Option {
	return func(o *options) { o.purgeOnTransportError = purge }
}

func WithMinPayloadChars(n int) Option {
	return func(o *options) { o.minPayloadChars = n }
}

func WithInterClipGap(gap time.Duration) Option {
	return func(o *options) { o.interClipGap = gap }
}

func WithMaxUnlockAttempts(n int) Option {
	return func(o *options) { o.maxUnlockAttempts = n }
}

// WithEncoding is the encoding the sink was opened with; the unlock
// silence is generated in it.
func WithEncoding(encoding audio.EncodingInfo) Option {
	return func(o *options) { o.encoding = encoding }
}

func WithDecoder(decoder playback.Decoder) Option {
	return func(o *options) { o.decoder = decoder }
}

func WithToolCallObserver(observer func(events.ToolCall)) Option {
	return func(o *options) { o.onToolCall = observer }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
