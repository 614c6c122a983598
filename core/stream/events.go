package stream

import (
	"context"
	"iter"
	"log/slog"

	"github.com/koscakluka/ema-chat/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var droppedRecords, _ = meter.Int64Counter(
	"stream.records.dropped",
	metric.WithDescription("Stream records discarded before dispatch."),
)

type Option func(*options)

type options struct {
	logger *slog.Logger
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Events frames and decodes chunks into events, in arrival order.
//
// Records that fail to decode are logged and skipped; the only errors
// yielded are the ones the chunk source reports, after which iteration
// stops. An unterminated record at the end of the stream is dropped.
func Events(ctx context.Context, chunks iter.Seq2[[]byte, error], opts ...Option) iter.Seq2[events.Event, error] {
	cfg := options{logger: logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(events.Event, error) bool) {
		framer := NewFramer()
		for chunk, err := range chunks {
			if err != nil {
				yield(nil, err)
				return
			}

			for _, payload := range framer.Push(string(chunk)) {
				event, err := Decode([]byte(payload))
				if err != nil {
					cfg.logger.Warn("dropping stream record",
						slog.String("error", err.Error()),
						slog.Int("record.size", len(payload)),
					)
					droppedRecords.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "undecodable")))
					continue
				}

				if !yield(event, nil) {
					return
				}
			}
		}

		if dropped := framer.Close(); dropped {
			cfg.logger.Debug("dropping unterminated stream record")
			droppedRecords.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "unterminated")))
		}
	}
}
