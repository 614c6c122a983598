// Package session ties a transport, the response dispatcher and audio
// playback into a chat session that handles one user message at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koscakluka/ema-chat/core/audio"
	"github.com/koscakluka/ema-chat/core/dispatch"
	"github.com/koscakluka/ema-chat/core/playback"
	"github.com/koscakluka/ema-chat/core/presenter"
	"github.com/koscakluka/ema-chat/core/stream"
	"github.com/koscakluka/ema-chat/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyMessage = errors.New("message is empty")

type Controller struct {
	transport  transport.Transport
	presenter  presenter.Presenter
	unlocker   *playback.UnlockManager
	player     *playback.Orchestrator
	dispatcher *dispatch.Dispatcher

	purgeOnTransportError bool
	logger                *slog.Logger
}

func New(t transport.Transport, p presenter.Presenter, sink audio.Sink, opts ...Option) *Controller {
	o := options{
		minPayloadChars: playback.DefaultMinPayloadChars,
		interClipGap:    playback.DefaultInterClipGap,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(&o)
	}

	unlocker := playback.NewUnlockManager(sink,
		playback.WithMaxAttempts(o.maxUnlockAttempts),
		playback.WithSilenceEncoding(o.encoding),
		playback.WithUnlockLogger(o.logger),
	)
	player := playback.NewOrchestrator(sink, p,
		playback.WithDecoder(o.decoder),
		playback.WithInterClipGap(o.interClipGap),
		playback.WithUnlockManager(unlocker),
		playback.WithLogger(o.logger),
	)
	dispatcher := dispatch.New(p, player,
		dispatch.WithMinPayloadChars(o.minPayloadChars),
		dispatch.WithToolCallObserver(o.onToolCall),
		dispatch.WithLogger(o.logger),
	)

	return &Controller{
		transport:             t,
		presenter:             p,
		unlocker:              unlocker,
		player:                player,
		dispatcher:            dispatcher,
		purgeOnTransportError: o.purgeOnTransportError,
		logger:                o.logger,
	}
}

// Submit sends message and processes the whole response before returning.
// Audio from the response may still be playing afterwards.
//
// Transport failures are shown to the user and returned; everything else
// that goes wrong with the response is absorbed.
func (c *Controller) Submit(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}

	ctx, span := tracer.Start(ctx, "submit message")
	defer span.End()
	span.SetAttributes(attribute.Int("message.length", len(message)))

	c.presenter.SetInputEnabled(false)
	c.presenter.HideCaption()
	c.presenter.SetStatus(presenter.StatusThinking, false)
	c.dispatcher.Begin()

	if err := c.unlocker.EnsureUnlocked(ctx); err != nil {
		c.logger.Warn("continuing with locked playback", slog.String("error", err.Error()))
	}

	chunks := c.transport.Stream(ctx, transport.Request{Message: message})
	for event, err := range stream.Events(ctx, chunks, stream.WithLogger(c.logger)) {
		if err != nil {
			err = fmt.Errorf("failed to stream response: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			if c.purgeOnTransportError {
				dropped := c.player.Clear()
				span.SetAttributes(attribute.Int("playback.purged", dropped))
			}
			c.dispatcher.Abort(presenter.StatusConnectionError)
			return err
		}

		span.AddEvent("event", trace.WithAttributes(attribute.String("event.kind", string(event.Kind()))))
		c.dispatcher.Dispatch(ctx, event)
	}

	c.dispatcher.Finish()
	return nil
}

// EnsureUnlocked primes audio playback, typically on the first user
// interaction.
func (c *Controller) EnsureUnlocked(ctx context.Context) error {
	return c.unlocker.EnsureUnlocked(ctx)
}

// AwaitIdle blocks until all queued audio has played.
func (c *Controller) AwaitIdle(ctx context.Context) error {
	return c.player.AwaitIdle(ctx)
}

// Close stops playback. The sink is owned by the caller and left open.
func (c *Controller) Close() {
	c.player.Close()
}
