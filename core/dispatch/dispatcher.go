// Package dispatch applies response events to the conversation view and
// feeds spoken sentences to the audio orchestrator.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-chat/core/events"
	"github.com/koscakluka/ema-chat/core/playback"
	"github.com/koscakluka/ema-chat/core/presenter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	appliedEvents, _ = meter.Int64Counter(
		"dispatch.events.applied",
		metric.WithDescription("Response events applied to the conversation."),
	)
	droppedAudio, _ = meter.Int64Counter(
		"dispatch.audio.dropped",
		metric.WithDescription("Audio events dropped before reaching the playback queue."),
	)
)

// Player is the part of the audio orchestrator the dispatcher drives.
type Player interface {
	Enqueue(item playback.Item)
	// IdleOrDefer reports whether nothing is queued or playing, and if
	// something is, runs onDrained once the queue drained.
	IdleOrDefer(onDrained func()) bool
}

// Dispatcher turns response events into presenter calls and playback
// items. Events must be dispatched in arrival order; the dispatcher itself
// only guards its state against the drain goroutine.
type Dispatcher struct {
	mu sync.Mutex

	// openTurn is the ID of the assistant message receiving text, empty
	// when no message is open.
	openTurn string
	// inFlight is set from Begin until the turn ends, fails or is aborted.
	inFlight bool

	presenter       presenter.Presenter
	player          Player
	minPayloadChars int
	onToolCall      func(events.ToolCall)
	logger          *slog.Logger
}

func New(p presenter.Presenter, player Player, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		presenter:       p,
		player:          player,
		minPayloadChars: playback.DefaultMinPayloadChars,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Begin marks a new request as in flight. Call it before the first event
// of the response is dispatched.
func (d *Dispatcher) Begin() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight = true
}

// OpenTurn returns the ID of the assistant message currently receiving
// text, or "" when none is open.
func (d *Dispatcher) OpenTurn() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openTurn
}

// Dispatch applies a single event.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch e := event.(type) {
	case events.ResponseStarted:
		d.start()
	case events.TextChunk:
		d.appendText(e.Text)
	case events.AudioChunk:
		d.enqueueAudio(ctx, e)
	case events.ToolCall:
		d.logger.Debug("tool call", slog.String("tool", string(e.Tool)), slog.String("data", string(e.Data)))
		if d.onToolCall != nil {
			d.onToolCall(e)
		}
	case events.ResponseEnded:
		d.end()
	case events.ResponseFailed:
		d.fail(e.Message)
	default:
		d.logger.Warn("ignoring unsupported event", slog.String("kind", string(event.Kind())))
		return
	}

	appliedEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event.kind", string(event.Kind()))))
}

// Abort ends the turn on behalf of the caller, typically after the
// transport failed. The status is shown and input is enabled right away,
// without waiting for queued audio.
func (d *Dispatcher) Abort(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeTurn()
	d.inFlight = false
	d.presenter.SetStatus(status, true)
	d.presenter.SetInputEnabled(true)
}

// Finish is called once the response stream is exhausted. A stream that
// stopped without an end or error event is treated as if it had ended.
func (d *Dispatcher) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.inFlight {
		return
	}

	d.logger.Warn("response stream ended without an end event", slog.String("turn.id", d.openTurn))
	d.end()
}

func (d *Dispatcher) start() {
	if d.openTurn != "" {
		d.logger.Warn("response started while another was open, closing it", slog.String("turn.id", d.openTurn))
		d.presenter.CloseAssistantMessage(d.openTurn)
	}

	d.openTurn = uuid.NewString()
	d.presenter.OpenAssistantMessage(d.openTurn)
	d.presenter.SetStatus(presenter.StatusResponding, false)
}

func (d *Dispatcher) appendText(text string) {
	if d.openTurn == "" {
		d.logger.Warn("dropping text, no assistant message open", slog.Int("text.length", len(text)))
		return
	}
	d.presenter.AppendAssistantText(d.openTurn, text)
}

func (d *Dispatcher) enqueueAudio(ctx context.Context, e events.AudioChunk) {
	item, err := playback.NewItem(d.openTurn, e.Audio, e.Caption, d.minPayloadChars)
	if err != nil {
		d.logger.Warn("dropping audio", slog.String("error", err.Error()), slog.String("caption", e.Caption))
		droppedAudio.Add(ctx, 1)
		return
	}
	d.player.Enqueue(item)
}

func (d *Dispatcher) end() {
	d.closeTurn()
	d.inFlight = false

	if d.player.IdleOrDefer(d.readyAfterDrain) {
		d.ready()
	}
}

func (d *Dispatcher) fail(message string) {
	status := presenter.StatusErrorOccurred
	if message != "" {
		status += ": " + message
	}
	d.logger.Error("response failed", slog.String("message", message), slog.String("turn.id", d.openTurn))

	d.closeTurn()
	d.inFlight = false
	d.presenter.SetStatus(status, true)
	d.presenter.SetInputEnabled(true)
}

func (d *Dispatcher) closeTurn() {
	if d.openTurn == "" {
		return
	}
	d.presenter.CloseAssistantMessage(d.openTurn)
	d.openTurn = ""
}

// readyAfterDrain runs on the drain goroutine. A request submitted after
// the deferral keeps the input disabled.
func (d *Dispatcher) readyAfterDrain() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight || d.openTurn != "" {
		return
	}
	d.ready()
}

func (d *Dispatcher) ready() {
	d.presenter.SetStatus(presenter.StatusReady, true)
	d.presenter.SetInputEnabled(true)
}
