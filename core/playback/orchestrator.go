package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/koscakluka/ema-chat/core/audio"
	"github.com/koscakluka/ema-chat/core/presenter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	playedItems, _ = meter.Int64Counter(
		"playback.items.played",
		metric.WithDescription("Audio items that played to completion."),
	)
	skippedItems, _ = meter.Int64Counter(
		"playback.items.skipped",
		metric.WithDescription("Audio items skipped because they could not be decoded or played."),
	)
)

type state int

const (
	stateIdle state = iota
	statePlaying
)

func (s state) String() string {
	if s == statePlaying {
		return "playing"
	}
	return "idle"
}

// Orchestrator plays queued items strictly one at a time, in the order they
// were enqueued, and keeps avatar and subtitle in step with playback.
//
// Only the drain loop ever pops the queue. Enqueue merely starts that loop
// when the orchestrator was idle, so items that arrive while a clip plays
// wait for its completion no matter how the calls interleave.
type Orchestrator struct {
	mu sync.Mutex

	queue []Item
	state state
	// idle is closed whenever the orchestrator is idle.
	idle chan struct{}
	// onDrained runs once after the queue drained, then is forgotten.
	onDrained           func()
	permissionRetryUsed bool
	closed              bool

	sink      audio.Sink
	decoder   Decoder
	presenter presenter.Presenter
	unlocker  *UnlockManager
	gap       time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(sink audio.Sink, p presenter.Presenter, opts ...OrchestratorOption) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	o := &Orchestrator{
		state:     stateIdle,
		idle:      idle,
		sink:      sink,
		decoder:   audio.MP3Decoder{},
		presenter: p,
		gap:       DefaultInterClipGap,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enqueue appends item to the queue and starts draining if nothing plays.
func (o *Orchestrator) Enqueue(item Item) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		o.logger.Warn("dropping audio item, orchestrator closed", slog.String("item.id", item.ID))
		return
	}

	o.queue = append(o.queue, item)
	if o.state == stateIdle {
		o.state = statePlaying
		o.idle = make(chan struct{})
		o.wg.Add(1)
		go o.drain()
	}
}

// IdleOrDefer reports whether nothing is playing or queued. If something
// is, onDrained is kept and run once the queue drained instead, replacing
// any earlier deferred callback.
func (o *Orchestrator) IdleOrDefer(onDrained func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == stateIdle && len(o.queue) == 0 {
		return true
	}

	o.onDrained = onDrained
	return false
}

func (o *Orchestrator) IsIdle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == stateIdle
}

// Pending reports how many items wait behind the one playing.
func (o *Orchestrator) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Clear drops every item that has not started playing yet. The clip that
// is playing runs to completion.
func (o *Orchestrator) Clear() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.queue)
	clear(o.queue)
	o.queue = o.queue[:0]
	return n
}

// AwaitIdle blocks until the queue drained or ctx is done.
func (o *Orchestrator) AwaitIdle(ctx context.Context) error {
	o.mu.Lock()
	idle := o.idle
	o.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the clip that is playing, drops the queue and waits for the
// drain loop to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	clear(o.queue)
	o.queue = nil
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) drain() {
	defer o.wg.Done()

	for {
		item, ok := o.next()
		if !ok {
			return
		}

		o.play(item)

		if o.gap > 0 {
			select {
			case <-o.ctx.Done():
			case <-time.After(o.gap):
			}
		}
	}
}

// next pops the head of the queue, or moves to idle when there is none.
func (o *Orchestrator) next() (Item, bool) {
	o.mu.Lock()

	if len(o.queue) > 0 && o.ctx.Err() == nil {
		item := o.queue[0]
		o.queue[0] = Item{}
		o.queue = o.queue[1:]
		o.mu.Unlock()
		return item, true
	}

	o.state = stateIdle
	idle := o.idle
	onDrained := o.onDrained
	o.onDrained = nil
	// Still under the lock so a drain started by a concurrent Enqueue
	// cannot show the talking avatar before this one turns it off.
	o.presenter.ShowStatic()
	o.mu.Unlock()

	if onDrained != nil {
		onDrained()
	}
	close(idle)
	return Item{}, false
}

func (o *Orchestrator) play(item Item) {
	ctx, span := tracer.Start(o.ctx, "play audio item", trace.WithAttributes(
		attribute.String("playback.item_id", item.ID),
		attribute.String("playback.turn_id", item.TurnID),
		attribute.Int("playback.payload_size", len(item.Payload)),
	))
	defer span.End()

	o.presenter.ShowTalking()
	o.presenter.ShowCaption(item.Caption)

	err := o.playItem(ctx, item)
	o.presenter.HideCaption()

	if err != nil {
		err = fmt.Errorf("skipping audio item: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("audio item skipped",
			slog.String("item.id", item.ID),
			slog.String("error", err.Error()),
		)
		skippedItems.Add(ctx, 1)
		return
	}

	playedItems.Add(ctx, 1)
}

func (o *Orchestrator) playItem(ctx context.Context, item Item) error {
	clip, err := o.decoder.Decode(item.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	err = o.sink.Play(ctx, clip)
	if !errors.Is(err, audio.ErrPlaybackNotAllowed) || !o.takePermissionRetry() {
		return err
	}

	trace.SpanFromContext(ctx).AddEvent("playback refused, unlocking output")
	if unlockErr := o.unlocker.ForceUnlock(ctx); unlockErr != nil {
		return errors.Join(err, unlockErr)
	}
	return o.sink.Play(ctx, clip)
}

// takePermissionRetry hands out the single permission retry of this
// orchestrator.
func (o *Orchestrator) takePermissionRetry() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.unlocker == nil || o.permissionRetryUsed {
		return false
	}
	o.permissionRetryUsed = true
	return true
}
