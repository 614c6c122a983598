package playback

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-chat/core/audio"
	"github.com/koscakluka/ema-chat/core/presenter/presentertest"
)

func awaitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.AwaitIdle(ctx); err != nil {
		t.Fatalf("orchestrator did not become idle: %v", err)
	}
}

func TestOrchestratorPlaysBackToBackItemsSequentially(t *testing.T) {
	sink := newGatedSink()
	recorder := presentertest.New()
	o := NewOrchestrator(sink, recorder, WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	o.Enqueue(testItem("first"))
	o.Enqueue(testItem("second"))

	if got := <-sink.started; got != "first" {
		t.Fatalf("expected first item to play first, got %q", got)
	}

	select {
	case got := <-sink.started:
		t.Fatalf("expected second item to wait for the first, but %q started", got)
	case <-time.After(50 * time.Millisecond):
	}

	sink.release <- struct{}{}
	if got := <-sink.started; got != "second" {
		t.Fatalf("expected second item after first completed, got %q", got)
	}
	sink.release <- struct{}{}

	awaitIdle(t, o)
	if got := sink.MaxActive(); got != 1 {
		t.Fatalf("expected at most one concurrent playback, got %d", got)
	}
}

func TestOrchestratorKeepsFIFOOrderWhileEnqueueingDuringPlayback(t *testing.T) {
	sink := &recordingSink{}
	o := NewOrchestrator(sink, presentertest.New(), WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	var expected []string
	for i := range 50 {
		name := fmt.Sprintf("item-%02d", i)
		expected = append(expected, name)
		o.Enqueue(testItem(name))
	}

	awaitIdle(t, o)
	if got := sink.Played(); !slices.Equal(got, expected) {
		t.Fatalf("expected items in enqueue order %v, got %v", expected, got)
	}
}

func TestOrchestratorPresentationFollowsPlayback(t *testing.T) {
	sink := &recordingSink{}
	recorder := presentertest.New()
	o := NewOrchestrator(sink, recorder, WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	o.Enqueue(testItem("only"))
	awaitIdle(t, o)

	expected := []string{"ShowTalking", "ShowCaption(caption only)", "HideCaption", "ShowStatic"}
	if got := recorder.Calls(); !slices.Equal(got, expected) {
		t.Fatalf("expected presenter calls %v, got %v", expected, got)
	}
}

func TestOrchestratorSkipsUndecodableItems(t *testing.T) {
	sink := &recordingSink{}
	recorder := presentertest.New()
	o := NewOrchestrator(sink, recorder, WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	o.Enqueue(testItem("bad-1"))
	o.Enqueue(testItem("good"))
	awaitIdle(t, o)

	if got := sink.Played(); !slices.Equal(got, []string{"good"}) {
		t.Fatalf("expected only the good item to play, got %v", got)
	}
	if got := recorder.Count("HideCaption"); got != 2 {
		t.Fatalf("expected subtitle hidden after both items, got %d", got)
	}
	if got := recorder.Count("ShowStatic"); got != 1 {
		t.Fatalf("expected avatar to turn static once, got %d", got)
	}
}

func TestOrchestratorRetriesRefusedPlaybackOnceAfterUnlock(t *testing.T) {
	sink := &audio.TimedSink{RequireStart: true, Speed: 1000}
	unlocker := NewUnlockManager(sink)
	o := NewOrchestrator(sink, presentertest.New(),
		WithDecoder(fakeDecoder{}),
		WithInterClipGap(0),
		WithUnlockManager(unlocker),
	)
	defer o.Close()

	o.Enqueue(testItem("needs-unlock"))
	awaitIdle(t, o)

	if !unlocker.Unlocked() {
		t.Fatalf("expected forced unlock to succeed")
	}
	// One silent priming clip and the retried item.
	if got := sink.Played(); got != 2 {
		t.Fatalf("expected silence and item to play, got %d clips", got)
	}
}

func TestOrchestratorUsesPermissionRetryOnlyOnce(t *testing.T) {
	sink := &recordingSink{err: audio.ErrPlaybackNotAllowed}
	unlocker := NewUnlockManager(sink)
	o := NewOrchestrator(sink, presentertest.New(),
		WithDecoder(fakeDecoder{}),
		WithInterClipGap(0),
		WithUnlockManager(unlocker),
	)
	defer o.Close()

	o.Enqueue(testItem("first"))
	o.Enqueue(testItem("second"))
	awaitIdle(t, o)

	// first item, the priming silence, then the second item without retry.
	if got := len(sink.Played()); got != 3 {
		t.Fatalf("expected three refused plays, got %d (%v)", got, sink.Played())
	}
}

func TestOrchestratorWithoutUnlockManagerSkipsRefusedItems(t *testing.T) {
	sink := &recordingSink{err: audio.ErrPlaybackNotAllowed}
	o := NewOrchestrator(sink, presentertest.New(), WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	o.Enqueue(testItem("first"))
	o.Enqueue(testItem("second"))
	awaitIdle(t, o)

	if got := len(sink.Played()); got != 2 {
		t.Fatalf("expected each item tried once, got %d", got)
	}
}

func TestOrchestratorIdleOrDefer(t *testing.T) {
	sink := newGatedSink()
	o := NewOrchestrator(sink, presentertest.New(), WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	if !o.IdleOrDefer(func() { t.Fatalf("callback must not be deferred when idle") }) {
		t.Fatalf("expected a fresh orchestrator to be idle")
	}

	o.Enqueue(testItem("first"))
	<-sink.started

	var drained atomic.Int32
	if o.IdleOrDefer(func() { drained.Add(1) }) {
		t.Fatalf("expected orchestrator to be busy while playing")
	}
	if drained.Load() != 0 {
		t.Fatalf("expected deferred callback to wait for drain")
	}

	sink.release <- struct{}{}
	awaitIdle(t, o)

	if got := drained.Load(); got != 1 {
		t.Fatalf("expected deferred callback to run once, ran %d times", got)
	}

	o.Enqueue(testItem("second"))
	<-sink.started
	sink.release <- struct{}{}
	awaitIdle(t, o)

	if got := drained.Load(); got != 1 {
		t.Fatalf("expected deferred callback to be forgotten after running, ran %d times", got)
	}
}

func TestOrchestratorClearDropsOnlyPendingItems(t *testing.T) {
	sink := newGatedSink()
	o := NewOrchestrator(sink, presentertest.New(), WithDecoder(fakeDecoder{}), WithInterClipGap(0))
	defer o.Close()

	o.Enqueue(testItem("a"))
	o.Enqueue(testItem("b"))
	o.Enqueue(testItem("c"))
	if got := <-sink.started; got != "a" {
		t.Fatalf("expected a to start, got %q", got)
	}

	if got := o.Clear(); got != 2 {
		t.Fatalf("expected two pending items cleared, got %d", got)
	}
	sink.release <- struct{}{}
	awaitIdle(t, o)

	if got := o.Pending(); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}
}

func TestOrchestratorCloseStopsPlayback(t *testing.T) {
	sink := newGatedSink()
	recorder := presentertest.New()
	o := NewOrchestrator(sink, recorder, WithDecoder(fakeDecoder{}), WithInterClipGap(0))

	o.Enqueue(testItem("a"))
	o.Enqueue(testItem("b"))
	<-sink.started

	o.Close()
	if !o.IsIdle() {
		t.Fatalf("expected orchestrator to be idle after close")
	}

	o.Enqueue(testItem("late"))
	if got := o.Pending(); got != 0 {
		t.Fatalf("expected enqueue after close to be dropped, got %d pending", got)
	}
	if got := recorder.Count("ShowStatic"); got != 1 {
		t.Fatalf("expected avatar to go static on close, got %d", got)
	}
}

func TestOrchestratorWaitsGapBetweenClips(t *testing.T) {
	sink := &recordingSink{}
	gap := 30 * time.Millisecond
	o := NewOrchestrator(sink, presentertest.New(), WithDecoder(fakeDecoder{}), WithInterClipGap(gap))
	defer o.Close()

	start := time.Now()
	o.Enqueue(testItem("a"))
	o.Enqueue(testItem("b"))
	awaitIdle(t, o)

	if elapsed := time.Since(start); elapsed < 2*gap {
		t.Fatalf("expected at least %s between and after clips, took %s", 2*gap, elapsed)
	}
}
