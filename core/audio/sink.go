package audio

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrPlaybackNotAllowed is returned by sinks that have not been primed yet,
// the local equivalent of a browser refusing autoplay before a user gesture.
var ErrPlaybackNotAllowed = errors.New("playback not allowed before the output is unlocked")

// Sink plays one clip at a time. Play blocks until the clip finished
// playing, failed, or ctx was cancelled.
type Sink interface {
	Play(ctx context.Context, clip Clip) error
}

// Starter is implemented by sinks that need an explicit start before they
// accept audio.
type Starter interface {
	Start(ctx context.Context) error
}

// TimedSink discards audio but takes as long as the clip would to play.
// It backs headless runs and tests.
type TimedSink struct {
	// Speed scales playback time; 0 means real time.
	Speed float64
	// RequireStart makes Play fail with ErrPlaybackNotAllowed until Start.
	RequireStart bool

	started atomic.Bool
	played  atomic.Int64
}

func NewTimedSink() *TimedSink {
	return &TimedSink{}
}

func (s *TimedSink) Start(context.Context) error {
	s.started.Store(true)
	return nil
}

func (s *TimedSink) Play(ctx context.Context, clip Clip) error {
	if s.RequireStart && !s.started.Load() {
		return ErrPlaybackNotAllowed
	}

	d := clip.Duration()
	if s.Speed > 0 {
		d = time.Duration(float64(d) / s.Speed)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.played.Add(1)
		return nil
	}
}

// Played reports how many clips ran to completion.
func (s *TimedSink) Played() int {
	return int(s.played.Load())
}
