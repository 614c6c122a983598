package playback

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/koscakluka/ema-chat/core/audio"
)

// fakeDecoder hands the payload through as PCM and fails on payloads that
// start with "bad".
type fakeDecoder struct{}

func (fakeDecoder) Decode(payload string) (audio.Clip, error) {
	if strings.HasPrefix(payload, "bad") {
		return audio.Clip{}, errors.New("corrupt mp3")
	}
	return audio.Clip{PCM: []byte(payload)}, nil
}

func testItem(name string) Item {
	return Item{ID: name, TurnID: "turn", Payload: name, Caption: "caption " + name}
}

// gatedSink blocks every Play until the test releases it.
type gatedSink struct {
	started chan string
	release chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
}

func newGatedSink() *gatedSink {
	return &gatedSink{
		started: make(chan string),
		release: make(chan struct{}),
	}
}

func (s *gatedSink) Play(ctx context.Context, clip audio.Clip) error {
	s.mu.Lock()
	s.active++
	s.maxActive = max(s.maxActive, s.active)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	select {
	case s.started <- string(clip.PCM):
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *gatedSink) MaxActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

// recordingSink plays instantly and remembers what it played.
type recordingSink struct {
	mu     sync.Mutex
	played []string
	starts int
	err    error
}

func (s *recordingSink) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return nil
}

func (s *recordingSink) Play(_ context.Context, clip audio.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.played = append(s.played, "refused")
		return s.err
	}
	s.played = append(s.played, string(clip.PCM))
	return nil
}

func (s *recordingSink) Played() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...)
}

func (s *recordingSink) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}
