package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-chat/core/audio"
)

// Sink plays clips on the default miniaudio output device.
//
// The device is initialised eagerly but only started by Start, so Play
// reports audio.ErrPlaybackNotAllowed until the unlock manager primed it.
type Sink struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
}

// ErrPlaybackInterrupted is returned when the clip was dropped from the
// device buffer before it finished, e.g. because another playback was
// cancelled or the device was reopened.
var ErrPlaybackInterrupted = errors.New("playback interrupted")

var _ audio.Sink = (*Sink)(nil)
var _ audio.Starter = (*Sink)(nil)

func NewSink(encoding audio.EncodingInfo, logger *slog.Logger) (*Sink, error) {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}
	if logger == nil {
		logger = slog.Default()
	}

	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", slog.String("message", message)) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	sink := Sink{audioContext: audioCtx}
	if err := sink.playbackClient.Init(audioCtx, encoding); err != nil {
		sink.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	return &sink, nil
}

func (s *Sink) Start(_ context.Context) error {
	return s.playbackClient.Start()
}

func (s *Sink) Play(ctx context.Context, clip audio.Clip) error {
	if !s.playbackClient.IsStarted() {
		return audio.ErrPlaybackNotAllowed
	}
	if clip.IsEmpty() {
		return nil
	}

	if err := s.playbackClient.Reconfigure(clip.Encoding); err != nil {
		return err
	}

	done := make(chan bool, 1)
	if err := s.playbackClient.SendAudio(clip.PCM); err != nil {
		return err
	}
	s.playbackClient.Mark(func(played bool) { done <- played })

	select {
	case played := <-done:
		if !played {
			return ErrPlaybackInterrupted
		}
		return nil
	case <-ctx.Done():
		s.playbackClient.ClearBuffer()
		return ctx.Err()
	}
}

func (s *Sink) Close() {
	_ = s.playbackClient.Uninit()
	if s.audioContext != nil {
		_ = s.audioContext.Uninit()
		s.audioContext.Free()
		s.audioContext = nil
	}
}
