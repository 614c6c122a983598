package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-chat/core/audio"
)

// Sink plays clips through a blocking PortAudio output stream.
//
// The stream is opened by Start; until then Play reports
// audio.ErrPlaybackNotAllowed.
type Sink struct {
	mu sync.Mutex

	bufferSize int
	stream     *portaudio.Stream
	encoding   audio.EncodingInfo
	out        []int16
}

var _ audio.Sink = (*Sink)(nil)
var _ audio.Starter = (*Sink)(nil)

func NewSink(encoding audio.EncodingInfo, bufferSize int) (*Sink, error) {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &Sink{bufferSize: bufferSize, encoding: encoding}, nil
}

func (s *Sink) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return nil
	}
	return s.open(s.encoding)
}

// open expects s.mu to be held.
func (s *Sink) open(encoding audio.EncodingInfo) error {
	if encoding.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported playback format %q", encoding.Format.Name())
	}

	out := make([]int16, s.bufferSize*encoding.Channels)
	stream, err := portaudio.OpenDefaultStream(0, encoding.Channels, float64(encoding.SampleRate), s.bufferSize, out)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	s.stream = stream
	s.encoding = encoding
	s.out = out
	return nil
}

func (s *Sink) Play(ctx context.Context, clip audio.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return audio.ErrPlaybackNotAllowed
	}

	if clip.Encoding != s.encoding {
		s.closeStream()
		if err := s.open(clip.Encoding); err != nil {
			return err
		}
	}

	chunkSize := len(s.out) * 2
	pcm := clip.PCM
	for offset := 0; offset < len(pcm); offset += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(offset+chunkSize, len(pcm))
		chunk := pcm[offset:end]
		if len(chunk) < chunkSize {
			// Pad the tail with silence so the last buffer is written whole.
			chunk = append(bytes.Clone(chunk), make([]byte, chunkSize-len(chunk))...)
		}

		if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, s.out); err != nil {
			return fmt.Errorf("failed to convert pcm: %w", err)
		}
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to PortAudio stream: %w", err)
		}
	}

	return nil
}

// closeStream expects s.mu to be held.
func (s *Sink) closeStream() {
	if s.stream == nil {
		return
	}
	_ = s.stream.Stop()
	_ = s.stream.Close()
	s.stream = nil
}

func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeStream()
	_ = portaudio.Terminate()
}
