package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

var ErrEmptyPayload = errors.New("audio payload is empty")

// MP3Decoder turns base64 encoded audio/mpeg payloads into PCM clips.
//
// go-mp3 always produces 16 bit little endian stereo at the source sample
// rate.
type MP3Decoder struct{}

func (MP3Decoder) Decode(payload string) (Clip, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Clip{}, ErrEmptyPayload
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	if len(raw) == 0 {
		return Clip{}, ErrEmptyPayload
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return Clip{}, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}
	if len(pcm) == 0 {
		return Clip{}, ErrEmptyPayload
	}

	return Clip{
		PCM: pcm,
		Encoding: EncodingInfo{
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			Format:     EncodingLinear16,
		},
	}, nil
}
