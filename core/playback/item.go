package playback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultMinPayloadChars is the shortest encoded payload worth decoding.
// Anything shorter cannot hold a single mp3 frame.
const DefaultMinPayloadChars = 100

var ErrNoAudioData = errors.New("no usable audio data")

// Item is one caption and the audio speaking it. Items are immutable once
// created.
type Item struct {
	ID     string
	TurnID string
	// Payload is the base64 encoded audio, decoded only right before it
	// plays.
	Payload string
	Caption string
}

// NewItem pairs payload with caption, refusing payloads too short to be
// audio.
func NewItem(turnID, payload, caption string, minPayloadChars int) (Item, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Item{}, ErrNoAudioData
	}
	if len(payload) < minPayloadChars {
		return Item{}, fmt.Errorf("%w: payload has %d characters, need at least %d", ErrNoAudioData, len(payload), minPayloadChars)
	}

	return Item{
		ID:      uuid.NewString(),
		TurnID:  turnID,
		Payload: payload,
		Caption: caption,
	}, nil
}
