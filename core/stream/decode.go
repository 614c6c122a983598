package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-chat/core/events"
)

// Wire record types. The legacy names are still emitted by older backends
// and are accepted as aliases.
const (
	TypeStart    = "start"
	TypeText     = "text"
	TypeAudio    = "audio"
	TypeToolCall = "tool_call"
	TypeEnd      = "end"
	TypeError    = "error"

	TypeResponseStart = "response_start"
	TypeTextChunk     = "text_chunk"
	TypeAudioChunk    = "audio_chunk"
	TypeResponseEnd   = "response_end"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Record is the JSON payload of one stream record.
type Record struct {
	Type    string          `json:"type" jsonschema:"required,enum=start,enum=text,enum=audio,enum=tool_call,enum=end,enum=error,enum=response_start,enum=text_chunk,enum=audio_chunk,enum=response_end"`
	Text    string          `json:"text,omitempty" jsonschema:"description=Caption of an audio record or fragment of a text record"`
	Audio   string          `json:"audio,omitempty" jsonschema:"description=Base64 encoded audio/mpeg payload"`
	Message string          `json:"message,omitempty" jsonschema:"description=User facing error text"`
	Tool    json.RawMessage `json:"tool,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decode parses one record payload into its typed event.
func Decode(payload []byte) (events.Event, error) {
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("error unmarshalling record: %w", err)
	}

	return record.Event()
}

func (r Record) Event() (events.Event, error) {
	switch r.Type {
	case TypeStart, TypeResponseStart:
		return events.NewResponseStarted(), nil
	case TypeText, TypeTextChunk:
		return events.NewTextChunk(r.Text), nil
	case TypeAudio, TypeAudioChunk:
		return events.NewAudioChunk(r.Text, r.Audio), nil
	case TypeToolCall:
		return events.NewToolCall(r.Tool, r.Data), nil
	case TypeEnd, TypeResponseEnd:
		return events.NewResponseEnded(), nil
	case TypeError:
		return events.NewResponseFailed(r.Message), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, r.Type)
	}
}
