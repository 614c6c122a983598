package events

import "encoding/json"

const (
	// KindResponseStarted identifies the opening of an assistant turn.
	KindResponseStarted Kind = "response.started"
	// KindTextChunk identifies a streamed text fragment.
	KindTextChunk Kind = "response.text"
	// KindAudioChunk identifies a captioned speech clip.
	KindAudioChunk Kind = "response.audio"
	// KindToolCall identifies a tool invocation forwarded for debugging.
	KindToolCall Kind = "response.tool_call"
	// KindResponseEnded identifies the normal end of an assistant turn.
	KindResponseEnded Kind = "response.ended"
	// KindResponseFailed identifies a turn aborted by the backend.
	KindResponseFailed Kind = "response.failed"
)

// ResponseStarted marks the start of an assistant turn.
type ResponseStarted struct{ Base }

// NewResponseStarted creates a response started event.
func NewResponseStarted() ResponseStarted {
	return ResponseStarted{Base: NewBase(KindResponseStarted)}
}

// TextChunk carries a fragment of the assistant message.
type TextChunk struct {
	Base
	Text string
}

// NewTextChunk creates a text chunk event.
func NewTextChunk(text string) TextChunk {
	return TextChunk{Base: NewBase(KindTextChunk), Text: text}
}

// AudioChunk carries one spoken sentence and its caption.
type AudioChunk struct {
	Base
	// Caption is empty when the backend sent no text with the clip.
	Caption string
	// Audio is the base64 encoded audio/mpeg payload, still encoded.
	Audio string
}

// NewAudioChunk creates an audio chunk event.
func NewAudioChunk(caption, audio string) AudioChunk {
	return AudioChunk{Base: NewBase(KindAudioChunk), Caption: caption, Audio: audio}
}

// ToolCall carries a tool invocation reported by the backend.
type ToolCall struct {
	Base
	// Tool and Data are passed through as sent, the client never
	// interprets them.
	Tool json.RawMessage
	Data json.RawMessage
}

// NewToolCall creates a tool call event.
func NewToolCall(tool, data json.RawMessage) ToolCall {
	return ToolCall{Base: NewBase(KindToolCall), Tool: tool, Data: data}
}

// ResponseEnded marks the normal end of an assistant turn.
type ResponseEnded struct{ Base }

// NewResponseEnded creates a response ended event.
func NewResponseEnded() ResponseEnded {
	return ResponseEnded{Base: NewBase(KindResponseEnded)}
}

// ResponseFailed carries a user facing error for the current turn.
type ResponseFailed struct {
	Base
	Message string
}

// NewResponseFailed creates a response failed event.
func NewResponseFailed(message string) ResponseFailed {
	return ResponseFailed{Base: NewBase(KindResponseFailed), Message: message}
}
