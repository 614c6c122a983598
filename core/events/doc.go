// Package events defines the typed records of a streamed assistant
// response.
//
// Every wire record decodes into exactly one of the types below; consumers
// use a type switch, so fields that do not belong to a record kind cannot
// be read by mistake.
//
//   - ResponseStarted (response.started): the assistant turn opened.
//   - TextChunk (response.text): append-only text fragment, kept verbatim.
//   - AudioChunk (response.audio): base64 audio/mpeg payload paired with the
//     caption spoken in it. The two are never played independently.
//   - ToolCall (response.tool_call): opaque tool invocation, observability
//     only.
//   - ResponseEnded (response.ended): the assistant turn closed normally.
//   - ResponseFailed (response.failed): the backend gave up on the turn; the
//     message is meant for the user.
package events
