// Package presenter defines the effects the chat core has on whatever shows
// the conversation to the user.
package presenter

// Status texts shown by the core.
const (
	StatusReady           = "Ready to chat"
	StatusThinking        = "Thinking..."
	StatusResponding      = "Responding..."
	StatusConnectionError = "Connection error"
	StatusErrorOccurred   = "Error occurred"
)

// Presenter receives the presentation side effects of a chat session.
//
// Calls arrive from the session goroutine and from the playback goroutine,
// implementations must tolerate both. None of the methods may call back
// into the session.
type Presenter interface {
	ShowTalking()
	ShowStatic()
	ShowCaption(text string)
	HideCaption()
	// SetStatus shows text; ready selects the idle styling over the busy
	// one.
	SetStatus(text string, ready bool)
	OpenAssistantMessage(turnID string)
	AppendAssistantText(turnID, text string)
	CloseAssistantMessage(turnID string)
	SetInputEnabled(enabled bool)
}
