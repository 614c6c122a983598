// Package presentertest provides a presenter that records every call.
package presentertest

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/koscakluka/ema-chat/core/presenter"
)

// Recorder stores presenter calls as short strings such as
// "ShowCaption(Hello)" or "SetStatus(Ready to chat, true)".
type Recorder struct {
	mu    sync.Mutex
	calls []string

	inputEnabled bool
	status       string
	ready        bool
	openTurns    map[string]bool
	text         map[string]string
}

var _ presenter.Presenter = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{
		inputEnabled: true,
		openTurns:    map[string]bool{},
		text:         map[string]string{},
	}
}

func (r *Recorder) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *Recorder) ShowTalking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ShowTalking")
}

func (r *Recorder) ShowStatic() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ShowStatic")
}

func (r *Recorder) ShowCaption(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ShowCaption(%s)", text)
}

func (r *Recorder) HideCaption() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("HideCaption")
}

func (r *Recorder) SetStatus(text string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
	r.ready = ready
	r.record("SetStatus(%s, %t)", text, ready)
}

func (r *Recorder) OpenAssistantMessage(turnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openTurns[turnID] = true
	r.record("OpenAssistantMessage")
}

func (r *Recorder) AppendAssistantText(turnID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text[turnID] += text
	r.record("AppendAssistantText(%s)", text)
}

func (r *Recorder) CloseAssistantMessage(turnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.openTurns, turnID)
	r.record("CloseAssistantMessage")
}

func (r *Recorder) SetInputEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputEnabled = enabled
	r.record("SetInputEnabled(%t)", enabled)
}

// Calls returns a copy of every call so far.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count reports how many calls start with prefix.
func (r *Recorder) Count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func (r *Recorder) InputEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputEnabled
}

func (r *Recorder) Status() (text string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.ready
}

// OpenMessages reports how many assistant messages are still open.
func (r *Recorder) OpenMessages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.openTurns)
}

// Text returns everything appended to the message of turnID.
func (r *Recorder) Text(turnID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text[turnID]
}

// Transcript joins the text of all messages in no particular order; tests
// with a single turn use it to avoid knowing the turn ID.
func (r *Recorder) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var parts []string
	for _, text := range r.text {
		parts = append(parts, text)
	}
	slices.Sort(parts)
	return strings.Join(parts, "")
}
