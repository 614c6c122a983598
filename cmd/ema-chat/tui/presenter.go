package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-chat/core/presenter"
)

type avatarMsg struct{ talking bool }

type captionMsg struct {
	text    string
	visible bool
}

type statusMsg struct {
	text  string
	ready bool
}

type openMessageMsg struct{ turnID string }

type appendTextMsg struct{ turnID, text string }

type closeMessageMsg struct{ turnID string }

type inputEnabledMsg struct{ enabled bool }

// Presenter forwards presentation changes to a running program. It is
// safe to call from any goroutine once attached; changes made before that
// are dropped.
type Presenter struct {
	send func(tea.Msg)
}

var _ presenter.Presenter = (*Presenter)(nil)

func NewPresenter() *Presenter {
	return &Presenter{send: func(tea.Msg) {}}
}

// Attach must be called before program runs.
func (p *Presenter) Attach(program *tea.Program) {
	p.send = program.Send
}

func (p *Presenter) ShowTalking() {
	p.send(avatarMsg{talking: true})
}

func (p *Presenter) ShowStatic() {
	p.send(avatarMsg{talking: false})
}

func (p *Presenter) ShowCaption(text string) {
	p.send(captionMsg{text: text, visible: true})
}

func (p *Presenter) HideCaption() {
	p.send(captionMsg{})
}

func (p *Presenter) SetStatus(text string, ready bool) {
	p.send(statusMsg{text: text, ready: ready})
}

func (p *Presenter) OpenAssistantMessage(turnID string) {
	p.send(openMessageMsg{turnID: turnID})
}

func (p *Presenter) AppendAssistantText(turnID, text string) {
	p.send(appendTextMsg{turnID: turnID, text: text})
}

func (p *Presenter) CloseAssistantMessage(turnID string) {
	p.send(closeMessageMsg{turnID: turnID})
}

func (p *Presenter) SetInputEnabled(enabled bool) {
	p.send(inputEnabledMsg{enabled: enabled})
}
