package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-chat/core/presenter"
)

type fakeSession struct {
	mu        sync.Mutex
	submitted []string
	unlocks   int
	err       error
}

func (s *fakeSession) Submit(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, message)
	return s.err
}

func (s *fakeSession) EnsureUnlocked(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocks++
	return nil
}

// run executes cmd and every command batched into it, feeding the
// resulting messages back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}

	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
	case submitDoneMsg, unlockDoneMsg:
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestFirstKeyPressUnlocksPlayback(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(context.Background(), s)

	m, cmd := typeText(t, m, "h")
	m = run(t, m, cmd)
	m, cmd = typeText(t, m, "i")
	m = run(t, m, cmd)

	if s.unlocks != 1 {
		t.Fatalf("expected a single unlock, got %d", s.unlocks)
	}
	if got := m.input.Value(); got != "hi" {
		t.Fatalf("expected input %q, got %q", "hi", got)
	}
}

func TestEnterSubmitsTrimmedMessage(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(context.Background(), s)

	m, _ = typeText(t, m, "  hello there ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	if len(s.submitted) != 1 || s.submitted[0] != "hello there" {
		t.Fatalf("expected trimmed message submitted, got %v", s.submitted)
	}
	if got := m.input.Value(); got != "" {
		t.Fatalf("expected input cleared, got %q", got)
	}
	if !strings.Contains(m.View(), "hello there") {
		t.Fatalf("expected user message in transcript")
	}
}

func TestSecondEnterBeforeSessionRespondsIsIgnored(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(context.Background(), s)

	m, _ = typeText(t, m, "first")
	m, firstCmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = typeText(t, m, "second")
	m, secondCmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, firstCmd)
	m = run(t, m, secondCmd)

	if len(s.submitted) != 1 || s.submitted[0] != "first" {
		t.Fatalf("expected only the first message submitted, got %v", s.submitted)
	}

	m, _ = update(t, m, inputEnabledMsg{enabled: true})
	m, _ = typeText(t, m, "third")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_ = run(t, m, cmd)

	if len(s.submitted) != 2 || s.submitted[1] != "third" {
		t.Fatalf("expected submit accepted again once input is enabled, got %v", s.submitted)
	}
}

func TestEnterIgnoredWhileInputDisabled(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(context.Background(), s)

	m, _ = typeText(t, m, "hello")
	m, _ = update(t, m, inputEnabledMsg{enabled: false})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	if len(s.submitted) != 0 {
		t.Fatalf("expected nothing submitted while disabled, got %v", s.submitted)
	}
	if !strings.Contains(m.View(), "waiting for the response") {
		t.Fatalf("expected disabled input hint in view")
	}
}

func TestBlankMessageIsNotSubmitted(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(context.Background(), s)

	m, _ = typeText(t, m, "   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_ = run(t, m, cmd)

	if len(s.submitted) != 0 {
		t.Fatalf("expected blank input ignored, got %v", s.submitted)
	}
}

func TestPresenterMessagesRenderAssistantTurn(t *testing.T) {
	m := NewModel(context.Background(), &fakeSession{})

	m, _ = update(t, m, openMessageMsg{turnID: "t1"})
	m, _ = update(t, m, appendTextMsg{turnID: "t1", text: "Hello"})
	m, _ = update(t, m, appendTextMsg{turnID: "t1", text: " world"})
	m, _ = update(t, m, appendTextMsg{turnID: "missing", text: "dropped"})
	m, _ = update(t, m, closeMessageMsg{turnID: "t1"})

	view := m.View()
	if !strings.Contains(view, "Hello world") {
		t.Fatalf("expected assistant text in view, got:\n%s", view)
	}
	if strings.Contains(view, "dropped") {
		t.Fatalf("expected text for unknown turn to be ignored")
	}
}

func TestAvatarAndCaptionFollowPlayback(t *testing.T) {
	m := NewModel(context.Background(), &fakeSession{})

	m, _ = update(t, m, avatarMsg{talking: true})
	m, _ = update(t, m, captionMsg{text: "Nice to meet you.", visible: true})
	view := m.View()
	if !strings.Contains(view, avatarTalking) || !strings.Contains(view, "Nice to meet you.") {
		t.Fatalf("expected talking avatar and caption, got:\n%s", view)
	}

	m, _ = update(t, m, captionMsg{})
	m, _ = update(t, m, avatarMsg{talking: false})
	view = m.View()
	if !strings.Contains(view, avatarStatic) || strings.Contains(view, "Nice to meet you.") {
		t.Fatalf("expected static avatar without caption, got:\n%s", view)
	}
}

func TestStatusShowsBusyAndReady(t *testing.T) {
	m := NewModel(context.Background(), &fakeSession{})

	m, cmd := update(t, m, statusMsg{text: presenter.StatusThinking, ready: false})
	if cmd == nil {
		t.Fatalf("expected spinner to start when busy")
	}
	if !strings.Contains(m.View(), presenter.StatusThinking) {
		t.Fatalf("expected thinking status in view")
	}

	m, _ = update(t, m, statusMsg{text: presenter.StatusReady, ready: true})
	if !strings.Contains(m.View(), presenter.StatusReady) {
		t.Fatalf("expected ready status in view")
	}
}

func TestSubmitErrorIsShown(t *testing.T) {
	s := &fakeSession{err: errors.New("dial tcp: connection refused")}
	m := NewModel(context.Background(), s)

	m, _ = typeText(t, m, "hi")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	if !strings.Contains(m.View(), "connection refused") {
		t.Fatalf("expected submit error in view, got:\n%s", m.View())
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := NewModel(context.Background(), &fakeSession{})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
