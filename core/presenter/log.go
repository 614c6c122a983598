package presenter

import "log/slog"

// Log presents the conversation as structured log lines. It backs the plain
// terminal mode.
type Log struct {
	logger *slog.Logger
}

var _ Presenter = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) ShowTalking() { l.logger.Info("avatar", slog.String("state", "talking")) }
func (l *Log) ShowStatic()  { l.logger.Info("avatar", slog.String("state", "static")) }

func (l *Log) ShowCaption(text string) { l.logger.Info("subtitle", slog.String("text", text)) }
func (l *Log) HideCaption()            { l.logger.Debug("subtitle hidden") }

func (l *Log) SetStatus(text string, ready bool) {
	l.logger.Info("status", slog.String("text", text), slog.Bool("ready", ready))
}

func (l *Log) OpenAssistantMessage(turnID string) {
	l.logger.Debug("assistant message opened", slog.String("turn.id", turnID))
}

func (l *Log) AppendAssistantText(turnID, text string) {
	l.logger.Info("assistant", slog.String("turn.id", turnID), slog.String("text", text))
}

func (l *Log) CloseAssistantMessage(turnID string) {
	l.logger.Debug("assistant message closed", slog.String("turn.id", turnID))
}

func (l *Log) SetInputEnabled(enabled bool) {
	l.logger.Debug("input", slog.Bool("enabled", enabled))
}
