package tui

import "github.com/charmbracelet/lipgloss"

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	captionStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	readyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	busyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	avatarStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	avatarStatic  = "( •‿• )"
	avatarTalking = "( •o• )"
)
