package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/xonecas/typecast/internal/api"
)

// Palette
var (
	colorAccent  = lipgloss.Color("#00D7AF")
	colorPrimary = lipgloss.Color("#8A5CF6")
	colorFaint   = lipgloss.Color("#5B4A8C")

	colorUser      = lipgloss.Color("#7CD992")
	colorAssistant = lipgloss.Color("#E879C6")

	colorError  = lipgloss.Color("#FF4D6D")
	colorNotice = lipgloss.Color("#F5A524")
	colorMuted  = lipgloss.Color("#6C6F93")
	colorPanel  = lipgloss.Color("#16161E")
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	roleStyles = map[api.Role]lipgloss.Style{
		api.RoleUser:      lipgloss.NewStyle().Foreground(colorUser).Bold(true),
		api.RoleAssistant: lipgloss.NewStyle().Foreground(colorAssistant).Bold(true),
	}

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	// Drawn while a reply is in flight.
	inputBusyStyle = inputStyle.BorderForeground(colorFaint)

	promptStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Background(colorPanel).
			Padding(1, 3)

	helpTitleStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	helpSectionStyle = lipgloss.NewStyle().Foreground(colorAccent).Underline(true)
	helpKeyStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	helpDescStyle    = lipgloss.NewStyle().Foreground(colorMuted)

	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(colorNotice)
	dimmedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	cursorStyle = lipgloss.NewStyle().Foreground(colorAssistant)
)

func roleStyle(role api.Role) lipgloss.Style {
	if s, ok := roleStyles[role]; ok {
		return s
	}
	return dimmedStyle
}

// roleLabel is the heading shown above a message.
func roleLabel(role api.Role) string {
	switch role {
	case api.RoleUser:
		return "You"
	case api.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

// renderHeader draws "── TITLE ──────" across width, followed by suffix.
func renderHeader(title, suffix string, width int) string {
	label := "── " + title + " "
	fill := max(2, width-lipgloss.Width(label)-lipgloss.Width(suffix))
	return headerStyle.Render(label+strings.Repeat("─", fill)) + suffix
}

// truncate shortens s to at most width cells, ending in an ellipsis when cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
