package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/typecast/internal/scroll"
)

type helpSection struct {
	title    string
	bindings []key.Binding
}

// mouseWheel only documents the wheel; mouse events never match key bindings.
var mouseWheel = key.NewBinding(key.WithHelp("Wheel", "scroll"))

func helpSections(scrollKeys scroll.KeyMap) []helpSection {
	return []helpSection{
		{"Chat", []key.Binding{keys.Enter, historyKeys.Up, historyKeys.Down, keys.CycleModel, keys.Clear}},
		{"Scrolling", []key.Binding{
			scrollKeys.PageUp, scrollKeys.PageDown,
			scrollKeys.LineUp, scrollKeys.LineDown,
			mouseWheel, scrollKeys.Bottom,
		}},
		{"General", []key.Binding{keys.Help, keys.Escape, keys.Quit}},
	}
}

// RenderHelp renders the keyboard shortcut overlay centered in width x height.
func RenderHelp(width, height int, scrollKeys scroll.KeyMap) string {
	sections := helpSections(scrollKeys)

	keyWidth := 0
	for _, s := range sections {
		for _, b := range s.bindings {
			keyWidth = max(keyWidth, lipgloss.Width(b.Help().Key))
		}
	}

	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("Keyboard Shortcuts"))
	for _, s := range sections {
		b.WriteString("\n\n")
		b.WriteString(helpSectionStyle.Render(s.title))
		for _, binding := range s.bindings {
			h := binding.Help()
			if h.Key == "" {
				continue
			}
			b.WriteString("\n")
			b.WriteString(helpKeyStyle.Render(h.Key + strings.Repeat(" ", keyWidth-lipgloss.Width(h.Key))))
			b.WriteString("  ")
			b.WriteString(helpDescStyle.Render(h.Desc))
		}
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpBoxStyle.Render(b.String()))
}
