package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func wrapToWidth(text string, width int) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")
	if width <= 0 {
		return text
	}
	wrapper := lipgloss.NewStyle().Width(width)

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			out = append(out, "")
			continue
		}
		for _, wrapped := range strings.Split(wrapper.Render(line), "\n") {
			out = append(out, strings.TrimRight(wrapped, " "))
		}
	}
	return strings.Join(out, "\n")
}

// bulletList renders items with a hanging indent so wrapped lines stay
// aligned under the text rather than the bullet.
func bulletList(bullet string, items []string, width int) string {
	indent := strings.Repeat(" ", lipgloss.Width(bullet))
	rows := make([]string, 0, len(items))
	for _, item := range items {
		inner := width - len(indent)
		if width <= 0 || inner <= 0 {
			rows = append(rows, bullet+item)
			continue
		}
		lines := strings.Split(wrapToWidth(item, inner), "\n")
		for i := range lines {
			if i == 0 {
				lines[i] = bullet + lines[i]
			} else {
				lines[i] = indent + lines[i]
			}
		}
		rows = append(rows, strings.Join(lines, "\n"))
	}
	return strings.Join(rows, "\n")
}
