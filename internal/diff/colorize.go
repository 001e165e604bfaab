package diff

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Colorize styles each line of a unified diff for terminal display.
func Colorize(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = styleLine(line)
	}
	return strings.Join(lines, "\n")
}

func styleLine(line string) string {
	switch {
	case line == "":
		return line
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return headerStyle.Render(line)
	case strings.HasPrefix(line, "diff --git"), strings.HasPrefix(line, "commit "):
		return headerStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return hunkStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return addedStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return removedStyle.Render(line)
	case strings.HasPrefix(line, "index "), strings.HasPrefix(line, "new file mode"), strings.HasPrefix(line, "deleted file mode"):
		return metaStyle.Render(line)
	default:
		return line
	}
}
