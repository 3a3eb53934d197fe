package presentation

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	green = lipgloss.Color("76")
	red   = lipgloss.Color("204")
	dim   = lipgloss.Color("243")
	faint = lipgloss.Color("238")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(dim)
	errorStyle = lipgloss.NewStyle().Foreground(red)
	okStyle    = lipgloss.NewStyle().Foreground(green)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(faint).
			Padding(0, 1)
	errorPanelStyle = panelStyle.BorderForeground(red)
)

// RenderTerminal draws the visible panels of v for a terminal. Panels whose
// data is empty are omitted, matching the browser page.
func RenderTerminal(v View) string {
	var sections []string

	switch {
	case v.Loading:
		sections = append(sections, mutedStyle.Render("● "+RunningLabel))
	case v.ShowError:
		sections = append(sections, panel(errorPanelStyle, errorStyle.Render("Error:"), v.Error))
	case v.Status == "succeeded" && !v.ShowStdout && !v.ShowResult:
		sections = append(sections, okStyle.Render("✓")+" "+mutedStyle.Render("finished with no output"))
	}

	if v.ShowStdout {
		sections = append(sections, panel(panelStyle, titleStyle.Render("Standard Output"), v.Stdout))
	}
	if v.ShowResult {
		sections = append(sections, panel(panelStyle, titleStyle.Render("Result"), v.Result))
	}

	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n") + "\n"
}

func panel(style lipgloss.Style, title, body string) string {
	return style.Render(title + "\n" + strings.TrimRight(body, "\n"))
}
