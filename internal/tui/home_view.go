package tui

import "github.com/charmbracelet/lipgloss"

const heading = "Hacker News Top 100 Stories"

// renderHeading draws the page title, with the spinner while a fetch runs.
func renderHeading(spin string, busy bool, width int) string {
	title := headingStyle.Render(heading)
	if !busy {
		return title
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, title, " ", spin)
	if lipgloss.Width(line) > width {
		return title
	}
	return line
}
