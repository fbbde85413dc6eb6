package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// renderCards draws as many cards as fit in height, keeping cursor visible.
// total is the unfiltered story count.
func renderCards(cards []card, total int, cursor int, height int, width int) string {
	if len(cards) == 0 {
		if total == 0 {
			return lipglossCenter("No stories", width, height)
		}
		return lipglossCenter("No stories match your search", width, height)
	}
	if cursor < 0 || cursor >= len(cards) {
		cursor = 0
	}

	rendered := make([]string, len(cards))
	for i, c := range cards {
		if c.skeleton {
			rendered[i] = renderSkeletonCard(width)
		} else {
			rendered[i] = renderStoryCard(c.story, i == cursor, width)
		}
	}

	// Grow the window backwards from the cursor, then fill forwards.
	start, end := cursor, cursor+1
	used := lipgloss.Height(rendered[cursor])
	for start > 0 && used+lipgloss.Height(rendered[start-1]) <= height {
		start--
		used += lipgloss.Height(rendered[start])
	}
	for end < len(rendered) && used+lipgloss.Height(rendered[end]) <= height {
		used += lipgloss.Height(rendered[end])
		end++
	}

	return lipgloss.JoinVertical(lipgloss.Left, rendered[start:end]...)
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
