package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(shown, total int, loading, searching, refreshing bool, width int) string {
	left := " loading stories"
	if !loading {
		left = fmt.Sprintf(" %d stories", total)
		if shown != total {
			left = fmt.Sprintf(" %d of %d stories", shown, total)
		}
	}
	if refreshing && !loading {
		left += " (refreshing...)"
	}

	right := " / search  o open  ? help  q quit "
	if searching {
		right = " esc clear  enter done "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "

	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return statusBarStyle.Width(width).Render(fmt.Sprintf("%*s", gap, "") + right)
}
