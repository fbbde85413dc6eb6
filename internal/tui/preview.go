package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/hntop/internal/story"
)

func cardInnerWidth(width int) int {
	w := width - 4 // border + padding
	if w < 10 {
		w = 10
	}
	return w
}

func renderStoryCard(s story.Story, selected bool, width int) string {
	inner := cardInnerWidth(width)

	title := cardTitleStyle.Render(wrapText(s.Title, inner))
	score := cardScoreStyle.Render(fmt.Sprintf("Upvotes: %d", s.Score))

	var link string
	if s.HasURL() {
		link = cardLinkStyle.Render("Read more ↗") + " " + cardURLStyle.Render(truncateStr(s.URL, inner-12))
	} else {
		link = cardNoLinkStyle.Render("Read more")
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, score, link)

	style := cardStyle
	if selected {
		style = cardSelectedStyle
	}
	return style.Width(width - 2).Render(content)
}

func renderSkeletonCard(width int) string {
	inner := cardInnerWidth(width)

	bar := func(frac float64) string {
		n := int(float64(inner) * frac)
		if n < 1 {
			n = 1
		}
		return skeletonStyle.Render(strings.Repeat(" ", n))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		bar(0.75),
		bar(0.25),
		bar(1.0/3),
	)
	return cardStyle.Width(width - 2).Render(content)
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if lipgloss.Width(line)+1+lipgloss.Width(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
