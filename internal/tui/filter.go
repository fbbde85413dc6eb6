package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
)

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Search stories..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100
	return ti
}

func renderSearchBox(input textinput.Model, width int, focused bool) string {
	style := searchBoxStyle
	if focused {
		style = searchBoxActiveStyle
	}
	return style.Width(width - 2).Render(input.View())
}
