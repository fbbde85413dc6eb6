package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/hntop/internal/browser"
	"github.com/matheuskafuri/hntop/internal/logging"
	"github.com/matheuskafuri/hntop/internal/query"
	"github.com/matheuskafuri/hntop/internal/story"
)

// topStoriesKey is the cache key the list reads from.
const topStoriesKey = "topStories"

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeHelp
)

type App struct {
	stories *query.Cache[[]story.Story]
	fetch   query.Fetcher[[]story.Story]
	log     *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	updates     <-chan query.State[[]story.Story]
	unsubscribe func()

	// Inputs to every render
	state       query.State[[]story.Story]
	searchInput textinput.Model

	spinner  spinner.Model
	spinning bool
	cursor   int
	mode     mode
	width    int
	height   int
	err      error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Stories *query.Cache[[]story.Story]
	Fetch   query.Fetcher[[]story.Story]
	Logger  *slog.Logger
}

func NewApp(opts RunOpts) *App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		stories:     opts.Stories,
		fetch:       opts.Fetch,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
		searchInput: newSearchInput(),
		spinner:     sp,
		mode:        modeNormal,
	}
}

// Init subscribes to the story list and mounts it, which starts the fetch
// when the cache has nothing fresh.
func (a *App) Init() tea.Cmd {
	a.updates, a.unsubscribe = a.stories.Subscribe(topStoriesKey)
	a.state = a.stories.Mount(a.ctx, topStoriesKey, a.fetch)
	a.log.Debug("mounted story list", "status", a.state.Status, "fetching", a.state.Fetching)

	cmds := []tea.Cmd{waitForState(a.updates)}
	if a.busy() {
		a.spinning = true
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// close stops in-flight fetches and drops the subscription.
func (a *App) close() {
	a.cancel()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func waitForState(ch <-chan query.State[[]story.Story]) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg{state: st}
	}
}

func (a *App) busy() bool {
	return a.state.Loading() || a.state.Fetching
}

func (a *App) screen() screen {
	return deriveScreen(a.state, a.searchInput.Value())
}

func (a *App) openStoryCmd(s story.Story) tea.Cmd {
	log := a.log
	return func() tea.Msg {
		if err := browser.Open(s.URL); err != nil {
			log.Warn("opening story", "id", s.ID, "err", err)
			return openErrMsg{err: err}
		}
		log.Debug("opened story", "id", s.ID, "url", s.URL)
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case stateMsg:
		a.state = msg.state
		a.clampCursor()
		cmds := []tea.Cmd{waitForState(a.updates)}
		if a.busy() && !a.spinning {
			a.spinning = true
			cmds = append(cmds, a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)

	case openErrMsg:
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		if a.busy() {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		a.spinning = false
		return a, nil
	}

	if a.mode == modeSearch {
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) clampCursor() {
	n := len(a.screen().cards)
	if a.cursor >= n {
		a.cursor = max(0, n-1)
	}
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.close()
	return a, tea.Quit
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a.quit()
	}

	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeHelp:
		switch msg.String() {
		case "?", "esc":
			a.mode = modeNormal
		case "q":
			return a.quit()
		}
		return a, nil
	}

	sc := a.screen()
	switch msg.String() {
	case "q":
		return a.quit()
	case "j", "down":
		if sc.branch == branchStories && a.cursor < len(sc.cards)-1 {
			a.cursor++
		}
		return a, nil
	case "k", "up":
		if sc.branch == branchStories && a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	case "g", "home":
		a.cursor = 0
		return a, nil
	case "G", "end":
		if sc.branch == branchStories {
			a.cursor = max(0, len(sc.cards)-1)
		}
		return a, nil
	case "o", "enter":
		if sc.branch == branchStories && a.cursor < len(sc.cards) {
			return a, a.openStoryCmd(sc.cards[a.cursor].story)
		}
		return a, nil
	case "/":
		if sc.branch == branchError {
			return a, nil
		}
		a.mode = modeSearch
		return a, a.searchInput.Focus()
	case "?":
		a.mode = modeHelp
		return a, nil
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.cursor = 0
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	case "down":
		if sc := a.screen(); sc.branch == branchStories && a.cursor < len(sc.cards)-1 {
			a.cursor++
		}
		return a, nil
	case "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	}

	before := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	// The list is re-derived from the new term on the next render.
	if a.searchInput.Value() != before {
		a.cursor = 0
	}
	return a, cmd
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  hntop")
	}

	sc := a.screen()

	if sc.branch == branchError {
		return errorStyle.Render("Error fetching stories: " + sc.errText)
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  q quit")
	}

	header := renderHeading(a.spinner.View(), a.busy(), a.width)
	search := renderSearchBox(a.searchInput, a.width, a.mode == modeSearch)

	status := renderStatusBar(
		len(sc.cards),
		sc.total,
		sc.branch == branchLoading,
		a.mode == modeSearch,
		a.state.Fetching,
		a.width,
	)
	if a.err != nil {
		status = errorStyle.Render(a.err.Error())
	}

	cardsHeight := a.height - lipgloss.Height(header) - lipgloss.Height(search) - lipgloss.Height(status)
	if cardsHeight < 5 {
		cardsHeight = 5
	}

	cursor := a.cursor
	if sc.branch == branchLoading {
		cursor = 0
	}
	body := renderCards(sc.cards, sc.total, cursor, cardsHeight, a.width)
	body = lipgloss.NewStyle().Height(cardsHeight).MaxHeight(cardsHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, search, body, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("hntop")
	dim := helpDimStyle

	help := title + dim.Render(" Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Move between stories\n" +
		"  g/G           First / last story\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open story in browser\n" +
		"  /             Search titles\n\n" +
		dim.Render("Search") + "\n" +
		"  enter         Keep filter, back to list\n" +
		"  esc           Clear filter\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	defer app.close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
