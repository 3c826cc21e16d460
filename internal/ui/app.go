package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/medwatch/internal/model"
	"github.com/abelbrown/medwatch/internal/news"
	"github.com/abelbrown/medwatch/internal/otel"
)

// clockInterval is how often relative dates are re-rendered.
const clockInterval = time.Minute

// errNoSource is shown when a run produced nothing because every source failed.
var errNoSource = errors.New("aucune source n'a répondu")

// Options configures the App.
type Options struct {
	Categories   []model.Category // tabs shown before the first result
	Refresh      func() tea.Cmd   // starts a new run; nil disables "r"
	Ring         *otel.RingBuffer // optional; feeds the debug overlay
	ShowFeatured bool
	Now          func() time.Time
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the coordinator. It receives results via messages.
type App struct {
	refresh      func() tea.Cmd
	ring         *otel.RingBuffer
	now          func() time.Time
	showFeatured bool

	categories []model.Category
	result     model.Result
	hasResult  bool
	lastUpdate time.Time

	tab       int // 0 = all categories
	cursor    int
	search    textinput.Model
	searching bool
	detail    bool
	debug     bool

	spin    spinner.Model
	loading bool
	err     error

	width  int
	height int
	ready  bool
}

// NewApp creates an App waiting for its first run.
func NewApp(opts Options) App {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "rechercher un titre"
	ti.CharLimit = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if opts.Now == nil {
		opts.Now = time.Now
	}
	return App{
		refresh:      opts.Refresh,
		ring:         opts.Ring,
		now:          opts.Now,
		showFeatured: opts.ShowFeatured,
		categories:   opts.Categories,
		search:       ti,
		spin:         sp,
		loading:      true,
	}
}

// Init starts the spinner and the clock.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, clockTick())
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(time.Time) tea.Msg { return ClockTick{} })
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.searching {
			return a.handleSearchKey(msg)
		}
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.Width = msg.Width - 20
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case RunStarted:
		wasLoading := a.loading
		a.loading = true
		if wasLoading {
			return a, nil
		}
		return a, a.spin.Tick

	case RunComplete:
		a.loading = false
		a.result = msg.Report.Result
		a.hasResult = true
		a.lastUpdate = msg.Report.Result.Finished
		a.err = nil
		if a.result.Empty() && noneOK(msg.Report.Outcomes) {
			a.err = errNoSource
		}
		if len(a.result.Categories) > 0 {
			a.categories = a.categories[:0:0]
			for _, c := range a.result.Categories {
				a.categories = append(a.categories, c.Category)
			}
		}
		if a.tab > len(a.categories) {
			a.tab = 0
		}
		a.clampCursor()
		return a, nil

	case RefreshFailed:
		a.loading = false
		a.err = msg.Err
		return a, nil

	case ClockTick:
		return a, clockTick()
	}

	return a, nil
}

func noneOK(outcomes []news.Outcome) bool {
	for _, o := range outcomes {
		if o.OK {
			return false
		}
	}
	return true
}

// handleSearchKey processes keyboard input while the search bar has focus.
func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.searching = false
		a.search.Blur()
		a.search.SetValue("")
		a.cursor = 0
		return a, nil
	case "enter":
		a.searching = false
		a.search.Blur()
		return a, nil
	case "ctrl+c":
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.cursor = 0
	return a, cmd
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < len(a.Entries())-1 {
			a.cursor++
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if n := len(a.Entries()); n > 0 {
			a.cursor = n - 1
		}
		return a, nil

	case "tab", "l", "right":
		a.tab = (a.tab + 1) % (len(a.categories) + 1)
		a.cursor = 0
		return a, nil

	case "shift+tab", "h", "left":
		a.tab = (a.tab + len(a.categories)) % (len(a.categories) + 1)
		a.cursor = 0
		return a, nil

	case "enter":
		a.detail = !a.detail
		return a, nil

	case "/":
		a.searching = true
		a.detail = false
		return a, a.search.Focus()

	case "esc":
		a.detail = false
		if a.search.Value() != "" {
			a.search.SetValue("")
			a.cursor = 0
		}
		return a, nil

	case "D":
		a.debug = !a.debug
		return a, nil

	case "r":
		if a.refresh == nil {
			return a, nil
		}
		a.err = nil
		wasLoading := a.loading
		a.loading = true
		if wasLoading {
			return a, a.refresh()
		}
		return a, tea.Batch(a.refresh(), a.spin.Tick)
	}

	return a, nil
}

func (a *App) clampCursor() {
	n := len(a.Entries())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// Entries returns the articles of the active tab matching the search term.
// The "all" tab is ordered newest first across categories.
func (a App) Entries() []news.Tagged {
	if !a.hasResult {
		return nil
	}
	matches := news.Search(a.result, a.search.Value())
	if a.tab == 0 {
		slices.SortStableFunc(matches, func(x, y news.Tagged) int {
			return y.Published.Compare(x.Published)
		})
		return matches
	}
	key := a.categories[a.tab-1].Key
	out := matches[:0:0]
	for _, m := range matches {
		if m.Category.Key == key {
			out = append(out, m)
		}
	}
	return out
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Chargement..."
	}

	status := a.statusBar()
	if a.debug {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	now := a.now()
	var top []string
	top = append(top, a.tabsBar())
	if a.searching || a.search.Value() != "" {
		top = append(top, RenderSearchBar(a.search.View(), len(a.Entries()), a.result.ArticleCount(), a.width))
	} else if a.showFeatured && a.tab == 0 && a.hasResult {
		if f := RenderFeatured(news.Featured(a.result), a.width, now); f != "" {
			top = append(top, f)
		}
	}
	header := strings.Join(top, "\n")

	entries := a.Entries()
	var detail string
	if a.detail && a.cursor < len(entries) {
		detail = RenderDetail(entries[a.cursor], a.width)
	}

	bodyHeight := a.height - lipgloss.Height(header) - lipgloss.Height(status)
	if detail != "" {
		bodyHeight -= lipgloss.Height(detail)
	}

	var body string
	switch {
	case a.err != nil:
		body = ErrorStyle.Render("Impossible de charger les actualités : "+a.err.Error()) + "\n" +
			HelpStyle.Render("Appuyez sur r pour réessayer.")
	case !a.hasResult:
		body = HelpStyle.Render(a.spin.View() + " Chargement des actualités médicales...")
	case len(entries) == 0 && a.search.Value() != "":
		body = HelpStyle.Render(fmt.Sprintf("Aucun résultat pour « %s ».", a.search.Value()))
	case len(entries) == 0:
		body = HelpStyle.Render("Aucun article dans cette catégorie. Appuyez sur r pour actualiser.")
	default:
		body = RenderStream(entries, a.cursor, a.width, bodyHeight, now, a.search.Value() == "", a.tab == 0)
	}
	body = lipgloss.NewStyle().Height(max(bodyHeight, 1)).MaxHeight(max(bodyHeight, 1)).Render(body)

	parts := []string{header, body}
	if detail != "" {
		parts = append(parts, detail)
	}
	parts = append(parts, status)
	return strings.Join(parts, "\n")
}

func (a App) tabsBar() string {
	names := make([]string, 0, len(a.categories)+1)
	counts := make([]int, 0, len(a.categories)+1)
	names = append(names, "Tout")
	counts = append(counts, a.result.ArticleCount())
	for _, c := range a.categories {
		names = append(names, c.Name)
		cr, _ := a.result.Category(c.Key)
		counts = append(counts, len(cr.Articles))
	}
	return RenderTabs(names, counts, a.tab, a.width)
}

func (a App) statusBar() string {
	var left string
	switch {
	case a.loading:
		left = a.spin.View() + " Actualisation..."
	case a.hasResult:
		left = fmt.Sprintf("Mis à jour %s · %d articles", a.lastUpdate.Local().Format("15:04"), a.result.ArticleCount())
	}
	if a.ring != nil {
		if last := a.ring.Last(1); len(last) == 1 && a.width > 120 {
			left += "  " + MetaItem.Render(truncate(eventLine(last[0], a.now()), a.width-100))
		}
	}
	return RenderStatusBar(left, a.width)
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Tab returns the active tab index, 0 being "all" (for testing).
func (a App) Tab() int {
	return a.tab
}

// Loading reports whether a run is in progress (for testing).
func (a App) Loading() bool {
	return a.loading
}

// Err returns the error currently shown (for testing).
func (a App) Err() error {
	return a.err
}
