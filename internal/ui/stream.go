package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/medwatch/internal/model"
	"github.com/abelbrown/medwatch/internal/news"
)

// TimeBand returns a display string for grouping articles by age.
func TimeBand(published, now time.Time) string {
	age := now.Sub(published)
	switch {
	case age < 24*time.Hour:
		return "Aujourd'hui"
	case age < 48*time.Hour:
		return "Hier"
	case age < 7*24*time.Hour:
		return "Cette semaine"
	case age < 30*24*time.Hour:
		return "Ce mois-ci"
	default:
		return "Plus ancien"
	}
}

// RenderStream renders the article list with time bands.
// When showBands is false (search results), band headers are suppressed.
func RenderStream(entries []news.Tagged, cursor, width, height int, now time.Time, showBands, showCategory bool) string {
	var b strings.Builder
	currentBand := ""
	renderedLines := 0

	availableHeight := height
	if availableHeight < 1 {
		availableHeight = 1
	}

	scrollOffset := calcScrollOffset(entries, cursor, availableHeight, now, showBands)

	for i, e := range entries {
		if renderedLines >= availableHeight {
			break
		}

		// Track band state for skipped entries too so headers are right
		// when the visible region starts.
		if showBands {
			band := TimeBand(e.Published, now)
			if band != currentBand {
				currentBand = band
				if i >= scrollOffset {
					header := TimeBandHeader.Render(band)
					b.WriteString(header)
					b.WriteString("\n")
					renderedLines += lipgloss.Height(header)
				}
			}
		}

		if i < scrollOffset || renderedLines >= availableHeight {
			continue
		}

		b.WriteString(renderEntryLine(e, i == cursor, width, now, showCategory))
		b.WriteString("\n")
		renderedLines++
	}

	return b.String()
}

// calcScrollOffset finds the smallest entry index such that every line from
// there through the cursor, band headers included, fits in availableHeight.
func calcScrollOffset(entries []news.Tagged, cursor, availableHeight int, now time.Time, showBands bool) int {
	if len(entries) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(entries) {
		cursor = len(entries) - 1
	}

	offset := 0
	if cursor >= availableHeight {
		offset = cursor - availableHeight + 1
	}
	if !showBands {
		return offset
	}

	for offset <= cursor {
		if visibleLineCount(entries, offset, cursor, now) <= availableHeight {
			return offset
		}
		offset++
	}
	return cursor
}

// visibleLineCount counts lines for entries[from..to] including the band
// headers rendered inside that range. TimeBandHeader's top margin is
// counted as part of the header line.
func visibleLineCount(entries []news.Tagged, from, to int, now time.Time) int {
	lines := 0
	currentBand := ""
	if from > 0 {
		currentBand = TimeBand(entries[from-1].Published, now)
	}
	for i := from; i <= to && i < len(entries); i++ {
		band := TimeBand(entries[i].Published, now)
		if band != currentBand {
			currentBand = band
			lines += 2
		}
		lines++
	}
	return lines
}

// badges renders the EN / Officiel / Nouveau markers of an article.
func badges(a model.Article) string {
	var parts []string
	if a.IsNew {
		parts = append(parts, NewBadge.Render("Nouveau"))
	}
	if a.Official {
		parts = append(parts, OfficialBadge.Render("Officiel"))
	}
	if a.IsEnglish() {
		parts = append(parts, EnglishBadge.Render("EN"))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}

// truncate shortens s to n runes, ending with "...".
func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// renderEntryLine renders one article: source badge, markers, title and
// the relative date right-aligned.
func renderEntryLine(e news.Tagged, selected bool, width int, now time.Time, showCategory bool) string {
	label := e.Source
	if showCategory && e.Category.Name != "" {
		label = e.Category.Name + " · " + e.Source
	}
	badgeStyle := SourceBadge.Foreground(categoryColor(e.Category.Color))
	badge := badgeStyle.Render(truncate(label, 32))
	marks := badges(e.Article)
	date := news.FormatRelativeDate(e.Published, now)

	fixed := lipgloss.Width(badge) + lipgloss.Width(marks) + utf8.RuneCountInString(date) + 4
	titleWidth := width - fixed
	if titleWidth < 20 {
		titleWidth = 20
	}
	title := truncate(e.Title, titleWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	left := badge + marks + style.Render(title)

	pad := width - lipgloss.Width(left) - utf8.RuneCountInString(date) - 1
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + MetaItem.Render(date)
}

// RenderTabs renders the category bar. Index 0 is the "all" tab.
func RenderTabs(names []string, counts []int, active, width int) string {
	var parts []string
	for i, n := range names {
		label := n + TabCount.Render(fmt.Sprintf(" %d", counts[i]))
		if i == active {
			parts = append(parts, TabActive.Underline(true).Render(n)+TabCount.Render(fmt.Sprintf(" %d", counts[i])))
			continue
		}
		parts = append(parts, TabInactive.Render(label))
	}
	bar := strings.Join(parts, StatusBarText.Render("│"))
	if lipgloss.Width(bar) > width && width > 0 {
		// Too wide: keep only the active tab and its neighbours.
		lo, hi := active-1, active+2
		if lo < 0 {
			lo = 0
		}
		if hi > len(parts) {
			hi = len(parts)
		}
		bar = strings.Join(parts[lo:hi], StatusBarText.Render("│"))
	}
	return bar
}

// RenderFeatured renders the first article of each category on one line each.
func RenderFeatured(featured []news.Tagged, width int, now time.Time) string {
	if len(featured) == 0 {
		return ""
	}
	var lines []string
	for _, f := range featured {
		head := lipgloss.NewStyle().Foreground(categoryColor(f.Category.Color)).Bold(true).Render(f.Category.Name)
		line := head + "  " + truncate(f.Title, width-lipgloss.Width(head)-16) + "  " + MetaItem.Render(news.FormatRelativeDate(f.Published, now))
		lines = append(lines, line)
	}
	return FeaturedStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// RenderDetail renders the selected article's abstract and link.
func RenderDetail(e news.Tagged, width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(e.Title))
	b.WriteString("\n")
	meta := e.Source
	if e.Journal != "" {
		meta += " · " + e.Journal
	}
	if !e.Published.IsZero() {
		meta += " · " + e.Published.Format("02/01/2006")
	}
	b.WriteString(MetaItem.Render(meta))
	if e.Abstract != "" && e.Abstract != e.Title {
		b.WriteString("\n\n")
		b.WriteString(e.Abstract)
	}
	if e.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(StatusBarText.Render(e.URL))
	}
	w := width - 4
	if w < 20 {
		w = 20
	}
	return DetailStyle.Width(w).Render(b.String())
}

// RenderStatusBar renders the bottom status bar with key hints.
func RenderStatusBar(left string, width int) string {
	keys := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("tab") + StatusBarText.Render(":catégorie"),
		StatusBarKey.Render("enter") + StatusBarText.Render(":détail"),
		StatusBarKey.Render("/") + StatusBarText.Render(":recherche"),
		StatusBarKey.Render("r") + StatusBarText.Render(":actualiser"),
		StatusBarKey.Render("D") + StatusBarText.Render(":debug"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quitter"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints) - 2
	if padding < 1 {
		padding = 1
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}

// RenderSearchBar renders the search input with its match count.
func RenderSearchBar(input string, matches, total, width int) string {
	count := SearchBarCount.Render(fmt.Sprintf(" %d/%d", matches, total))
	content := input + count
	padding := width - lipgloss.Width(content) - 2
	if padding < 0 {
		padding = 0
	}
	return SearchBar.Width(width).Render(content + strings.Repeat(" ", padding))
}
