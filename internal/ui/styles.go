package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorInfo      = lipgloss.Color("39")  // Blue
	colorWarn      = lipgloss.Color("214") // Amber
)

// categoryColors maps category color names to terminal colors.
var categoryColors = map[string]lipgloss.Color{
	"violet":  lipgloss.Color("135"),
	"cyan":    lipgloss.Color("44"),
	"rose":    lipgloss.Color("204"),
	"emerald": lipgloss.Color("42"),
}

// categoryColor returns the terminal color for a category color name.
func categoryColor(name string) lipgloss.Color {
	if c, ok := categoryColors[name]; ok {
		return c
	}
	return colorPrimary
}

// SelectedItem style for the currently highlighted article.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for unselected articles.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// MetaItem style for dates and secondary text.
var MetaItem = lipgloss.NewStyle().
	Foreground(colorMuted)

// TimeBandHeader style for age group labels ("Aujourd'hui", "Cette semaine").
var TimeBandHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginTop(1).
	Padding(0, 1)

// SourceBadge style for source name badges.
var SourceBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// Article badges.
var (
	EnglishBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(colorInfo).
			Padding(0, 1)

	OfficialBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("16")).
			Background(colorSuccess).
			Padding(0, 1)

	NewBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("16")).
			Background(colorWarn).
			Bold(true).
			Padding(0, 1)
)

// Tab styles for the category bar.
var (
	TabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	TabInactive = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Padding(0, 1)

	TabCount = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// FeaturedStyle for the featured strip above the list.
var FeaturedStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252")).
	Border(lipgloss.NormalBorder(), false, false, true, false).
	BorderForeground(colorMuted).
	Padding(0, 1)

// DetailStyle for the expanded abstract of the selected article.
var DetailStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("250")).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(0, 1)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help and empty-state text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// SearchBar style for the search input bar.
var SearchBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// SearchBarCount style for the match count.
var SearchBarCount = lipgloss.NewStyle().
	Foreground(colorSecondary)

// Debug overlay styles.
var (
	DebugPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	DebugHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorHighlight)
)
