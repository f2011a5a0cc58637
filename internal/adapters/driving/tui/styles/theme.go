// Package styles provides the colour theme and lipgloss styles for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Good      lipgloss.Color
	Caution   lipgloss.Color
	Bad       lipgloss.Color
	Border    lipgloss.Color
	Bar       lipgloss.Color
}

// DefaultTheme returns the default dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#5EAAA8"),
		Secondary: lipgloss.Color("#E8A87C"),
		Text:      lipgloss.Color("#E0E0E0"),
		Muted:     lipgloss.Color("#7A7A8C"),
		Good:      lipgloss.Color("#8BD17C"),
		Caution:   lipgloss.Color("#F2C94C"),
		Bad:       lipgloss.Color("#EB5757"),
		Border:    lipgloss.Color("#3C3F4A"),
		Bar:       lipgloss.Color("#1F2028"),
	}
}

// Styles holds the lipgloss styles every view renders with.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style

	// Score renders relevance scores and counts.
	Score lipgloss.Style

	// Source renders document filenames next to passages.
	Source lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles derives styles from theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	bordered := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	return &Styles{
		theme:    theme,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		Normal:   lipgloss.NewStyle().Foreground(theme.Text),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Bar).Background(theme.Primary),
		Error:    lipgloss.NewStyle().Foreground(theme.Bad),
		Success:  lipgloss.NewStyle().Foreground(theme.Good),
		Warning:  lipgloss.NewStyle().Foreground(theme.Caution),
		Score:    lipgloss.NewStyle().Foreground(theme.Caution),
		Source:   lipgloss.NewStyle().Italic(true).Foreground(theme.Secondary),

		InputField: bordered.Padding(0, 1),
		StatusBar:  lipgloss.NewStyle().Foreground(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Border:     bordered,
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
