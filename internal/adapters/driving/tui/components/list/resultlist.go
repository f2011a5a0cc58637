// Package list renders ranked passages as a navigable list.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// linesPerResult is the height of one rendered passage.
const linesPerResult = 3

// ResultList displays query results, most relevant first.
type ResultList struct {
	results  []domain.QueryResult
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates an empty result list.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{styles: s, width: 80, height: 12}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update moves the selection on navigation keys.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the visible window of results.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(r.results)*linesPerResult+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(r.results))), "")

	visible := max((r.height-2)/linesPerResult, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}
	return strings.Join(lines, "\n")
}

// renderResult formats one passage: rank, source and score, then a preview.
func (r *ResultList) renderResult(index int, result *domain.QueryResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	source := fmt.Sprintf("%s [%d/%d]", result.Metadata.Source,
		result.Metadata.ChunkID+1, result.Metadata.TotalChunks)
	head := fmt.Sprintf("%s%d. %s", indicator, index+1, source)
	score := fmt.Sprintf("%.4f", result.RelevanceScore)

	var headLine string
	if index == r.selected {
		headLine = r.styles.Selected.Render(head) + "  " + r.styles.Score.Render(score)
	} else {
		headLine = r.styles.Source.Render(head) + "  " + r.styles.Score.Render(score)
	}

	preview := Preview(result.Content, r.width-6)
	return headLine + "\n" + r.styles.Muted.Render("    "+preview)
}

// Preview flattens text to one line and truncates it to width runes.
func Preview(text string, width int) string {
	width = max(width, 20)
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= width {
		return flat
	}
	return string(runes[:width-3]) + "..."
}

// SetResults replaces the results and selects the first.
func (r *ResultList) SetResults(results []domain.QueryResult) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.QueryResult {
	return r.results
}

// Selected returns the selected index.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected selects index when it is in range.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the selected result, or nil when the list is empty.
func (r *ResultList) SelectedResult() *domain.QueryResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves the selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves the selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the space available to the list.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty reports whether there are no results.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
