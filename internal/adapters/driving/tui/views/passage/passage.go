// Package passage shows one retrieved passage in full.
package passage

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// headerLines is the space taken by the title, metadata and help.
const headerLines = 7

// View displays a passage in a scrollable viewport.
type View struct {
	styles   *styles.Styles
	viewport viewport.Model

	rank   int
	result *domain.QueryResult
	width  int
	height int
	ready  bool
}

// NewView creates an empty passage view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:   s,
		viewport: viewport.New(80, 16),
		width:    80,
		height:   24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetPassage replaces the displayed passage and scrolls to the top.
func (v *View) SetPassage(rank int, result domain.QueryResult) {
	v.rank = rank
	v.result = &result
	v.refresh()
	v.viewport.GotoTop()
}

// Update handles messages for the passage view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewQuery}
			}
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the passage view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}
	if v.result == nil {
		return v.styles.Muted.Render("No passage selected.")
	}

	meta := v.result.Metadata
	title := v.styles.Title.Render(fmt.Sprintf("#%d %s", v.rank, meta.Source))
	details := v.styles.Muted.Render(fmt.Sprintf("chunk %d of %d  %d chars  distance %.4f",
		meta.ChunkID+1, meta.TotalChunks, meta.Size, v.result.RelevanceScore))
	uploaded := ""
	if !meta.UploadDate.IsZero() {
		uploaded = v.styles.Muted.Render("uploaded " + meta.UploadDate.Local().Format("2006-01-02 15:04"))
	}
	help := v.styles.Muted.Render(fmt.Sprintf("[j/k] Scroll  [Esc] Back  %3.f%%", v.viewport.ScrollPercent()*100))

	return lipgloss.JoinVertical(lipgloss.Left,
		title, details, uploaded, "",
		v.styles.Border.Render(v.viewport.View()),
		help,
	)
}

func (v *View) refresh() {
	if v.result == nil {
		v.viewport.SetContent("")
		return
	}
	wrap := lipgloss.NewStyle().Width(max(v.viewport.Width-2, 10))
	v.viewport.SetContent(wrap.Render(v.result.Content))
}

// SetDimensions sets the view dimensions and rewraps the passage.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.viewport.Width = max(width-4, 20)
	v.viewport.Height = max(height-headerLines-2, 3)
	v.refresh()
}

// Result returns the displayed passage.
func (v *View) Result() *domain.QueryResult {
	return v.result
}

// Rank returns the 1-based rank of the displayed passage.
func (v *View) Rank() int {
	return v.rank
}
