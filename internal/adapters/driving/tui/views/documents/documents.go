// Package documents provides the registered documents view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// ErrNoKnowledgeBase indicates the view was built without a knowledge base.
var ErrNoKnowledgeBase = errors.New("knowledge base not available")

const dateLayout = "2006-01-02 15:04"

// View lists registered documents and deletes them on confirmation.
type View struct {
	styles *styles.Styles
	kb     driving.KnowledgeBase
	ctx    context.Context

	documents    []domain.Document
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	confirming   bool
	notice       string
	err          error
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, kb driving.KnowledgeBase) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		kb:        kb,
		ctx:       context.Background(),
		documents: []domain.Document{},
	}
}

// WithContext sets the context knowledge base calls run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load marks the view loading and returns a command that lists documents.
func (v *View) Load() tea.Cmd {
	v.loading = true
	v.confirming = false
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	kb, ctx := v.kb, v.ctx
	return func() tea.Msg {
		if kb == nil {
			return messages.DocumentsLoaded{Err: ErrNoKnowledgeBase}
		}
		docs, err := kb.ListDocuments(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) deleteDocument(filename string) tea.Cmd {
	kb, ctx := v.kb, v.ctx
	return func() tea.Msg {
		if kb == nil {
			return messages.DocumentDeleted{Filename: filename, Err: ErrNoKnowledgeBase}
		}
		deleted, err := kb.DeleteDocument(ctx, filename)
		return messages.DocumentDeleted{Filename: filename, Deleted: deleted, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirming {
			return v.handleConfirmKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.documents = msg.Documents
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		if msg.Deleted {
			v.notice = fmt.Sprintf("Deleted %s", msg.Filename)
		} else {
			v.notice = fmt.Sprintf("%s was already gone", msg.Filename)
		}
		return v, v.Load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "d":
		if len(v.documents) > 0 {
			v.confirming = true
		}
	case "r":
		v.notice = ""
		return v, v.Load()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	return v, nil
}

func (v *View) handleConfirmKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirming = false
		if v.selected < len(v.documents) {
			return v, v.deleteDocument(v.documents[v.selected].Filename)
		}
	case "n", "N", "esc":
		v.confirming = false
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, header, notice and help.
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Add one with `kbase add <file>`."))
	default:
		b.WriteString(v.renderTable())
	}
	b.WriteString("\n\n")

	if v.confirming && v.selected < len(v.documents) {
		prompt := fmt.Sprintf("Delete %s and rebuild the index? (y/n)", v.documents[v.selected].Filename)
		b.WriteString(v.styles.Warning.Render(prompt))
		b.WriteString("\n\n")
	} else if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(v.styles.Muted.Render("[j/k] Navigate  [d] Delete  [r] Reload  [Esc] Back"))
	return b.String()
}

func (v *View) renderTable() string {
	nameWidth := max(v.width-40, 16)

	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("  %-*s %8s  %s", nameWidth, "FILENAME", "CHUNKS", "UPLOADED")))
	b.WriteString("\n")

	visible := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visible; i++ {
		doc := v.documents[i]
		indicator := "  "
		if i == v.selected {
			indicator = "> "
		}
		line := fmt.Sprintf("%s%-*s %8d  %s",
			indicator, nameWidth, truncate(doc.Filename, nameWidth), doc.ChunkCount,
			doc.UploadDate.Local().Format(dateLayout))
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	if len(v.documents) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, min(v.scrollOffset+visible, len(v.documents)), len(v.documents))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// Selected returns the selected document index.
func (v *View) Selected() int {
	return v.selected
}

// Confirming reports whether a delete is awaiting confirmation.
func (v *View) Confirming() bool {
	return v.confirming
}

// Loading reports whether documents are being fetched.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
