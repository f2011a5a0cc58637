// Package query provides the question and ranked passages view for the TUI.
package query

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// ErrNoKnowledgeBase indicates the view was built without a knowledge base.
var ErrNoKnowledgeBase = errors.New("knowledge base is required")

// View is the question input, the ranked passages and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.ResultList
	statusbar *status.Bar

	kb   driving.KnowledgeBase
	topK int
	ctx  context.Context

	asked      string
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a query view that asks kb for topK passages.
func NewView(s *styles.Styles, km *keymap.KeyMap, kb driving.KnowledgeBase, topK int) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		kb:         kb,
		topK:       topK,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context queries run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			question := strings.TrimSpace(v.input.Value())
			if question == "" {
				return v, nil
			}
			v.asked = question
			v.err = nil
			v.statusbar.SetState(status.StateAsking)
			v.focusInput = false
			v.input.Blur()
			return v, v.ask(question)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case msg.Type == tea.KeyEnter:
		if result := v.list.SelectedResult(); result != nil {
			rank := v.list.Selected() + 1
			selected := *result
			return v, func() tea.Msg {
				return messages.PassageSelected{Rank: rank, Result: selected}
			}
		}
	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	default:
		v.list, _ = v.list.Update(msg)
	}
	return v, nil
}

// ask returns a command that queries the knowledge base.
func (v *View) ask(question string) tea.Cmd {
	kb, ctx, k := v.kb, v.ctx, v.topK
	return func() tea.Msg {
		if kb == nil {
			return messages.ErrorOccurred{Err: ErrNoKnowledgeBase}
		}
		results, err := kb.Query(ctx, question, k)
		return messages.QueryCompleted{Question: question, Results: results, Err: err}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(msg.Results))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("kbase"), "", v.input.View(), ""}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	if v.asked != "" && !v.focusInput && v.list.IsEmpty() && v.err == nil &&
		v.statusbar.State() == status.StateResults {
		sections = append(sections, v.styles.Muted.Render("Nothing in the knowledge base matches yet."), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Reset clears the question and results and focuses the input.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.asked = ""
	v.err = nil
	v.statusbar.Clear()
}

// Question returns the text in the input.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion replaces the text in the input.
func (v *View) SetQuestion(question string) {
	v.input.SetValue(question)
}

// Results returns the current passages.
func (v *View) Results() []domain.QueryResult {
	return v.list.Results()
}

// SelectedIndex returns the selected passage index.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// InputFocused reports whether keys go to the input.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Ready reports whether the view has dimensions.
func (v *View) Ready() bool {
	return v.ready
}
