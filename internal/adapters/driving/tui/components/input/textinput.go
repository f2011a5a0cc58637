// Package input provides the question input for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
)

// maxQuestionLen bounds a typed question.
const maxQuestionLen = 512

// labelWidth is the space taken by the label and the field border.
const labelWidth = 12

// QuestionInput is a single-line text input styled for asking questions.
type QuestionInput struct {
	model  textinput.Model
	styles *styles.Styles
	width  int
}

// NewQuestionInput creates a focused question input.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	m := textinput.New()
	m.Placeholder = "Ask the knowledge base..."
	m.CharLimit = maxQuestionLen
	m.Prompt = ""
	m.Focus()

	q := &QuestionInput{model: m, styles: s}
	q.SetWidth(80)
	return q
}

// Init starts the cursor blinking.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards msg to the text input.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.model, cmd = q.model.Update(msg)
	return q, cmd
}

// View renders the label and the field.
func (q *QuestionInput) View() string {
	label := q.styles.Title.Render("Question ")
	field := q.styles.InputField.Render(q.model.View())
	//nolint:misspell // lipgloss.Center is the library's spelling
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the typed question.
func (q *QuestionInput) Value() string {
	return q.model.Value()
}

// SetValue replaces the typed question.
func (q *QuestionInput) SetValue(value string) {
	q.model.SetValue(value)
}

// Focus gives the input keyboard focus.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.model.Focus()
}

// Blur releases keyboard focus.
func (q *QuestionInput) Blur() {
	q.model.Blur()
}

// Focused reports whether the input has focus.
func (q *QuestionInput) Focused() bool {
	return q.model.Focused()
}

// SetWidth fits the field to width columns.
func (q *QuestionInput) SetWidth(width int) {
	q.width = width
	q.model.Width = max(width-labelWidth, 20)
}

// Width returns the allotted width.
func (q *QuestionInput) Width() int {
	return q.width
}

// Reset clears the question.
func (q *QuestionInput) Reset() {
	q.model.Reset()
}
