// Package status provides the status bar shown at the bottom of each view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
)

// State is what the bar reports on its left side.
type State string

// Bar states.
const (
	StateReady   State = "ready"
	StateAsking  State = "asking"
	StateResults State = "results"
	StateBusy    State = "busy"
	StateError   State = "error"
)

// Bar displays the current state and the keybindings that apply to it.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	hints    []key.Binding
	state    State
	message  string
	resultCt int
	width    int
}

// NewBar creates a status bar. Nil arguments use defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the bar across the full width.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateAsking:
		return b.styles.Muted.Render("Searching the knowledge base...")
	case StateBusy:
		return b.styles.Muted.Render(b.messageOr("Working..."))
	case StateError:
		return b.styles.Error.Render("Error: " + b.messageOr("unknown"))
	case StateResults:
		if b.message != "" {
			return b.styles.Normal.Render(b.message)
		}
		return b.styles.Normal.Render(fmt.Sprintf("%d passages", b.resultCt))
	default:
		return b.styles.Muted.Render(b.messageOr("Ready"))
	}
}

func (b *Bar) renderRight() string {
	bindings := b.hints
	if bindings == nil {
		if b.state == StateResults && b.resultCt > 0 {
			bindings = b.keymap.ResultsHelp()
		} else {
			bindings = b.keymap.ShortHelp()
		}
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

func (b *Bar) messageOr(fallback string) string {
	if b.message != "" {
		return b.message
	}
	return fallback
}

// SetState changes the reported state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the reported state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the text shown for the current state.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetResultCount sets the passage count shown in the results state.
func (b *Bar) SetResultCount(count int) {
	b.resultCt = count
}

// ResultCount returns the passage count.
func (b *Bar) ResultCount() int {
	return b.resultCt
}

// SetHints overrides the keybinding hints. Nil restores the defaults.
func (b *Bar) SetHints(bindings []key.Binding) {
	b.hints = bindings
}

// SetWidth sets the bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Clear resets the bar to ready.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.resultCt = 0
}
