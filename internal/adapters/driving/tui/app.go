package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/views/passage"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/views/query"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to the knowledge base.
	ports *Ports

	// ctx is the context knowledge base calls run under.
	ctx context.Context

	styles *styles.Styles

	menuView      *menu.View
	queryView     *query.View
	documentsView *documents.View
	passageView   *passage.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		menuView:      menu.NewView(s),
		queryView:     query.NewView(s, nil, ports.KnowledgeBase, ports.topK()),
		documentsView: documents.NewView(s, ports.KnowledgeBase),
		passageView:   passage.NewView(s),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.queryView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("kbase"),
		a.loadStats(),
	)
}

// loadStats returns a command that fetches statistics for the menu.
func (a *App) loadStats() tea.Cmd {
	kb, ctx := a.ports.KnowledgeBase, a.ctx
	return func() tea.Msg {
		stats, err := kb.Stats(ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewMenu:
			a.menuView, cmd = a.menuView.Update(msg)
		case messages.ViewQuery:
			a.queryView, cmd = a.queryView.Update(msg)
			a.err = a.queryView.Err()
		case messages.ViewDocuments:
			a.documentsView, cmd = a.documentsView.Update(msg)
		case messages.ViewPassage:
			a.passageView, cmd = a.passageView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
		}
		return a, cmd

	case messages.ViewChanged:
		previous := a.currentView
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewMenu:
			return a, a.loadStats()
		case messages.ViewQuery:
			if previous == messages.ViewPassage {
				return a, nil
			}
			a.queryView.Reset()
			return a, a.queryView.Init()
		case messages.ViewDocuments:
			return a, a.documentsView.Load()
		case messages.ViewPassage, messages.ViewHelp:
		}
		return a, nil

	case messages.StatsLoaded:
		a.menuView, cmd = a.menuView.Update(msg)
		return a, cmd

	case messages.QueryCompleted:
		a.queryView, cmd = a.queryView.Update(msg)
		a.err = a.queryView.Err()
		return a, cmd

	case messages.PassageSelected:
		a.passageView.SetPassage(msg.Rank, msg.Result)
		a.currentView = messages.ViewPassage
		return a, nil

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.err = a.documentsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewQuery:
			a.queryView, cmd = a.queryView.Update(msg)
		case messages.ViewDocuments:
			a.documentsView, cmd = a.documentsView.Update(msg)
		case messages.ViewMenu, messages.ViewPassage, messages.ViewHelp:
		}
		return a, cmd
	}

	// Cursor blinks and other internal messages go to the active view.
	switch a.currentView {
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
	case messages.ViewPassage:
		a.passageView, cmd = a.passageView.Update(msg)
	case messages.ViewMenu, messages.ViewDocuments, messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewQuery:
		return a.queryView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewPassage:
		return a.passageView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Ask a question:
  (type)      Enter a question
  enter       Ask
  j/k, ↑/↓    Navigate passages
  enter       Read the selected passage
  n, /        Ask another question

Documents:
  j/k, ↑/↓    Navigate documents
  d           Delete (confirm with y)
  r           Reload

Add documents with ` + "`kbase add <file>`" + ` or drop .txt files in the
documents directory and run ` + "`kbase sync`" + `.

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Question returns the text in the query input.
func (a *App) Question() string {
	return a.queryView.Question()
}

// Results returns the passages of the last answered question.
func (a *App) Results() []domain.QueryResult {
	return a.queryView.Results()
}

// SelectedIndex returns the selected passage index.
func (a *App) SelectedIndex() int {
	return a.queryView.SelectedIndex()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.queryView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.passageView.SetDimensions(width, height)
}
