// Package messages defines the Bubbletea messages exchanged between the TUI
// views and the app model.
package messages

import (
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewQuery is the question input and ranked passages.
	ViewQuery
	// ViewDocuments lists the registry.
	ViewDocuments
	// ViewPassage shows one passage in full.
	ViewPassage
	// ViewHelp lists keybindings.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewQuery:
		return "query"
	case ViewDocuments:
		return "documents"
	case ViewPassage:
		return "passage"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// QueryCompleted carries ranked passages back to the query view.
type QueryCompleted struct {
	Question string
	Results  []domain.QueryResult
	Err      error
}

// PassageSelected opens a passage in the passage view.
type PassageSelected struct {
	Rank   int
	Result domain.QueryResult
}

// DocumentsLoaded carries the registry.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentDeleted reports the outcome of a delete.
type DocumentDeleted struct {
	Filename string
	Deleted  bool
	Err      error
}

// StatsLoaded carries knowledge base statistics for the menu header.
type StatsLoaded struct {
	Stats domain.Stats
	Err   error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
