package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// MockKnowledgeBase implements the parts of driving.KnowledgeBase the view uses.
type MockKnowledgeBase struct {
	driving.KnowledgeBase

	ListDocumentsFunc  func(ctx context.Context) ([]domain.Document, error)
	DeleteDocumentFunc func(ctx context.Context, filename string) (bool, error)
}

func (m *MockKnowledgeBase) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx)
	}
	return []domain.Document{}, nil
}

func (m *MockKnowledgeBase) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, filename)
	}
	return false, nil
}

func testDocuments() []domain.Document {
	uploaded := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []domain.Document{
		{Filename: "alpha.txt", ChunkCount: 3, UploadDate: uploaded},
		{Filename: "beta.pdf", ChunkCount: 12, UploadDate: uploaded},
		{Filename: "gamma.txt", ChunkCount: 1, UploadDate: uploaded},
	}
}

func loadedView(t *testing.T, kb driving.KnowledgeBase) *View {
	t.Helper()
	v := NewView(nil, kb)
	v.SetDimensions(100, 30)
	cmd := v.Load()
	require.NotNil(t, cmd)
	v.Update(cmd())
	return v
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.Empty(t, v.Documents())
	assert.Nil(t, v.Init())
}

func TestView_Load(t *testing.T) {
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return testDocuments(), nil
		},
	}
	v := NewView(nil, kb)
	v.SetDimensions(100, 30)

	cmd := v.Load()
	assert.True(t, v.Loading())
	assert.Contains(t, v.View(), "Loading documents...")

	v.Update(cmd())
	assert.False(t, v.Loading())
	assert.Len(t, v.Documents(), 3)

	out := v.View()
	assert.Contains(t, out, "Documents (3)")
	assert.Contains(t, out, "beta.pdf")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "FILENAME")
}

func TestView_LoadWithoutKnowledgeBase(t *testing.T) {
	v := NewView(nil, nil)

	msg, ok := v.Load()().(messages.DocumentsLoaded)
	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, ErrNoKnowledgeBase)

	v.Update(msg)
	assert.Contains(t, v.View(), "Error:")
}

func TestView_LoadError(t *testing.T) {
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return nil, domain.ErrNotReady
		},
	}
	v := loadedView(t, kb)

	assert.ErrorIs(t, v.Err(), domain.ErrNotReady)
}

func TestView_Empty(t *testing.T) {
	v := loadedView(t, &MockKnowledgeBase{})
	assert.Contains(t, v.View(), "No documents yet.")

	v.Update(key("d"))
	assert.False(t, v.Confirming(), "nothing to delete")
}

func TestView_Navigation(t *testing.T) {
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return testDocuments(), nil
		},
	}
	v := loadedView(t, kb)

	v.Update(key("j"))
	v.Update(key("j"))
	v.Update(key("j"))
	assert.Equal(t, 2, v.Selected())

	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, v.Selected())
}

func TestView_DeleteConfirmed(t *testing.T) {
	docs := testDocuments()
	var deleted string
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return docs, nil
		},
		DeleteDocumentFunc: func(_ context.Context, filename string) (bool, error) {
			deleted = filename
			docs = docs[1:]
			return true, nil
		},
	}
	v := loadedView(t, kb)

	_, cmd := v.Update(key("d"))
	assert.Nil(t, cmd)
	assert.True(t, v.Confirming())
	assert.Contains(t, v.View(), "Delete alpha.txt and rebuild the index? (y/n)")

	_, cmd = v.Update(key("y"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.DocumentDeleted)
	require.True(t, ok)
	assert.Equal(t, "alpha.txt", deleted)
	assert.True(t, msg.Deleted)

	_, reload := v.Update(msg)
	require.NotNil(t, reload)
	v.Update(reload())

	assert.Len(t, v.Documents(), 2)
	assert.Contains(t, v.View(), "Deleted alpha.txt")
}

func TestView_DeleteCancelled(t *testing.T) {
	called := false
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return testDocuments(), nil
		},
		DeleteDocumentFunc: func(context.Context, string) (bool, error) {
			called = true
			return true, nil
		},
	}
	v := loadedView(t, kb)

	v.Update(key("d"))
	_, cmd := v.Update(key("n"))

	assert.Nil(t, cmd)
	assert.False(t, v.Confirming())
	assert.False(t, called)
}

func TestView_DeleteOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		msg     messages.DocumentDeleted
		wantErr bool
		want    string
	}{
		{name: "already gone", msg: messages.DocumentDeleted{Filename: "x.txt"}, want: "x.txt was already gone"},
		{name: "failure", msg: messages.DocumentDeleted{Filename: "x.txt", Err: errors.New("disk full")}, wantErr: true, want: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := loadedView(t, &MockKnowledgeBase{})
			_, cmd := v.Update(tt.msg)

			if tt.wantErr {
				assert.Nil(t, cmd)
				assert.Error(t, v.Err())
			} else {
				assert.NotNil(t, cmd)
			}
			if cmd != nil {
				v.Update(cmd())
			}
			assert.Contains(t, v.View(), tt.want)
		})
	}
}

func TestView_SelectionClampedAfterReload(t *testing.T) {
	docs := testDocuments()
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return docs, nil
		},
	}
	v := loadedView(t, kb)
	v.Update(key("j"))
	v.Update(key("j"))

	docs = docs[:1]
	_, cmd := v.Update(key("r"))
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, 0, v.Selected())
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := loadedView(t, &MockKnowledgeBase{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewMenu, changed.View)
}

func TestView_ScrollIndicator(t *testing.T) {
	var docs []domain.Document
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		docs = append(docs, domain.Document{Filename: name + ".txt", ChunkCount: 1})
	}
	kb := &MockKnowledgeBase{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return docs, nil
		},
	}
	v := NewView(nil, kb)
	v.SetDimensions(80, 11)
	v.Update(v.Load()())

	assert.Contains(t, v.View(), "[1-3 of 6]")

	for range 5 {
		v.Update(key("j"))
	}
	assert.Contains(t, v.View(), "[4-6 of 6]")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
