package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Opener builds a ready knowledge base.
type Opener func(ctx context.Context) (*KnowledgeBase, error)

// Handle opens a knowledge base on first use and hands the same instance to
// every later caller. After Close, Get fails with domain.ErrClosed instead
// of opening a new instance.
type Handle struct {
	mu     sync.Mutex
	open   Opener
	kb     *KnowledgeBase
	closed bool
}

// NewHandle creates a handle that calls open on first Get.
func NewHandle(open Opener) *Handle {
	return &Handle{open: open}
}

// Get returns the knowledge base, opening it if needed. A failed open is
// not cached, so the next Get tries again.
func (h *Handle) Get(ctx context.Context) (*KnowledgeBase, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, domain.ErrClosed
	}
	if h.kb != nil {
		return h.kb, nil
	}
	kb, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	h.kb = kb
	return kb, nil
}

// Opened reports whether Get has produced an instance that is not yet closed.
func (h *Handle) Opened() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kb != nil
}

// Close closes the instance, if one was opened, and disables the handle.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.kb == nil {
		return nil
	}
	err := h.kb.Close()
	h.kb = nil
	return err
}
