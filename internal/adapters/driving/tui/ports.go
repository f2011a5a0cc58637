// Package tui provides an interactive terminal user interface for kbase.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// KnowledgeBase answers questions and manages documents.
	KnowledgeBase driving.KnowledgeBase

	// TopK is the number of passages a question returns.
	// Zero uses domain.DefaultTopK.
	TopK int
}

// NewPorts creates a Ports aggregate.
func NewPorts(kb driving.KnowledgeBase, topK int) *Ports {
	return &Ports{KnowledgeBase: kb, TopK: topK}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.KnowledgeBase == nil {
		return ErrMissingKnowledgeBase
	}
	if p.TopK < 0 {
		return ErrInvalidPorts
	}
	return nil
}

func (p *Ports) topK() int {
	if p.TopK <= 0 {
		return domain.DefaultTopK
	}
	return p.TopK
}
