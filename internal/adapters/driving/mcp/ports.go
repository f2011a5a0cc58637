package mcp

import (
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// KnowledgeBase serves every tool and resource.
	KnowledgeBase driving.KnowledgeBase

	// DefaultTopK is used when a query omits k. Zero means domain.DefaultTopK.
	DefaultTopK int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.KnowledgeBase == nil {
		return ErrMissingKnowledgeBase
	}
	return nil
}
