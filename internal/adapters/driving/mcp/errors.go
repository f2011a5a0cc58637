// Package mcp provides an MCP (Model Context Protocol) server adapter for kbase.
// It lets AI assistants ingest documents into the knowledge base and
// retrieve ranked passages from it.
package mcp

import "errors"

// ErrMissingKnowledgeBase is returned when the knowledge base is not provided.
var ErrMissingKnowledgeBase = errors.New("mcp: knowledge base is required")
