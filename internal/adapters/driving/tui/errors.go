package tui

import "errors"

// ErrMissingKnowledgeBase is returned when the knowledge base is not provided.
var ErrMissingKnowledgeBase = errors.New("tui: knowledge base is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
