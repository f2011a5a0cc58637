// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// KnowledgeBase is the only component consumers call. It owns the vector
// index, chunk store and metadata registry, and persists them through a
// driven.SnapshotStore after every change.
package services
