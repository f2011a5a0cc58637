// Package chunking builds text chunkers by strategy name.
//
// Two strategies are registered by default: "recursive", which splits on a
// cascade of separators, and "window", a fixed-width sliding window. Select
// probes the preferred strategy once at startup and falls back to the window
// chunker when the preferred one is unavailable.
package chunking
