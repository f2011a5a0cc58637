// Package memory provides in-memory implementations of the chunk store,
// metadata registry and config store ports. A knowledge base keeps its live
// state in these and rebuilds them from a snapshot at startup.
package memory
