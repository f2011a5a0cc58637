// Package file persists knowledge base snapshots and retained originals on
// the local filesystem.
//
// A snapshot is a directory holding three files:
//
//	index.bin      flat vector index (see the flat package codec)
//	docstore.json  model, dimension, position to key map and chunks
//	metadata.toml  the document registry
//
// Save writes a complete sibling directory and swaps it in with renames
// while holding an advisory lock, so a reader sees either the previous
// snapshot or the new one.
package file
