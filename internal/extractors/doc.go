// Package extractors turns raw document bytes into text. Each extractor
// handles a fixed set of file extensions; the Registry dispatches by the
// extension of the document's filename.
//
// Extractors are registered with the Registry at startup.
package extractors
