// Package file provides the TOML configuration store.
// Configuration lives in config.toml inside the kbase home directory
// (~/.kbase, or $KBASE_HOME).
package file
