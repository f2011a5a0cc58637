package driving

import "github.com/custodia-labs/kbase/internal/core/domain"

// SettingsService reads and updates the persisted configuration.
type SettingsService interface {
	// Get returns the effective settings: stored values over defaults.
	// Returns domain.ErrInvalidConfig when the result is inconsistent.
	Get() (domain.Settings, error)

	// Set parses raw for the type of key, validates and persists it.
	// Unknown keys return domain.ErrInvalidConfig.
	Set(key, raw string) error

	// Value returns the effective value for key, formatted for display.
	Value(key string) (string, error)

	// Keys lists every recognised key, sorted.
	Keys() []string

	// Path returns the configuration file path.
	Path() string
}
