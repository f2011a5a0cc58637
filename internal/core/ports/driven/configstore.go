package driven

// ConfigStore holds flat, dot-separated configuration keys such as
// "chunking.size". Typed getters return the zero value when a key is
// missing or holds an incompatible type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt truncates floats.
	GetInt(key string) int

	// GetFloat widens integers.
	GetFloat(key string) float64
	GetBool(key string) bool

	// Keys returns every stored key, sorted.
	Keys() []string

	// Set stores value under key. Durable stores persist before returning.
	Set(key string, value any) error

	// Path describes where the values live.
	Path() string
}
