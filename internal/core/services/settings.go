package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyStorageBackend     = "storage.backend"
	KeyStorageDataDir     = "storage.data_dir"
	KeyStorageDocsDir     = "storage.documents_dir"
	KeyStorageReembed     = "storage.reembed_on_model_change"
	KeyChunkStrategy      = "chunking.strategy"
	KeyChunkSize          = "chunking.size"
	KeyChunkOverlap       = "chunking.overlap"
	KeyEmbedProvider      = "embedding.provider"
	KeyEmbedModel         = "embedding.model"
	KeyEmbedDimensions    = "embedding.dimensions"
	KeyEmbedBaseURL       = "embedding.base_url"
	KeyEmbedModelsDir     = "embedding.models_dir"
	KeyEmbedCacheSize     = "embedding.cache_size"
	KeyEmbedWorkers       = "embedding.workers"
	KeyQueryTopK          = "query.top_k"
	KeyWatchRatePerSecond = "watch.rate_per_second"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// setting binds a config key to a field of domain.Settings.
type setting struct {
	kind valueKind
	str  func(*domain.Settings) *string
	num  func(*domain.Settings) *int
	flt  func(*domain.Settings) *float64
	flag func(*domain.Settings) *bool
}

func stringSetting(f func(*domain.Settings) *string) setting {
	return setting{kind: kindString, str: f}
}

func intSetting(f func(*domain.Settings) *int) setting {
	return setting{kind: kindInt, num: f}
}

var settingsTable = map[string]setting{
	KeyStorageBackend:     stringSetting(func(s *domain.Settings) *string { return (*string)(&s.Storage.Backend) }),
	KeyStorageDataDir:     stringSetting(func(s *domain.Settings) *string { return &s.Storage.DataDir }),
	KeyStorageDocsDir:     stringSetting(func(s *domain.Settings) *string { return &s.Storage.DocumentsDir }),
	KeyStorageReembed:     {kind: kindBool, flag: func(s *domain.Settings) *bool { return &s.Storage.ReembedOnModelChange }},
	KeyChunkStrategy:      stringSetting(func(s *domain.Settings) *string { return (*string)(&s.Chunking.Strategy) }),
	KeyChunkSize:          intSetting(func(s *domain.Settings) *int { return &s.Chunking.Size }),
	KeyChunkOverlap:       intSetting(func(s *domain.Settings) *int { return &s.Chunking.Overlap }),
	KeyEmbedProvider:      stringSetting(func(s *domain.Settings) *string { return (*string)(&s.Embedding.Provider) }),
	KeyEmbedModel:         stringSetting(func(s *domain.Settings) *string { return &s.Embedding.Model }),
	KeyEmbedDimensions:    intSetting(func(s *domain.Settings) *int { return &s.Embedding.Dimensions }),
	KeyEmbedBaseURL:       stringSetting(func(s *domain.Settings) *string { return &s.Embedding.BaseURL }),
	KeyEmbedModelsDir:     stringSetting(func(s *domain.Settings) *string { return &s.Embedding.ModelsDir }),
	KeyEmbedCacheSize:     intSetting(func(s *domain.Settings) *int { return &s.Embedding.CacheSize }),
	KeyEmbedWorkers:       intSetting(func(s *domain.Settings) *int { return &s.Embedding.Workers }),
	KeyQueryTopK:          intSetting(func(s *domain.Settings) *int { return &s.TopK }),
	KeyWatchRatePerSecond: {kind: kindFloat, flt: func(s *domain.Settings) *float64 { return &s.WatchRatePerSecond }},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	home        string
}

// NewSettingsService creates a settings service whose defaults are rooted at home.
func NewSettingsService(configStore driven.ConfigStore, home string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		home:        home,
	}
}

// Get returns stored values layered over defaults.
func (s *SettingsService) Get() (domain.Settings, error) {
	settings := domain.DefaultSettings(s.home)
	for key, def := range settingsTable {
		if _, ok := s.configStore.Get(key); !ok {
			continue
		}
		switch def.kind {
		case kindString:
			*def.str(&settings) = s.configStore.GetString(key)
		case kindInt:
			*def.num(&settings) = s.configStore.GetInt(key)
		case kindFloat:
			*def.flt(&settings) = s.configStore.GetFloat(key)
		case kindBool:
			*def.flag(&settings) = s.configStore.GetBool(key)
		}
	}
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("%s: %w", s.configStore.Path(), err)
	}
	return settings, nil
}

// Set parses raw, checks the resulting settings and persists the value.
func (s *SettingsService) Set(key, raw string) error {
	def, ok := settingsTable[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidConfig, key)
	}

	settings, err := s.Get()
	if err != nil {
		// Allow fixing a broken file one key at a time.
		settings = domain.DefaultSettings(s.home)
	}

	var value any
	switch def.kind {
	case kindString:
		v := strings.TrimSpace(raw)
		*def.str(&settings) = v
		value = v
	case kindInt:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer, got %q", domain.ErrInvalidConfig, key, raw)
		}
		*def.num(&settings) = v
		value = v
	case kindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number, got %q", domain.ErrInvalidConfig, key, raw)
		}
		*def.flt(&settings) = v
		value = v
	case kindBool:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false, got %q", domain.ErrInvalidConfig, key, raw)
		}
		*def.flag(&settings) = v
		value = v
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Value returns the effective value of key as text.
func (s *SettingsService) Value(key string) (string, error) {
	def, ok := settingsTable[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown key %q", domain.ErrInvalidConfig, key)
	}
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	switch def.kind {
	case kindInt:
		return strconv.Itoa(*def.num(&settings)), nil
	case kindFloat:
		return strconv.FormatFloat(*def.flt(&settings), 'g', -1, 64), nil
	case kindBool:
		return strconv.FormatBool(*def.flag(&settings)), nil
	default:
		return *def.str(&settings), nil
	}
}

// Keys lists every recognised key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingsTable))
	for k := range settingsTable {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}
