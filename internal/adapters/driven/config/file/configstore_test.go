package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, ConfigFile), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_HomeEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFile), store.Path())
}

func TestDefaultHome(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultHome()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kbase"), dir)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("chunking.size", 800))
	require.NoError(t, store.Set("watch.rate_per_second", 1.5))
	require.NoError(t, store.Set("storage.reembed_on_model_change", true))

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 800, store.GetInt("chunking.size"))
	assert.InDelta(t, 1.5, store.GetFloat("watch.rate_per_second"), 1e-9)
	assert.InDelta(t, 800.0, store.GetFloat("chunking.size"), 1e-9)
	assert.True(t, store.GetBool("storage.reembed_on_model_change"))

	// Wrong types and missing keys yield zero values.
	assert.Empty(t, store.GetString("chunking.size"))
	assert.Zero(t, store.GetInt("embedding.provider"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("embedding.provider"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("chunking.size", 700))
	require.NoError(t, store.Set("chunking.strategy", "window"))
	require.NoError(t, store.Set("query.top_k", 5))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[chunking]")
	assert.NotContains(t, string(raw), `"chunking.size"`)

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 700, reopened.GetInt("chunking.size"))
	assert.Equal(t, "window", reopened.GetString("chunking.strategy"))
	assert.Equal(t, 5, reopened.GetInt("query.top_k"))
	assert.Equal(t, []string{"chunking.size", "chunking.strategy", "query.top_k"}, reopened.Keys())
}

func TestConfigStore_LoadHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[storage]
backend = "sqlite"

[embedding]
provider = "local"
cache_size = 0
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", store.GetString("storage.backend"))
	assert.Equal(t, "local", store.GetString("embedding.provider"))
	v, ok := store.Get("embedding.cache_size")
	assert.True(t, ok)
	assert.EqualValues(t, 0, v)
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte("[broken"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("query.top_k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("query.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("query.top_k")
	assert.True(t, ok)
}

func TestConfigStore_FailedWriteKeepsFile(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("query.top_k", 4))

	// A directory in the temp file's place makes the next write fail.
	require.NoError(t, os.Mkdir(store.Path()+".tmp", 0700))
	assert.Error(t, store.Set("query.top_k", 8))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.GetInt("query.top_k"))
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{"a.b": 1, "a.c": "x", "d": true})
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": "x"},
		"d": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b": 1, "a.c": "x", "d": true}, flattenMap(nested, ""))
}
