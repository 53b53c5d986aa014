package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")

		store, err := NewFileStore(configPath)
		require.NoError(t, err)
		assert.Equal(t, configPath, store.Path())
		assert.False(t, store.IsModified())
	})

	t.Run("default path under home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		store, err := NewFileStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".appagent", "config.json"), store.Path())
	})

	t.Run("loads existing json", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		raw, _ := json.Marshal(map[string]any{
			"version":  "1.0",
			"sections": map[string]any{"agent": map[string]any{"max_rounds": 12}},
		})
		require.NoError(t, os.WriteFile(configPath, raw, 0600))

		store, err := NewFileStore(configPath)
		require.NoError(t, err)

		data, err := store.GetSection("agent")
		require.NoError(t, err)
		assert.EqualValues(t, 12, data["max_rounds"])
	})

	t.Run("invalid json fails", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

		_, err := NewFileStore(configPath)
		assert.Error(t, err)
	})
}

func TestFileStore_YAMLRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "run.yaml")

	store, err := NewFileStore(configPath)
	require.NoError(t, err)

	require.NoError(t, store.SetSection("device", map[string]any{"adb_path": "/opt/adb", "driver_port": 9100}))
	assert.True(t, store.IsModified())
	require.NoError(t, store.Save())
	assert.False(t, store.IsModified())

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "adb_path: /opt/adb")

	reloaded, err := NewFileStore(configPath)
	require.NoError(t, err)
	data, err := reloaded.GetSection("device")
	require.NoError(t, err)
	assert.Equal(t, "/opt/adb", data["adb_path"])
	assert.EqualValues(t, 9100, data["driver_port"])
}

func TestFileStore_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	store, err := NewFileStore(configPath)
	require.NoError(t, err)
	require.NoError(t, store.SetSection("llm", map[string]any{"model": "qwen3.5-plus"}))
	require.NoError(t, store.Save())

	_, err = os.Stat(configPath + ".tmp")
	assert.True(t, os.IsNotExist(err))

	var doc fileDocument
	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "qwen3.5-plus", doc.Sections["llm"]["model"])
}

func TestFileStore_CopiesData(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	input := map[string]any{"key": "value"}
	require.NoError(t, store.SetSection("s", input))
	input["key"] = "mutated"

	got, err := store.GetSection("s")
	require.NoError(t, err)
	assert.Equal(t, "value", got["key"])

	got["key"] = "mutated again"
	again, _ := store.GetSection("s")
	assert.Equal(t, "value", again["key"])

	missing, err := store.GetSection("absent")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestFileStore_SetAll(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	require.NoError(t, store.SetSection("old", map[string]any{"a": 1}))
	require.NoError(t, store.SetAll(map[string]map[string]any{
		"new": {"b": 2},
	}))

	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "new")
}
