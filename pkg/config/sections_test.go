package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSections_DefaultsValidate(t *testing.T) {
	for _, s := range defaultSections() {
		t.Run(s.ID(), func(t *testing.T) {
			assert.NoError(t, s.Validate())
			assert.NotEmpty(t, s.Title())
			assert.NotEmpty(t, s.Description())
		})
	}
}

func TestAgentSection(t *testing.T) {
	s := NewAgentSection()
	assert.Equal(t, AgentSettings{
		MaxRounds:         40,
		MobilePackage:     "com.xingin.xhs",
		SparseDumpChars:   3000,
		SparseDumpNodes:   5,
		EmptySearchStreak: 2,
		ScreenshotDir:     DefaultScreenshotDir,
	}, s.Settings())

	// JSON numbers arrive as float64
	require.NoError(t, s.SetData(map[string]any{"max_rounds": float64(8), "empty_search_streak": "3"}))
	assert.Equal(t, 8, s.Settings().MaxRounds)
	assert.Equal(t, 3, s.Settings().EmptySearchStreak)

	require.NoError(t, s.SetData(map[string]any{"max_rounds": -1}))
	assert.Error(t, s.Validate())

	s.Reset()
	assert.Equal(t, 40, s.Settings().MaxRounds)
}

func TestDeviceSection(t *testing.T) {
	s := NewDeviceSection()
	assert.True(t, s.Settings().RichDriver)
	assert.Equal(t, 9008, s.Settings().DriverPort)

	require.NoError(t, s.SetData(map[string]any{"rich_driver": "false", "driver_port": 70000}))
	assert.False(t, s.Settings().RichDriver)
	assert.Error(t, s.Validate())
}

func TestBrowserSection_SettingsCopy(t *testing.T) {
	s := NewBrowserSection()
	require.NoError(t, s.SetData(map[string]any{"worker_command": []any{"bin", "browser-worker"}, "headless": true}))

	got := s.Settings()
	got.WorkerCommand[0] = "changed"
	assert.Equal(t, "bin", s.Settings().WorkerCommand[0])
	assert.True(t, s.Settings().Headless)

	require.NoError(t, s.SetData(map[string]any{"viewport_width": 0}))
	assert.Error(t, s.Validate())
}

func TestSearchSection(t *testing.T) {
	s := NewSearchSection()
	assert.Equal(t, "q", s.Settings().QueryParam)
	assert.Equal(t, 15, s.Settings().TimeoutSec)

	require.NoError(t, s.SetData(map[string]any{
		"api_url":      "https://search.example.com",
		"query_param":  "",
		"extra_params": map[string]any{"count": 5},
	}))
	assert.Equal(t, "q", s.Settings().QueryParam, "empty query_param keeps default")
	assert.Equal(t, "5", s.Settings().ExtraParams["count"])
	assert.Equal(t, "https://search.example.com", s.Data()["api_url"])
}

func TestImageGenSection(t *testing.T) {
	s := NewImageGenSection()
	settings := s.Settings()
	assert.Equal(t, 512, settings.Width)
	assert.Equal(t, 768, settings.Height)
	assert.Equal(t, 25, settings.Steps)
	assert.Equal(t, 7.0, settings.CFGScale)
	assert.Equal(t, "DPM++ 2M Karras", settings.Sampler)

	require.NoError(t, s.SetData(map[string]any{"steps": 0}))
	assert.Error(t, s.Validate())
}

func TestEventsSection(t *testing.T) {
	s := NewEventsSection()
	assert.Empty(t, s.Settings().RedisAddr)
	assert.Equal(t, "appagent:events", s.Settings().RedisKey)

	require.NoError(t, s.SetData(map[string]any{"redis_addr": "localhost:6379", "redis_max_len": 10}))
	assert.Equal(t, "localhost:6379", s.Settings().RedisAddr)
	assert.Equal(t, 10, s.Settings().RedisMaxLen)
}
