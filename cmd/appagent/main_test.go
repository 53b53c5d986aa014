package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/tools/browser"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	opts, err := parseFlags([]string{"-model", "deepseek-chat", "-vision", "off", "-max-rounds", "12", "-task", "打开设备", "-verbose"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "deepseek-chat", opts.Model)
	assert.Equal(t, "off", opts.Vision)
	assert.Equal(t, 12, opts.MaxRounds)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.headless())
	assert.Empty(t, out.String())

	opts, err = parseFlags(nil, &out)
	require.NoError(t, err)
	assert.Equal(t, defaultModel, opts.Model)
	assert.False(t, opts.headless())
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad vision", []string{"-vision", "maybe"}, "invalid vision mode"},
		{"negative rounds", []string{"-max-rounds", "-1"}, "cannot be negative"},
		{"unknown flag", []string{"-workspace", "."}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := parseFlags(tt.args, &out)
			require.Error(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}

	var out bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), browser.WorkerSubcommand)
}

func TestLoadRunConfig(t *testing.T) {
	cfg, err := loadRunConfig(&Options{})
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = loadRunConfig(&Options{Task: "打开设备"})
	require.NoError(t, err)
	assert.Equal(t, "打开设备", cfg.Task)
	assert.True(t, cfg.Artifacts.Enabled)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("task: 从文件\ntimeout: 1m\n"), 0600))

	cfg, err = loadRunConfig(&Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "从文件", cfg.Task)

	cfg, err = loadRunConfig(&Options{ConfigFile: path, Task: "覆盖"})
	require.NoError(t, err)
	assert.Equal(t, "覆盖", cfg.Task)

	require.NoError(t, os.WriteFile(path, []byte("timeout: 1m\n"), 0600))
	_, err = loadRunConfig(&Options{ConfigFile: path})
	assert.ErrorContains(t, err, "task description is required")
}

func TestWorkerCommand(t *testing.T) {
	custom := workerCommand(appconfig.BrowserSettings{WorkerCommand: []string{"node", "worker.js"}})
	assert.Equal(t, []string{"node", "worker.js"}, custom)

	cmd := workerCommand(appconfig.BrowserSettings{TimeoutMs: 45000, ViewportWidth: 390, ViewportHeight: 844})
	require.GreaterOrEqual(t, len(cmd), 2)
	assert.Equal(t, browser.WorkerSubcommand, cmd[1])

	opts, err := parseWorkerFlags(cmd[2:])
	require.NoError(t, err)
	assert.Equal(t, 45000.0, opts.Timeout)
	assert.Equal(t, 390, opts.ViewportWidth)
	assert.Equal(t, 844, opts.ViewportHeight)

	opts, err = parseWorkerFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, float64(browser.DefaultTimeout), opts.Timeout)
	assert.Equal(t, browser.DefaultViewportWidth, opts.ViewportWidth)
}

func TestProviderAndAgentOptions(t *testing.T) {
	creds := appconfig.LLMCredentials{Model: "qwen-vl-max", Vision: appconfig.VisionAuto}
	assert.Len(t, providerOptions(creds), 1)

	creds.BaseURL = appconfig.DashScopeBaseURL
	creds.Vision = appconfig.VisionOn
	assert.Len(t, providerOptions(creds), 3)

	settings := appconfig.AgentSettingsOrDefault()
	assert.Len(t, agentOptions(settings, 0, appconfig.VisionAuto, nil), 4)
	assert.Len(t, agentOptions(settings, 5, appconfig.VisionOff, nil), 5)
}
