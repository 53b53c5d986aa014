package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	appconfig "github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/executor/headless"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/tools/android"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/tools/browser"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/tools/imagegen"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/tools/search"
)

// skillStack owns the registry and the resources behind its skills.
type skillStack struct {
	registry *skills.Registry
	devices  *android.Registry
	browser  *browser.Client
}

func (s *skillStack) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			appLog.Warnf("Failed to stop browser worker: %v", err)
		}
	}
	if s.devices != nil {
		s.devices.Close()
	}
}

// buildSkills registers every skill family with settings from the global
// configuration.
func buildSkills(runCfg *headless.RunConfig) (*skillStack, error) {
	stack := &skillStack{registry: skills.NewRegistry()}

	if runCfg != nil {
		policy, err := runCfg.Policy()
		if err != nil {
			return nil, err
		}
		stack.registry.SetPolicy(policy)
	}

	agentSettings := appconfig.AgentSettingsOrDefault()

	// Android devices
	dev := deviceSettings()
	runner := android.NewADBRunner(dev.ADBPath, time.Duration(dev.CommandTimeoutSec)*time.Second)
	var androidOpts []android.Option
	if dev.RichDriver {
		androidOpts = append(androidOpts, android.WithDriverFactory(android.NewU2Factory(runner, dev.DriverPort, nil)))
	}
	stack.devices = android.NewRegistry(runner, androidOpts...)

	// Browser worker, started on the first browser skill call
	bs := browserSettings()
	registry := stack.registry
	stack.browser = browser.NewClient(
		browser.ProcessDialer(workerCommand(bs), appLog.Writer()),
		browser.WithOnRespawn(func() {
			registry.ClearActiveSession(skills.KindBrowser)
		}),
	)

	families := [][]tools.Tool{
		android.Tools(stack.devices, android.ToolOptions{ScreenshotDir: agentSettings.ScreenshotDir}),
		browser.Tools(stack.browser, browser.ToolOptions{Headless: bs.Headless, ScreenshotDir: agentSettings.ScreenshotDir}),
		{search.Tool(search.NewClient(searchSettings(), nil))},
		{imagegen.Tool(imagegen.NewClient(imageGenSettings(), nil))},
	}
	for _, family := range families {
		for _, tool := range family {
			if err := registry.Register(tool); err != nil {
				stack.Close()
				return nil, fmt.Errorf("failed to register skill: %w", err)
			}
		}
	}
	return stack, nil
}

// workerCommand returns the configured worker command, or this executable
// with the browser-worker subcommand and the page options as flags.
func workerCommand(bs appconfig.BrowserSettings) []string {
	if len(bs.WorkerCommand) > 0 {
		return append([]string(nil), bs.WorkerCommand...)
	}
	cmd := browser.DefaultCommand()
	if bs.TimeoutMs > 0 {
		cmd = append(cmd, "-timeout-ms", strconv.FormatFloat(bs.TimeoutMs, 'f', -1, 64))
	}
	if bs.ViewportWidth > 0 {
		cmd = append(cmd, "-viewport-width", strconv.Itoa(bs.ViewportWidth))
	}
	if bs.ViewportHeight > 0 {
		cmd = append(cmd, "-viewport-height", strconv.Itoa(bs.ViewportHeight))
	}
	return cmd
}

// parseWorkerFlags reads the options workerCommand passes.
func parseWorkerFlags(args []string) (browser.ManagerOptions, error) {
	var opts browser.ManagerOptions
	fs := flag.NewFlagSet(browser.WorkerSubcommand, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Float64Var(&opts.Timeout, "timeout-ms", browser.DefaultTimeout, "Default page timeout in milliseconds")
	fs.IntVar(&opts.ViewportWidth, "viewport-width", browser.DefaultViewportWidth, "Viewport width")
	fs.IntVar(&opts.ViewportHeight, "viewport-height", browser.DefaultViewportHeight, "Viewport height")
	fs.BoolVar(&opts.SkipInstall, "skip-install", false, "Do not download the Playwright driver")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// runWorker serves browser operations on stdin/stdout until the supervisor
// closes the pipe.
func runWorker(args []string) error {
	opts, err := parseWorkerFlags(args)
	if err != nil {
		return err
	}
	appLog.Infof("Browser worker started: pid=%d timeout=%.0fms viewport=%dx%d",
		os.Getpid(), opts.Timeout, opts.ViewportWidth, opts.ViewportHeight)
	return browser.ServeWorker(context.Background(), os.Stdin, os.Stdout, browser.NewManager(opts))
}

func deviceSettings() appconfig.DeviceSettings {
	if s := appconfig.GetDevice(); s != nil {
		return s.Settings()
	}
	return appconfig.NewDeviceSection().Settings()
}

func browserSettings() appconfig.BrowserSettings {
	if s := appconfig.GetBrowser(); s != nil {
		return s.Settings()
	}
	return appconfig.NewBrowserSection().Settings()
}

func searchSettings() appconfig.SearchSettings {
	if s := appconfig.GetSearch(); s != nil {
		return s.Settings()
	}
	return appconfig.NewSearchSection().Settings()
}

func imageGenSettings() appconfig.ImageGenSettings {
	if s := appconfig.GetImageGen(); s != nil {
		return s.Settings()
	}
	return appconfig.NewImageGenSection().Settings()
}
