package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	appconfig "github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/eventsink"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/executor/cli"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/executor/headless"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm/openai"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
)

var appLog *logging.Logger

func init() {
	var err error
	appLog, err = logging.NewLogger("appagent")
	if err != nil {
		appLog.Warnf("Failed to initialize appagent logger, using stderr fallback: %v", err)
	}
}

// run executes the main application logic
func run(ctx context.Context, opts *Options) error {
	if err := appconfig.Initialize(opts.SettingsFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	runCfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}
	if runCfg != nil {
		if applyErr := runCfg.Apply(appconfig.Global()); applyErr != nil {
			return fmt.Errorf("invalid run file: %w", applyErr)
		}
	}

	creds, err := appconfig.ResolveLLM(opts.Model, opts.BaseURL, opts.APIKey, defaultModel)
	if err != nil {
		return err
	}
	if opts.Vision != "" {
		creds.Vision = opts.Vision
	}

	provider, err := openai.NewProvider(creds.APIKey, providerOptions(creds)...)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	sink := eventsink.Open(ctx, eventSettings())
	defer sink.Close()

	stack, err := buildSkills(runCfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	agentSettings := appconfig.AgentSettingsOrDefault()
	ag := agent.NewDefaultAgent(provider, stack.registry,
		agentOptions(agentSettings, opts.MaxRounds, creds.Vision, sink)...)

	tty := isatty.IsTerminal(os.Stdout.Fd())
	formatter := cli.DefaultFormatter
	if !tty {
		formatter = "noop"
	}
	renderer := cli.NewRenderer(os.Stdout,
		cli.WithVerbose(opts.Verbose),
		cli.WithAnimation(tty),
		cli.WithFormatter(formatter),
	)

	appLog.Infof("Starting: provider=%s model=%s base_url=%s vision=%s skills=%d sinks=%d",
		creds.Provider, creds.Model, provider.GetBaseURL(), creds.Vision, len(stack.registry.Names()), sink.Len())

	if runCfg == nil {
		renderer.Header(fmt.Sprintf("AppAgent v%s", version),
			fmt.Sprintf("Model: %s (%s)", creds.Model, creds.Provider),
			fmt.Sprintf("Vision: %v", ag.SupportsVision()))
		return cli.NewExecutor(ag, cli.WithRenderer(renderer)).Run(ctx)
	}

	executor, err := headless.NewExecutor(ag, runCfg, headless.WithHooks(renderer.Hooks()))
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	stop := renderer.Busy("执行中...")
	res, runErr := executor.Run(ctx)
	stop()
	renderer.Result(res)
	if dir := executor.ArtifactDir(); runCfg.Artifacts.Enabled && dir != "" {
		fmt.Printf("Artifacts: %s\n", dir)
	}

	if opts.Interactive && res != nil && (runErr == nil || errors.Is(runErr, headless.ErrRunFailed)) {
		return cli.NewExecutor(ag, cli.WithRenderer(renderer), cli.WithHistory(res.Messages)).Run(ctx)
	}
	return runErr
}

// loadRunConfig loads the run file or builds one from -task. It returns nil
// for an interactive session.
func loadRunConfig(opts *Options) (*headless.RunConfig, error) {
	if !opts.headless() {
		return nil, nil
	}

	cfg := headless.DefaultRunConfig()
	if opts.ConfigFile != "" {
		var err error
		cfg, err = headless.LoadRunConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
	}
	if opts.Task != "" {
		cfg.Task = opts.Task
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// providerOptions maps resolved credentials to provider options.
func providerOptions(creds appconfig.LLMCredentials) []openai.ProviderOption {
	opts := []openai.ProviderOption{openai.WithModel(creds.Model)}
	if creds.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(creds.BaseURL))
	}
	switch creds.Vision {
	case appconfig.VisionOn:
		opts = append(opts, openai.WithVision(true))
	case appconfig.VisionOff:
		opts = append(opts, openai.WithVision(false))
	}
	return opts
}

// agentOptions maps settings and flags to agent options. A positive
// maxRounds flag wins over the settings file.
func agentOptions(s appconfig.AgentSettings, maxRounds int, vision string, sink agent.EventSink) []agent.AgentOption {
	rounds := s.MaxRounds
	if maxRounds > 0 {
		rounds = maxRounds
	}

	opts := []agent.AgentOption{
		agent.WithMaxRounds(rounds),
		agent.WithMobilePackage(s.MobilePackage),
		agent.WithScreenshotDir(s.ScreenshotDir),
		agent.WithGameModeThresholds(s.SparseDumpChars, s.SparseDumpNodes, s.EmptySearchStreak),
	}
	if sink != nil {
		opts = append(opts, agent.WithEventSink(sink))
	}
	switch vision {
	case appconfig.VisionOn:
		opts = append(opts, agent.WithVision(true))
	case appconfig.VisionOff:
		opts = append(opts, agent.WithVision(false))
	}
	return opts
}

func eventSettings() appconfig.EventSettings {
	if s := appconfig.GetEvents(); s != nil {
		return s.Settings()
	}
	return appconfig.NewEventsSection().Settings()
}
