// Package main provides the AppAgent command: an interactive agent that
// drives Android devices and a browser to complete tasks, with a headless
// mode for single tasks from a YAML run file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/tools/browser"
)

const (
	version      = "0.1.0"
	defaultModel = "qwen3.5-plus"
)

// Options holds command-line configuration
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	Vision       string
	ConfigFile   string
	SettingsFile string
	Task         string
	MaxRounds    int
	Verbose      bool
	Interactive  bool
	ShowVersion  bool
}

func main() {
	// The browser worker speaks NDJSON on stdio and must not parse the
	// agent's flags.
	if len(os.Args) > 1 && os.Args[1] == browser.WorkerSubcommand {
		if err := runWorker(os.Args[2:]); err != nil {
			log.Printf("browser worker: %v", err)
			os.Exit(1)
		}
		return
	}

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if opts.ShowVersion {
		fmt.Printf("AppAgent v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		cancel()
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags(args []string, output io.Writer) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("appagent", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.APIKey, "api-key", "", "API key for the reasoning service (or DASHSCOPE_API_KEY / DEEPSEEK_API_KEY / OPENAI_API_KEY)")
	fs.StringVar(&opts.BaseURL, "base-url", "", "OpenAI-compatible base URL (or OPENAI_BASE_URL)")
	fs.StringVar(&opts.Model, "model", defaultModel, "LLM model to use")
	fs.StringVar(&opts.Vision, "vision", "", "Screenshot forwarding: auto, on or off (default from settings)")
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to a run file (YAML) for headless execution")
	fs.StringVar(&opts.SettingsFile, "settings", "", "Path to the settings file (default ~/.appagent/config.json)")
	fs.StringVar(&opts.Task, "task", "", "Task to run headless (overrides the run file task)")
	fs.IntVar(&opts.MaxRounds, "max-rounds", 0, "Reasoning round budget per message (default from settings)")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Print state changes and highlighted step arguments and results")
	fs.BoolVar(&opts.Interactive, "interactive", false, "Keep the conversation open after a headless task")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(output, "AppAgent - Android and browser automation agent\n\n")
		fmt.Fprintf(output, "Usage: appagent [options]\n")
		fmt.Fprintf(output, "       appagent %s [worker options]\n\n", browser.WorkerSubcommand)
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(output, "\nExamples:\n")
		fmt.Fprintf(output, "  # Interactive session\n")
		fmt.Fprintf(output, "  appagent -model qwen3.5-plus\n\n")
		fmt.Fprintf(output, "  # Single task, then exit\n")
		fmt.Fprintf(output, "  appagent -task \"帮我在小红书发布一篇关于长沙旅游的帖子\"\n\n")
		fmt.Fprintf(output, "  # Run file, then answer follow-up questions\n")
		fmt.Fprintf(output, "  appagent -config run.yaml -interactive\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		fmt.Fprintf(output, "Configuration error: %v\n", err)
		return nil, err
	}
	return opts, nil
}

// validate checks that the configuration is valid
func (o *Options) validate() error {
	switch o.Vision {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("invalid vision mode %q (must be auto, on or off)", o.Vision)
	}
	if o.MaxRounds < 0 {
		return fmt.Errorf("max-rounds cannot be negative")
	}
	return nil
}

// headless reports whether a single task is requested.
func (o *Options) headless() bool {
	return o.ConfigFile != "" || o.Task != ""
}
