package agent

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/heuristics"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm/tokenizer"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/google/uuid"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// Defaults for DefaultAgent.
const (
	DefaultMaxRounds     = 40
	DefaultMobilePackage = "com.xingin.xhs"
	DefaultScreenshotDir = "output/screenshots"

	bootWaitMs        = 3000
	bootDumpChars     = 20000
	bootSummaryRunes  = 4000
	bootScreenshotPNG = "xhs_boot.png"
)

var (
	// ErrNilProvider is returned by Chat when the agent has no provider.
	ErrNilProvider = errors.New("agent has no reasoning provider")

	// ErrNilRegistry is returned by Chat when the agent has no skill registry.
	ErrNilRegistry = errors.New("agent has no skill registry")
)

// DefaultAgent is the standard orchestration loop over an llm.Provider and
// a skills.Registry.
type DefaultAgent struct {
	provider llm.Provider
	registry *skills.Registry

	maxRounds          int
	customInstructions string
	systemPrompt       string
	visionOverride     *bool
	mobilePackage      string
	screenshotDir      string
	sparse             heuristics.SparseDump
	emptySearchStreak  int

	sink      EventSink
	tokenizer *tokenizer.Tokenizer
	newRunID  func() string
}

// AgentOption is a function that configures an agent
type AgentOption func(*DefaultAgent)

// WithMaxRounds sets the round budget R.
func WithMaxRounds(rounds int) AgentOption {
	return func(a *DefaultAgent) {
		if rounds > 0 {
			a.maxRounds = rounds
		}
	}
}

// WithCustomInstructions sets custom instructions for the agent
// These are user-provided instructions that will be added to the system prompt
func WithCustomInstructions(instructions string) AgentOption {
	return func(a *DefaultAgent) {
		a.customInstructions = instructions
	}
}

// WithSystemPrompt replaces the built-in system prompt entirely.
func WithSystemPrompt(prompt string) AgentOption {
	return func(a *DefaultAgent) {
		a.systemPrompt = prompt
	}
}

// WithVision forces image input on or off instead of guessing from the
// model name.
func WithVision(enabled bool) AgentOption {
	return func(a *DefaultAgent) {
		a.visionOverride = &enabled
	}
}

// WithEventSink forwards every event to sink in addition to the hooks.
func WithEventSink(sink EventSink) AgentOption {
	return func(a *DefaultAgent) {
		a.sink = sink
	}
}

// WithMobilePackage sets the app opened by the mobile bootstrap.
func WithMobilePackage(pkg string) AgentOption {
	return func(a *DefaultAgent) {
		if pkg != "" {
			a.mobilePackage = pkg
		}
	}
}

// WithScreenshotDir sets where bootstrap screenshots are written.
func WithScreenshotDir(dir string) AgentOption {
	return func(a *DefaultAgent) {
		if dir != "" {
			a.screenshotDir = dir
		}
	}
}

// WithGameModeThresholds tunes game-mode detection. Zero values keep the
// defaults.
func WithGameModeThresholds(minDumpChars, minDumpNodes, emptySearchStreak int) AgentOption {
	return func(a *DefaultAgent) {
		if minDumpChars > 0 {
			a.sparse.MinChars = minDumpChars
		}
		if minDumpNodes > 0 {
			a.sparse.MinNodes = minDumpNodes
		}
		if emptySearchStreak > 0 {
			a.emptySearchStreak = emptySearchStreak
		}
	}
}

// WithTokenizer sets the tokenizer used for transcript estimates.
func WithTokenizer(tok *tokenizer.Tokenizer) AgentOption {
	return func(a *DefaultAgent) {
		a.tokenizer = tok
	}
}

// NewDefaultAgent creates a new DefaultAgent with the given provider,
// registry and options.
func NewDefaultAgent(provider llm.Provider, registry *skills.Registry, opts ...AgentOption) *DefaultAgent {
	a := &DefaultAgent{
		provider:          provider,
		registry:          registry,
		maxRounds:         DefaultMaxRounds,
		mobilePackage:     DefaultMobilePackage,
		screenshotDir:     DefaultScreenshotDir,
		sparse:            heuristics.DefaultSparseDump(),
		emptySearchStreak: heuristics.DefaultEmptySearchStreak,
		newRunID:          uuid.NewString,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.tokenizer == nil {
		// Fall back to the byte estimate if the encoding cannot be loaded
		tok, err := tokenizer.New()
		if err != nil {
			agentDebugLog.Debugf("tokenizer unavailable, using estimate: %v", err)
		} else {
			a.tokenizer = tok
		}
	}

	return a
}

// Registry returns the skill registry the agent dispatches to.
func (a *DefaultAgent) Registry() *skills.Registry {
	return a.registry
}

// SupportsVision reports whether screenshots are shown to the model.
func (a *DefaultAgent) SupportsVision() bool {
	if a.visionOverride != nil {
		return *a.visionOverride
	}
	if a.provider == nil {
		return false
	}
	if info := a.provider.GetModelInfo(); info != nil && info.SupportsVision {
		return true
	}
	return heuristics.SupportsVision(a.provider.GetModel(), nil)
}

// Chat runs one user turn. See Agent.
func (a *DefaultAgent) Chat(ctx context.Context, message string, history []types.Message, hooks Hooks) (*ChatResult, error) {
	if a.provider == nil {
		return nil, ErrNilProvider
	}
	if a.registry == nil {
		return nil, ErrNilRegistry
	}

	release, err := a.registry.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	prevPolicy := a.registry.Policy()
	defer a.registry.SetPolicy(prevPolicy)

	r := a.newRun(ctx, hooks)
	r.seed(message, history)
	agentDebugLog.Infof("run %s started (vision=%v, max rounds %d)", r.id, r.vision, a.maxRounds)

	res := r.runAgentLoop()
	agentDebugLog.Infof("run %s finished in state %s after %d steps", r.id, res.State, r.step)
	return res, nil
}

func (a *DefaultAgent) bootScreenshotPath() string {
	return filepath.Join(a.screenshotDir, bootScreenshotPNG)
}
