// Package skills maps skill names to their implementations and dispatches
// calls requested by the reasoning service.
//
// The Registry owns the active-session pointers for the browser and device
// surfaces. Calls to session-scoped skills that omit session_id get the
// active id of their surface injected before the implementation runs.
package skills

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

var skillsLog *logging.Logger

func init() {
	var err error
	skillsLog, err = logging.NewLogger("skills")
	if err != nil {
		skillsLog.Warnf("Failed to initialize skills logger, using stderr fallback: %v", err)
	}
}

var (
	// ErrRegistryBusy is returned by Acquire while another chat holds the registry.
	ErrRegistryBusy = errors.New("skill registry is in use by another chat")

	// ErrDuplicateSkill is returned when a name is registered twice.
	ErrDuplicateSkill = errors.New("skill already registered")
)

const mobileOnlyReason = "this task must run on Android tools"

// Fatal is implemented by errors that must abort the current chat round
// instead of being folded into a ToolResult.
type Fatal interface {
	Fatal() bool
}

// IsFatal reports whether err, or an error it wraps, is fatal.
func IsFatal(err error) bool {
	var f Fatal
	return errors.As(err, &f) && f.Fatal()
}

// Registry is the skill table and dispatcher.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]tools.Tool
	order  []string
	policy *SurfacePolicy
	active map[SessionKind]string

	// base is the policy SetMobileOnly(true) narrowed, restored when the
	// restriction is lifted.
	base       *SurfacePolicy
	mobileOnly bool

	inUse sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy installs a surface policy.
func WithPolicy(p *SurfacePolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithTools registers the given tools, panicking on duplicates.
func WithTools(ts ...tools.Tool) Option {
	return func(r *Registry) {
		r.MustRegister(ts...)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]tools.Tool),
		active: make(map[SessionKind]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool under its name.
func (r *Registry) Register(t tools.Tool) error {
	if t == nil {
		return errors.New("nil tool")
	}
	name := t.Name()
	if name == "" {
		return errors.New("tool has an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSkill, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers every tool and panics on the first failure.
func (r *Registry) MustRegister(ts ...tools.Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Tool returns the tool registered under name.
func (r *Registry) Tool(name string) (tools.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Tool(name)
	return ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Catalog returns the tool specs presented to the reasoning service, in
// registration order. Every entry dispatches back to the same tool.
func (r *Registry) Catalog() []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return specs
}

// SetPolicy replaces the surface policy. nil allows everything.
func (r *Registry) SetPolicy(p *SurfacePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = p
	r.base = nil
	r.mobileOnly = false
}

// Policy returns the current surface policy.
func (r *Registry) Policy() *SurfacePolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetMobileOnly additionally denies the browser surface on top of the
// current policy, or lifts that restriction and restores the policy it
// narrowed.
func (r *Registry) SetMobileOnly(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on == r.mobileOnly {
		return
	}
	if !on {
		r.policy, r.base, r.mobileOnly = r.base, nil, false
		return
	}
	narrowed, err := r.policy.Deny(mobileOnlyReason, MobileOnlyPatterns...)
	if err != nil {
		panic(err)
	}
	r.policy, r.base, r.mobileOnly = narrowed, r.policy, true
}

// ActiveSession returns the active session id of kind, or "".
func (r *Registry) ActiveSession(kind SessionKind) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[kind]
}

// SetActiveSession points kind at id.
func (r *Registry) SetActiveSession(kind SessionKind, id string) {
	if kind == KindNone {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		delete(r.active, kind)
		return
	}
	r.active[kind] = id
}

// ClearActiveSession forgets the active session of kind.
func (r *Registry) ClearActiveSession(kind SessionKind) {
	r.SetActiveSession(kind, "")
}

// Acquire reserves the registry for one chat. The returned release func must
// be called when the chat returns.
func (r *Registry) Acquire() (release func(), err error) {
	if !r.inUse.TryLock() {
		return nil, ErrRegistryBusy
	}
	var once sync.Once
	return func() { once.Do(r.inUse.Unlock) }, nil
}

// PrepareArgs returns args with the active session injected when needed.
func (r *Registry) PrepareArgs(name string, args map[string]interface{}) map[string]interface{} {
	if args == nil {
		args = map[string]interface{}{}
	}
	kind := KindOf(name)
	if kind == KindNone {
		return args
	}
	out, _ := InjectSession(name, args, r.ActiveSession(kind))
	return out
}

// Dispatch runs the named skill.
//
// Skill failures are returned as failed ToolResults with a nil error. The
// error is non-nil only for fatal conditions (see IsFatal), in which case the
// result describes the failure as well.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) (types.ToolResult, error) {
	t, ok := r.Tool(name)
	if !ok {
		return types.Fail(types.ErrUnknownSkill, fmt.Sprintf("unknown skill: %s", name)), nil
	}

	if allowed, pattern := r.Policy().Allows(name); !allowed {
		skillsLog.Debugf("policy rejected %s (pattern %s)", name, pattern)
		return types.Fail(types.ErrDisabled, r.Policy().ReasonFor(pattern)).With("skill", name), nil
	}

	args = r.PrepareArgs(name, args)
	if SessionScoped(name) && !hasSessionID(args) {
		return types.Fail(types.ErrSessionNotFound,
			fmt.Sprintf("%s needs a session_id and no %s session is active", name, KindOf(name))), nil
	}

	result, err := r.invoke(ctx, t, args)
	if err != nil {
		if IsFatal(err) {
			skillsLog.Errorf("fatal error from %s: %v", name, err)
			r.ClearActiveSession(KindOf(name))
			return types.Fail(types.ErrUnknown, err.Error()), err
		}
		skillsLog.Warnf("skill %s failed: %v", name, err)
		return types.Fail(types.ErrUnknown, err.Error()), nil
	}
	if result == nil {
		result = types.ToolResult{}
	}

	r.track(name, args, result)
	return result, nil
}

func (r *Registry) invoke(ctx context.Context, t tools.Tool, args map[string]interface{}) (result types.ToolResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("panic in %s: %v", t.Name(), p)
		}
	}()
	return t.Execute(ctx, args)
}

// track keeps the active-session pointers in step with the outcome.
func (r *Registry) track(name string, args map[string]interface{}, result types.ToolResult) {
	kind := KindOf(name)
	if kind == KindNone {
		return
	}
	sent, _ := args["session_id"].(string)

	switch {
	case IsStart(name) && result.Success() && result.SessionID() != "":
		r.SetActiveSession(kind, result.SessionID())
	case IsStop(name) && result.Success():
		if sent == "" || sent == r.ActiveSession(kind) {
			r.ClearActiveSession(kind)
		}
	case result.ErrorKind() == types.ErrSessionNotFound && sent != "" && sent == r.ActiveSession(kind):
		r.ClearActiveSession(kind)
	}
}
