package skills

import (
	"fmt"

	"github.com/gobwas/glob"
)

// MobileOnlyPatterns disables the desktop browser surface.
var MobileOnlyPatterns = []string{"browser_*"}

type rule struct {
	pattern string
	glob    glob.Glob
	reason  string
}

// SurfacePolicy gates skills by name. A skill matching any denied pattern is
// rejected before it reaches its implementation. When allowed patterns are
// present a skill must also match one of them.
type SurfacePolicy struct {
	allowed []rule
	denied  []rule
	reason  string
}

// NewSurfacePolicy compiles the allowed and denied glob patterns.
func NewSurfacePolicy(allowed, denied []string) (*SurfacePolicy, error) {
	p := &SurfacePolicy{}
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		p.allowed = append(p.allowed, rule{pattern: pattern, glob: g})
	}
	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		p.denied = append(p.denied, rule{pattern: pattern, glob: g})
	}
	return p, nil
}

// MustSurfacePolicy is NewSurfacePolicy for patterns known at compile time.
func MustSurfacePolicy(allowed, denied []string) *SurfacePolicy {
	p, err := NewSurfacePolicy(allowed, denied)
	if err != nil {
		panic(err)
	}
	return p
}

// WithReason sets the message attached to rejected calls.
func (p *SurfacePolicy) WithReason(reason string) *SurfacePolicy {
	p.reason = reason
	return p
}

// Deny returns a copy of p that also rejects names matching patterns.
// Rejections by the new patterns carry reason; the rules of p keep theirs.
// A nil p starts from an empty policy.
func (p *SurfacePolicy) Deny(reason string, patterns ...string) (*SurfacePolicy, error) {
	out := &SurfacePolicy{}
	if p != nil {
		out.allowed = append(out.allowed, p.allowed...)
		out.denied = append(out.denied, p.denied...)
		out.reason = p.reason
	}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		out.denied = append(out.denied, rule{pattern: pattern, glob: g, reason: reason})
	}
	return out, nil
}

// Reason returns the rejection message.
func (p *SurfacePolicy) Reason() string {
	if p == nil || p.reason == "" {
		return "this skill is disabled for the current task"
	}
	return p.reason
}

// ReasonFor returns the rejection message for the pattern Allows reported.
func (p *SurfacePolicy) ReasonFor(pattern string) string {
	if p != nil {
		for _, r := range p.denied {
			if r.pattern == pattern && r.reason != "" {
				return r.reason
			}
		}
	}
	return p.Reason()
}

// Allows reports whether name may run. It also returns the pattern that
// rejected the skill, if any.
func (p *SurfacePolicy) Allows(name string) (bool, string) {
	if p == nil {
		return true, ""
	}
	for _, r := range p.denied {
		if r.glob.Match(name) {
			return false, r.pattern
		}
	}
	if len(p.allowed) == 0 {
		return true, ""
	}
	for _, r := range p.allowed {
		if r.glob.Match(name) {
			return true, ""
		}
	}
	return false, "!allowed"
}
