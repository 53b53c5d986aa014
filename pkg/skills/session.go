package skills

import "strings"

// SessionKind names the automation surface a skill operates on.
type SessionKind string

const (
	KindNone    SessionKind = ""
	KindBrowser SessionKind = "browser"
	KindAndroid SessionKind = "android"
)

const (
	browserPrefix = "browser_"
	androidPrefix = "android_"
)

// skills of a surface that do not take a session id
var sessionless = map[string]bool{
	"browser_start":        true,
	"browser_close":        true,
	"android_start":        true,
	"android_list_devices": true,
	"android_stop":         true,
}

// KindOf classifies a skill by its name prefix.
func KindOf(name string) SessionKind {
	switch {
	case strings.HasPrefix(name, browserPrefix):
		return KindBrowser
	case strings.HasPrefix(name, androidPrefix):
		return KindAndroid
	default:
		return KindNone
	}
}

// SessionScoped reports whether name needs an injected session id when the
// caller omitted one.
func SessionScoped(name string) bool {
	return KindOf(name) != KindNone && !sessionless[name]
}

// IsStart reports whether name opens a session of its kind.
func IsStart(name string) bool {
	return name == "browser_start" || name == "android_start"
}

// IsStop reports whether name destroys the session it is given.
func IsStop(name string) bool {
	return name == "browser_close" || name == "android_stop"
}

// InjectSession returns args with session_id set to active when name is
// session scoped and args has no usable session id. args is not modified.
func InjectSession(name string, args map[string]interface{}, active string) (map[string]interface{}, bool) {
	if active == "" || !SessionScoped(name) || hasSessionID(args) {
		return args, false
	}
	out := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out["session_id"] = active
	return out, true
}

func hasSessionID(args map[string]interface{}) bool {
	v, ok := args["session_id"]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}
