package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Error kinds carried in the "error" field of a failed ToolResult.
const (
	ErrSessionNotFound   = "session_not_found"
	ErrNoDevice          = "no_device"
	ErrDeviceNotFound    = "device_not_found"
	ErrDriverUnavailable = "driver_unavailable"
	ErrDriverRequired    = "driver_required"
	ErrInvalidCoords     = "invalid_coordinates"
	ErrElementNotFound   = "element_not_found"
	ErrTimeout           = "timeout"
	ErrBridge            = "bridge_error"
	ErrDisabled          = "disabled"
	ErrUnknown           = "unknown_error"

	ErrInvalidArguments = "invalid_arguments"
	ErrUnknownSkill     = "unknown_skill"
	ErrNoCriteria       = "no_criteria"
	ErrNotSupported     = "not_supported"
	ErrCannotGetSize    = "cannot_get_size"
)

// ToolResult is the string-keyed outcome of a skill invocation.
//
// A result without a "success" key is successful. Failed results carry a short
// machine-readable "error" kind and usually a human readable "message".
type ToolResult map[string]any

// OK builds a successful result holding fields.
func OK(fields map[string]any) ToolResult {
	r := ToolResult{"success": true}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

// Fail builds a failed result of the given kind.
func Fail(kind, message string) ToolResult {
	r := ToolResult{"success": false, "error": kind}
	if message != "" {
		r["message"] = message
	}
	return r
}

// With returns r after setting key to value.
func (r ToolResult) With(key string, value any) ToolResult {
	r[key] = value
	return r
}

// Success reports whether the result represents a successful invocation.
func (r ToolResult) Success() bool {
	if r == nil {
		return true
	}
	v, ok := r["success"]
	if !ok {
		return true
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err != nil || parsed
	default:
		return true
	}
}

// ErrorKind returns the "error" field, or "" when absent.
func (r ToolResult) ErrorKind() string {
	if r == nil {
		return ""
	}
	switch v := r["error"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Message returns the human readable diagnostic, if any.
func (r ToolResult) Message() string {
	return r.String("message")
}

// SessionID returns the session id carried by the result.
func (r ToolResult) SessionID() string {
	return r.String("session_id")
}

// String returns the string value of key, or "".
func (r ToolResult) String(key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// Bool returns the boolean value of key.
func (r ToolResult) Bool(key string) bool {
	if r == nil {
		return false
	}
	b, _ := r[key].(bool)
	return b
}

// Int returns the integer value of key. JSON round trips turn integers into
// float64, both are accepted.
func (r ToolResult) Int(key string) (int, bool) {
	if r == nil {
		return 0, false
	}
	switch v := r[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

// JSON encodes the result for the conversation transcript.
func (r ToolResult) JSON() string {
	if r == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(r))
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q,"message":%q}`, ErrUnknown, err.Error())
	}
	return string(b)
}

// Clone returns a shallow copy of r.
func (r ToolResult) Clone() ToolResult {
	out := make(ToolResult, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
