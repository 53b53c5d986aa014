package browser

import (
	"encoding/json"
	"fmt"
)

// Op names a browser operation understood by the worker.
type Op string

const (
	OpStartSession      Op = "start_session"
	OpCloseSession      Op = "close_session"
	OpOpenURL           Op = "open_url"
	OpFillSelector      Op = "fill_selector"
	OpClickSelector     Op = "click_selector"
	OpGetVisibleInputs  Op = "get_visible_inputs"
	OpFillByPlaceholder Op = "fill_by_placeholder"
	OpClickByText       Op = "click_by_text"
	OpCheckAgreement    Op = "check_agreement"
	OpGetText           Op = "get_text"
	OpGetPageSource     Op = "get_page_source"
	OpScreenshot        Op = "screenshot"
	OpPing              Op = "ping"
)

// Request is one line on the worker's stdin. Positional Args are matched to
// parameter names in the order given by paramOrder; Kwargs win over Args.
//
// A line holding the JSON literal null asks the worker to exit.
type Request struct {
	ID     uint64                     `json:"id"`
	Op     Op                         `json:"op"`
	Args   []json.RawMessage          `json:"args,omitempty"`
	Kwargs map[string]json.RawMessage `json:"kwargs,omitempty"`
}

// Response is one line on the worker's stdout answering the request with the
// same ID. Exactly one of Value and Error is meaningful, selected by OK.
type Response struct {
	ID    uint64                 `json:"id"`
	OK    bool                   `json:"ok"`
	Value map[string]interface{} `json:"value,omitempty"`
	Error *WorkerError           `json:"error,omitempty"`
}

// WorkerError is an error raised inside the worker, degraded to its kind
// and message so it survives the process boundary.
type WorkerError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// sentinel is the termination request.
var sentinel = []byte("null")

// Typed parameters, one per operation.

type StartParams struct {
	Headless bool `json:"headless"`
}

type SessionParams struct {
	SessionID string `json:"session_id"`
}

type OpenParams struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	WaitMs    int    `json:"wait_ms"`
}

type SelectorParams struct {
	SessionID string `json:"session_id"`
	Selector  string `json:"selector"`
	Text      string `json:"text,omitempty"`
}

type PlaceholderParams struct {
	SessionID   string `json:"session_id"`
	Placeholder string `json:"placeholder_substring"`
	Text        string `json:"text"`
}

type TextParams struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text_substring"`
}

type GetTextParams struct {
	SessionID string `json:"session_id"`
	Selector  string `json:"selector"`
	MaxChars  int    `json:"max_chars"`
}

type PageSourceParams struct {
	SessionID string `json:"session_id"`
	MaxChars  int    `json:"max_chars"`
	Clean     bool   `json:"clean"`
}

type ScreenshotParams struct {
	SessionID string `json:"session_id"`
	Path      string `json:"screenshot_path"`
	FullPage  bool   `json:"full_page"`
}

// paramOrder names the positional arguments of each operation.
var paramOrder = map[Op][]string{
	OpStartSession:      {"headless"},
	OpCloseSession:      {"session_id"},
	OpOpenURL:           {"session_id", "url", "wait_ms"},
	OpFillSelector:      {"session_id", "selector", "text"},
	OpClickSelector:     {"session_id", "selector"},
	OpGetVisibleInputs:  {"session_id"},
	OpFillByPlaceholder: {"session_id", "placeholder_substring", "text"},
	OpClickByText:       {"session_id", "text_substring"},
	OpCheckAgreement:    {"session_id"},
	OpGetText:           {"session_id", "selector", "max_chars"},
	OpGetPageSource:     {"session_id", "max_chars", "clean"},
	OpScreenshot:        {"session_id", "screenshot_path", "full_page"},
	OpPing:              {},
}

// NewRequest builds a request whose keyword arguments are the JSON fields of
// params.
func NewRequest(id uint64, op Op, params interface{}) (*Request, error) {
	req := &Request{ID: id, Op: op}
	if params == nil {
		return req, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", op, err)
	}
	if err := json.Unmarshal(raw, &req.Kwargs); err != nil {
		return nil, fmt.Errorf("%s params must encode to an object: %w", op, err)
	}
	return req, nil
}

// Decode merges positional and keyword arguments into dst.
func (r *Request) Decode(dst interface{}) error {
	names, ok := paramOrder[r.Op]
	if !ok {
		return fmt.Errorf("unknown op %q", r.Op)
	}
	if len(r.Args) > len(names) {
		return fmt.Errorf("%s takes %d positional arguments, got %d", r.Op, len(names), len(r.Args))
	}

	merged := make(map[string]json.RawMessage, len(names))
	for i, arg := range r.Args {
		merged[names[i]] = arg
	}
	for k, v := range r.Kwargs {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s arguments: %w", r.Op, err)
	}
	return nil
}
