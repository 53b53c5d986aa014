package browser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Backend owns the live browser inside the worker process. Failures the
// model should see are returned as failed results; a returned error is an
// unexpected fault and crosses the channel as a WorkerError.
type Backend interface {
	StartSession(p StartParams) (types.ToolResult, error)
	CloseSession(p SessionParams) (types.ToolResult, error)
	OpenURL(p OpenParams) (types.ToolResult, error)
	FillSelector(p SelectorParams) (types.ToolResult, error)
	ClickSelector(p SelectorParams) (types.ToolResult, error)
	VisibleInputs(p SessionParams) (types.ToolResult, error)
	FillByPlaceholder(p PlaceholderParams) (types.ToolResult, error)
	ClickByText(p TextParams) (types.ToolResult, error)
	CheckAgreement(p SessionParams) (types.ToolResult, error)
	GetText(p GetTextParams) (types.ToolResult, error)
	PageSource(p PageSourceParams) (types.ToolResult, error)
	Screenshot(p ScreenshotParams) (types.ToolResult, error)

	// Shutdown releases the browser when the worker exits.
	Shutdown() error
}

type handler func(b Backend, req *Request) (types.ToolResult, error)

// typed adapts a Backend method to the dispatch table.
func typed[P any](fn func(Backend, P) (types.ToolResult, error)) handler {
	return func(b Backend, req *Request) (types.ToolResult, error) {
		var p P
		if err := req.Decode(&p); err != nil {
			return nil, &WorkerError{Kind: "TypeError", Message: err.Error()}
		}
		return fn(b, p)
	}
}

var dispatch = map[Op]handler{
	OpStartSession:      typed(Backend.StartSession),
	OpCloseSession:      typed(Backend.CloseSession),
	OpOpenURL:           typed(Backend.OpenURL),
	OpFillSelector:      typed(Backend.FillSelector),
	OpClickSelector:     typed(Backend.ClickSelector),
	OpGetVisibleInputs:  typed(Backend.VisibleInputs),
	OpFillByPlaceholder: typed(Backend.FillByPlaceholder),
	OpClickByText:       typed(Backend.ClickByText),
	OpCheckAgreement:    typed(Backend.CheckAgreement),
	OpGetText:           typed(Backend.GetText),
	OpGetPageSource:     typed(Backend.PageSource),
	OpScreenshot:        typed(Backend.Screenshot),
	OpPing: func(Backend, *Request) (types.ToolResult, error) {
		return types.OK(map[string]any{"pong": true}), nil
	},
}

// maxLine bounds a single request line.
const maxLine = 8 << 20

// ServeWorker reads requests from r one at a time, runs them against b and
// writes responses to w. It returns nil after the termination sentinel or
// EOF, and shuts the backend down in both cases.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer, b Backend) (err error) {
	defer func() {
		if shutdownErr := b.Shutdown(); shutdownErr != nil && err == nil {
			err = fmt.Errorf("shutdown backend: %w", shutdownErr)
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if bytes.Equal(line, sentinel) {
			return nil
		}

		resp := handle(b, line)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response %d: %w", resp.ID, err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}

func handle(b Backend, line []byte) (resp *Response) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{Error: &WorkerError{Kind: "ProtocolError", Message: err.Error()}}
	}
	resp = &Response{ID: req.ID}

	defer func() {
		if p := recover(); p != nil {
			resp.OK = false
			resp.Value = nil
			resp.Error = &WorkerError{Kind: "Panic", Message: fmt.Sprint(p)}
		}
	}()

	h, ok := dispatch[req.Op]
	if !ok {
		resp.Error = &WorkerError{Kind: "UnknownOp", Message: fmt.Sprintf("unknown op %q", req.Op)}
		return resp
	}

	value, err := h(b, &req)
	if err != nil {
		resp.Error = degrade(err)
		return resp
	}
	if value == nil {
		value = types.ToolResult{}
	}
	if _, err := json.Marshal(value); err != nil {
		resp.Error = &WorkerError{Kind: "EncodeError", Message: err.Error()}
		return resp
	}
	resp.OK = true
	resp.Value = value
	return resp
}

// degrade reduces err to a kind and message.
func degrade(err error) *WorkerError {
	var we *WorkerError
	if errors.As(err, &we) {
		return we
	}
	return &WorkerError{Kind: errorKind(err), Message: err.Error()}
}

func errorKind(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return "Error"
	}
	if pkg := t.PkgPath(); pkg != "" {
		name = pkg[strings.LastIndex(pkg, "/")+1:] + "." + name
	}
	return name
}
