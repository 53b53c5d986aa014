package browser

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// fakeBackend echoes its parameters back and records which ops ran.
type fakeBackend struct {
	mu        sync.Mutex
	ops       []Op
	shutdowns int
	crash     func()
	block     chan struct{}
}

func (f *fakeBackend) record(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeBackend) StartSession(p StartParams) (types.ToolResult, error) {
	f.record(OpStartSession)
	return types.OK(map[string]any{"session_id": "sess-1", "headless": p.Headless}), nil
}

func (f *fakeBackend) CloseSession(p SessionParams) (types.ToolResult, error) {
	f.record(OpCloseSession)
	return types.OK(map[string]any{"session_id": p.SessionID}), nil
}

func (f *fakeBackend) OpenURL(p OpenParams) (types.ToolResult, error) {
	f.record(OpOpenURL)
	if p.URL == "crash://" && f.crash != nil {
		f.crash()
	}
	if p.URL == "block://" && f.block != nil {
		<-f.block
	}
	return types.OK(map[string]any{"session_id": p.SessionID, "url": p.URL, "wait_ms": p.WaitMs}), nil
}

func (f *fakeBackend) FillSelector(p SelectorParams) (types.ToolResult, error) {
	f.record(OpFillSelector)
	return types.OK(map[string]any{"selector": p.Selector, "text": p.Text}), nil
}

func (f *fakeBackend) ClickSelector(p SelectorParams) (types.ToolResult, error) {
	f.record(OpClickSelector)
	return types.OK(map[string]any{"selector": p.Selector}), nil
}

func (f *fakeBackend) VisibleInputs(p SessionParams) (types.ToolResult, error) {
	f.record(OpGetVisibleInputs)
	return types.OK(map[string]any{"inputs": []any{map[string]any{"placeholder": "输入手机号"}}}), nil
}

func (f *fakeBackend) FillByPlaceholder(p PlaceholderParams) (types.ToolResult, error) {
	f.record(OpFillByPlaceholder)
	return types.OK(map[string]any{"placeholder": p.Placeholder}), nil
}

func (f *fakeBackend) ClickByText(p TextParams) (types.ToolResult, error) {
	f.record(OpClickByText)
	if p.Text == "panic" {
		panic("element detached")
	}
	return types.OK(map[string]any{"text": p.Text}), nil
}

func (f *fakeBackend) CheckAgreement(p SessionParams) (types.ToolResult, error) {
	f.record(OpCheckAgreement)
	return types.Fail("agreement_not_found", ""), nil
}

func (f *fakeBackend) GetText(p GetTextParams) (types.ToolResult, error) {
	f.record(OpGetText)
	return nil, errors.New("target closed")
}

func (f *fakeBackend) PageSource(p PageSourceParams) (types.ToolResult, error) {
	f.record(OpGetPageSource)
	return types.OK(map[string]any{"max_chars": p.MaxChars, "clean": p.Clean}), nil
}

func (f *fakeBackend) Screenshot(p ScreenshotParams) (types.ToolResult, error) {
	f.record(OpScreenshot)
	return types.OK(map[string]any{"screenshot": p.Path}), nil
}

func (f *fakeBackend) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

func (f *fakeBackend) shutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

// pipeWorkers runs ServeWorker in-process over io.Pipe, one fakeBackend
// per spawn.
type pipeWorkers struct {
	mu       sync.Mutex
	backends []*fakeBackend
	block    chan struct{}
	failures int
}

func (p *pipeWorkers) dial() (*Transport, error) {
	p.mu.Lock()
	if p.failures > 0 {
		p.failures--
		p.mu.Unlock()
		return nil, errors.New("exec: no such file")
	}
	p.mu.Unlock()

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	done := make(chan struct{})
	kill := func() error {
		reqR.CloseWithError(io.ErrClosedPipe)
		respW.CloseWithError(io.ErrClosedPipe)
		return nil
	}

	b := &fakeBackend{crash: func() { _ = kill() }, block: p.block}
	p.mu.Lock()
	p.backends = append(p.backends, b)
	p.mu.Unlock()

	go func() {
		defer close(done)
		_ = ServeWorker(context.Background(), reqR, respW, b)
		_ = respW.Close()
		_ = reqR.Close()
	}()

	return &Transport{Requests: reqW, Responses: respR, Done: done, Kill: kill}, nil
}

func (p *pipeWorkers) spawned() []*fakeBackend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeBackend(nil), p.backends...)
}
