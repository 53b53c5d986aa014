package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Defaults for new sessions.
const (
	DefaultTimeout        = 30000.0
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// ManagerOptions configures the Playwright backend.
type ManagerOptions struct {
	// Timeout is the default page timeout in milliseconds.
	Timeout        float64
	ViewportWidth  int
	ViewportHeight int

	// SkipInstall skips the driver download on first start.
	SkipInstall bool
}

// Manager is the Playwright Backend. It holds at most one session; a second
// start returns the live one.
type Manager struct {
	mu          sync.Mutex
	opts        ManagerOptions
	playwright  *playwright.Playwright
	session     *Session
	initialized bool
}

// NewManager creates a backend. Playwright is started on the first
// StartSession.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	return &Manager{opts: opts}
}

// initialize starts the Playwright driver. Callers hold m.mu.
func (m *Manager) initialize() error {
	if m.initialized {
		return nil
	}

	// stdout is the IPC channel, keep the driver quiet
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if !m.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// StartSession launches Chromium unless a session is already live.
func (m *Manager) StartSession(p StartParams) (types.ToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return types.OK(map[string]any{"session_id": m.session.ID, "reused": true}), nil
	}
	if err := m.initialize(); err != nil {
		return nil, err
	}

	headless := p.Headless
	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.ViewportWidth,
			Height: m.opts.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(m.opts.Timeout)

	now := time.Now()
	m.session = &Session{
		ID:         uuid.New().String(),
		Browser:    browser,
		Context:    context,
		Page:       page,
		Headless:   headless,
		CreatedAt:  now,
		LastUsedAt: now,
		CurrentURL: "about:blank",
	}
	return types.OK(map[string]any{"session_id": m.session.ID}), nil
}

// CloseSession closes the session if id names it.
func (m *Manager) CloseSession(p SessionParams) (types.ToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.ID != p.SessionID {
		return notFound(), nil
	}
	m.session.close()
	m.session = nil
	return types.OK(nil), nil
}

// lookup returns the session named id, or nil.
func (m *Manager) lookup(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.ID != id {
		return nil
	}
	return m.session
}

func notFound() types.ToolResult {
	return types.Fail(types.ErrSessionNotFound, "no browser session with that id")
}

func (m *Manager) OpenURL(p OpenParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.Open(p.URL, p.WaitMs), nil
}

func (m *Manager) FillSelector(p SelectorParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.Fill(p.Selector, p.Text), nil
}

func (m *Manager) ClickSelector(p SelectorParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.Click(p.Selector), nil
}

func (m *Manager) VisibleInputs(p SessionParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound().With("inputs", []interface{}{}), nil
	}
	return s.VisibleInputs(), nil
}

func (m *Manager) FillByPlaceholder(p PlaceholderParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.FillByPlaceholder(p.Placeholder, p.Text), nil
}

func (m *Manager) ClickByText(p TextParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.ClickByText(p.Text), nil
}

func (m *Manager) CheckAgreement(p SessionParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.CheckAgreement(), nil
}

func (m *Manager) GetText(p GetTextParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	if p.Selector == "" {
		p.Selector = "body"
	}
	if p.MaxChars <= 0 {
		p.MaxChars = DefaultTextChars
	}
	return s.Text(p.Selector, p.MaxChars)
}

func (m *Manager) PageSource(p PageSourceParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound().With("html", ""), nil
	}
	if p.MaxChars <= 0 {
		p.MaxChars = DefaultSourceChars
	}
	return s.Source(p.MaxChars, p.Clean), nil
}

func (m *Manager) Screenshot(p ScreenshotParams) (types.ToolResult, error) {
	s := m.lookup(p.SessionID)
	if s == nil {
		return notFound(), nil
	}
	return s.Capture(p.Path, p.FullPage)
}

// Shutdown closes the session and stops Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.close()
		m.session = nil
	}
	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
