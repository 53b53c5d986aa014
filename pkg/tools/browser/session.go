package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/playwright-community/playwright-go"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Defaults for page operations.
const (
	DefaultWaitMs         = 2000
	DefaultTextChars      = 2000
	DefaultSourceChars    = 18000
	DefaultLocatorTimeout = 15000.0

	truncatedMarker = "\n... (truncated)"
)

// Session is the live browser, context and page of the singleton session.
type Session struct {
	ID         string
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
	Headless   bool
	CreatedAt  time.Time
	LastUsedAt time.Time
	CurrentURL string
}

func (s *Session) touch() {
	s.LastUsedAt = time.Now()
}

func (s *Session) close() {
	_ = s.Page.Close()
	_ = s.Context.Close()
	_ = s.Browser.Close()
}

// Open navigates to url and waits waitMs before reading the title.
func (s *Session) Open(url string, waitMs int) types.ToolResult {
	s.touch()
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	if _, err := s.Page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return pageFailure(err).With("url", url)
	}
	if waitMs > 0 {
		s.Page.WaitForTimeout(float64(waitMs))
	}
	s.CurrentURL = s.Page.URL()
	title, _ := s.Page.Title()
	return types.OK(map[string]any{"url": url, "title": title})
}

// Fill fills the element matching selector.
func (s *Session) Fill(selector, text string) types.ToolResult {
	s.touch()
	if err := s.Page.Fill(selector, text); err != nil {
		return pageFailure(err).With("selector", selector)
	}
	return types.OK(nil)
}

// Click clicks the element matching selector.
func (s *Session) Click(selector string) types.ToolResult {
	s.touch()
	if err := s.Page.Click(selector); err != nil {
		return pageFailure(err).With("selector", selector)
	}
	s.CurrentURL = s.Page.URL()
	return types.OK(nil)
}

// VisibleInputs lists the visible inputs, textareas and buttons.
func (s *Session) VisibleInputs() types.ToolResult {
	s.touch()
	out, err := s.Page.Evaluate(visibleInputsScript)
	if err != nil {
		return pageFailure(err).With("inputs", []interface{}{})
	}
	inputs, _ := out.([]interface{})
	if inputs == nil {
		inputs = []interface{}{}
	}
	return types.OK(map[string]any{"inputs": inputs})
}

// FillByPlaceholder fills the first input whose placeholder contains needle.
// When the locator fails it scans placeholder inputs for a visible, enabled
// match.
func (s *Session) FillByPlaceholder(needle, text string) types.ToolResult {
	s.touch()
	timeout := DefaultLocatorTimeout
	err := s.Page.GetByPlaceholder(needle).First().Fill(text, playwright.LocatorFillOptions{Timeout: &timeout})
	if err == nil {
		return types.OK(map[string]any{"placeholder": needle, "method": "get_by_placeholder"})
	}

	if target := s.findPlaceholderInput(strings.TrimSpace(needle)); target != nil {
		if fillErr := target.Fill(text, playwright.LocatorFillOptions{Timeout: &timeout}); fillErr == nil {
			return types.OK(map[string]any{"placeholder": needle, "method": "visible_placeholder_fallback"})
		}
	}
	return pageFailure(err).With("placeholder", needle)
}

func (s *Session) findPlaceholderInput(needle string) playwright.Locator {
	locator := s.Page.Locator("input[placeholder], textarea[placeholder]")
	count, err := locator.Count()
	if err != nil {
		return nil
	}
	for i := 0; i < count; i++ {
		item := locator.Nth(i)
		ph, _ := item.GetAttribute("placeholder")
		if needle != "" && !strings.Contains(strings.TrimSpace(ph), needle) {
			continue
		}
		visible, _ := item.IsVisible()
		enabled, _ := item.IsEnabled()
		if visible && enabled {
			return item
		}
	}
	return nil
}

// ClickByText clicks the first element whose text contains needle, falling
// back to a DOM scan that ignores whitespace.
func (s *Session) ClickByText(needle string) types.ToolResult {
	s.touch()
	timeout := DefaultLocatorTimeout
	err := s.Page.GetByText(needle).First().Click(playwright.LocatorClickOptions{Timeout: &timeout})
	if err == nil {
		return types.OK(map[string]any{"text": needle, "method": "get_by_text"})
	}

	if clicked, evalErr := s.Page.Evaluate(clickByTextScript, needle); evalErr == nil {
		if ok, _ := clicked.(bool); ok {
			return types.OK(map[string]any{"text": needle, "method": "dom_click_fallback"})
		}
	}
	return pageFailure(err).With("text", needle)
}

// CheckAgreement ticks the consent checkbox near agreement wording.
func (s *Session) CheckAgreement() types.ToolResult {
	s.touch()
	out, err := s.Page.Evaluate(checkAgreementScript)
	if err != nil {
		return pageFailure(err)
	}
	res, _ := out.(map[string]interface{})
	if clicked, _ := res["clicked"].(bool); clicked {
		method, _ := res["method"].(string)
		if method == "" {
			method = "unknown"
		}
		return types.OK(map[string]any{"method": method})
	}
	return types.Fail("agreement_not_found", "No clickable agreement checkbox found")
}

// Text returns the inner text of selector.
func (s *Session) Text(selector string, maxChars int) (types.ToolResult, error) {
	s.touch()
	text, err := s.Page.InnerText(selector)
	if err != nil {
		return nil, err
	}
	return types.OK(map[string]any{"text": truncateRunes(strings.TrimSpace(text), maxChars)}), nil
}

// Source returns the page HTML, optionally cleaned.
func (s *Session) Source(maxChars int, clean bool) types.ToolResult {
	s.touch()
	raw, err := s.Page.Content()
	if err != nil {
		return types.Fail("browser_error", err.Error()).With("html", "")
	}
	raw = strings.TrimSpace(raw)

	if clean {
		cleaned, cleanErr := CleanHTML(raw, maxChars)
		if cleanErr == nil {
			return types.OK(map[string]any{
				"html":        cleaned.HTML,
				"title":       cleaned.Title,
				"description": cleaned.Description,
				"truncated":   cleaned.Truncated,
			})
		}
	}
	return types.OK(map[string]any{"html": TruncateSource(raw, maxChars)})
}

// Capture writes a screenshot to path.
func (s *Session) Capture(path string, fullPage bool) (types.ToolResult, error) {
	s.touch()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	}); err != nil {
		return nil, err
	}
	return types.OK(map[string]any{"screenshot": path}), nil
}

// pageFailure classifies a Playwright error as timeout or browser_error.
func pageFailure(err error) types.ToolResult {
	kind := "browser_error"
	if isTimeout(err) {
		kind = types.ErrTimeout
	}
	return types.Fail(kind, err.Error())
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// TruncateSource cuts html to maxChars runes and marks the cut.
func TruncateSource(html string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(html) <= maxChars {
		return html
	}
	return truncateRunes(html, maxChars) + truncatedMarker
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
