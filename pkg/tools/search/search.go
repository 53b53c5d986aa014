// Package search implements the web_search skill over a configurable JSON
// search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/tidwall/gjson"
)

// Error kinds specific to web_search.
const (
	ErrAPIURLMissing    = "search_api_url_missing"
	ErrTavilyKeyMissing = "tavily_api_key_missing"
	ErrRequestFailed    = "search_request_failed"
)

// DefaultTopK is the number of results returned when the caller omits top_k.
const DefaultTopK = 5

// tavilyFlags are provider options forwarded from extra_params in the
// Tavily POST body.
var tavilyFlags = []string{"search_depth", "include_domains", "exclude_domains", "include_answer", "include_images"}

// Result is one normalised search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Client queries the configured search API.
type Client struct {
	settings config.SearchSettings
	http     *http.Client
}

// NewClient creates a client from the search section values.
func NewClient(settings config.SearchSettings, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := time.Duration(settings.TimeoutSec) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{settings: settings, http: httpClient}
}

func (c *Client) isTavily() bool {
	return strings.EqualFold(strings.TrimSpace(c.settings.Provider), "tavily") ||
		strings.Contains(c.settings.APIURL, "tavily")
}

// Search runs query and normalises up to topK results.
func (c *Client) Search(ctx context.Context, query string, topK int) types.ToolResult {
	if c.settings.APIURL == "" {
		return types.Fail(ErrAPIURLMissing, "search.api_url is not configured").With("results", []Result{})
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	var req *http.Request
	var err error
	if c.isTavily() {
		req, err = c.tavilyRequest(ctx, query, topK)
	} else {
		req, err = c.getRequest(ctx, query)
	}
	if err != nil {
		return types.Fail(ErrRequestFailed, err.Error()).With("results", []Result{})
	}
	if req == nil {
		return types.Fail(ErrTavilyKeyMissing, "set search.api_key or TAVILY_API_KEY").With("results", []Result{})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Fail(ErrRequestFailed, err.Error()).With("results", []Result{})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Fail(ErrRequestFailed, fmt.Sprintf("read response: %v", err)).With("results", []Result{})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Fail(ErrRequestFailed, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))).
			With("results", []Result{})
	}
	if !gjson.ValidBytes(body) {
		return types.Fail(ErrRequestFailed, "search API returned invalid JSON").With("results", []Result{})
	}

	return types.OK(map[string]any{
		"results": Normalize(body, topK),
		"raw":     json.RawMessage(body),
	})
}

func (c *Client) tavilyRequest(ctx context.Context, query string, topK int) (*http.Request, error) {
	key := c.settings.APIKey
	if key == "" {
		key = os.Getenv("TAVILY_API_KEY")
	}
	if key == "" {
		return nil, nil
	}

	payload := map[string]interface{}{
		"api_key":     key,
		"query":       query,
		"max_results": topK,
	}
	for _, flag := range tavilyFlags {
		if v, ok := c.settings.ExtraParams[flag]; ok {
			payload[flag] = v
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) getRequest(ctx context.Context, query string) (*http.Request, error) {
	u, err := url.Parse(c.settings.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search.api_url: %w", err)
	}
	params := u.Query()
	queryParam := c.settings.QueryParam
	if queryParam == "" {
		queryParam = "q"
	}
	params.Set(queryParam, query)
	for k, v := range c.settings.ExtraParams {
		params.Set(k, v)
	}
	if c.settings.APIKey != "" && c.settings.APIKeyParam != "" {
		params.Set(c.settings.APIKeyParam, c.settings.APIKey)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.settings.APIKey != "" && c.settings.APIKeyHeader != "" {
		req.Header.Set(c.settings.APIKeyHeader, c.settings.APIKey)
	}
	return req, nil
}

// Normalize maps the common result shapes (items, results, data,
// webPages.value or a bare list) onto Result.
func Normalize(body []byte, topK int) []Result {
	doc := gjson.ParseBytes(body)
	var items gjson.Result
	if doc.IsArray() {
		items = doc
	} else {
		for _, path := range []string{"items", "results", "data", "webPages.value"} {
			if r := doc.Get(path); r.IsArray() && len(r.Array()) > 0 {
				items = r
				break
			}
		}
	}

	results := []Result{}
	for _, row := range items.Array() {
		if len(results) == topK {
			break
		}
		switch {
		case row.Type == gjson.String:
			results = append(results, Result{Title: row.String()})
		case row.IsObject():
			results = append(results, Result{
				Title:   first(row, "title", "name"),
				Snippet: first(row, "snippet", "description", "content", "answer"),
				URL:     first(row, "link", "url", "href"),
			})
		}
	}
	return results
}

func first(row gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := row.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

type searchArgs struct {
	Query tools.FlexString `json:"query"`
	TopK  tools.FlexInt    `json:"top_k"`
}

// Tool returns the web_search skill.
func Tool(c *Client) tools.Tool {
	return tools.Typed("web_search", "Search the web for information.",
		tools.BaseToolSchema(map[string]interface{}{
			"query": tools.StringProp("Search query"),
			"top_k": tools.IntProp("Number of results"),
		}, []string{"query"}),
		func(ctx context.Context, a searchArgs) types.ToolResult {
			if strings.TrimSpace(a.Query.String()) == "" {
				return types.Fail(types.ErrInvalidArguments, "query is required")
			}
			return c.Search(ctx, a.Query.String(), a.TopK.Or(DefaultTopK))
		})
}
