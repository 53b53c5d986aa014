package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Result
	}{
		{
			name: "items with link",
			body: `{"items":[{"title":"A","snippet":"s","link":"https://a"}]}`,
			want: []Result{{Title: "A", Snippet: "s", URL: "https://a"}},
		},
		{
			name: "tavily results",
			body: `{"answer":"x","results":[{"title":"T","content":"c","url":"https://t"},{"name":"N","description":"d","href":"h"}]}`,
			want: []Result{{Title: "T", Snippet: "c", URL: "https://t"}, {Title: "N", Snippet: "d", URL: "h"}},
		},
		{
			name: "bing web pages",
			body: `{"webPages":{"value":[{"name":"B","snippet":"bs","url":"https://b"}]}}`,
			want: []Result{{Title: "B", Snippet: "bs", URL: "https://b"}},
		},
		{
			name: "bare list with strings and junk",
			body: `["plain", 3, {"title":"obj"}]`,
			want: []Result{{Title: "plain"}, {Title: "obj"}},
		},
		{
			name: "empty items falls through to results",
			body: `{"items":[],"results":[{"title":"R"}]}`,
			want: []Result{{Title: "R"}},
		},
		{
			name: "unknown shape",
			body: `{"hits":[{"title":"x"}]}`,
			want: []Result{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize([]byte(tt.body), 5))
		})
	}

	assert.Len(t, Normalize([]byte(`["a","b","c"]`), 2), 2)
}

func TestSearch_Unconfigured(t *testing.T) {
	res := NewClient(config.SearchSettings{}, nil).Search(context.Background(), "小红书 运营", 5)
	assert.False(t, res.Success())
	assert.Equal(t, ErrAPIURLMissing, res.ErrorKind())
}

func TestSearch_GenericGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "露营 攻略", r.URL.Query().Get("query"))
		assert.Equal(t, "bing", r.URL.Query().Get("engine"))
		assert.Equal(t, "k1", r.URL.Query().Get("api_key"))
		assert.Equal(t, "k1", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"items":[{"title":"露营清单","snippet":"装备","link":"https://example.com/1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.SearchSettings{
		APIURL:       srv.URL,
		APIKey:       "k1",
		APIKeyParam:  "api_key",
		APIKeyHeader: "X-API-Key",
		QueryParam:   "query",
		ExtraParams:  map[string]string{"engine": "bing"},
	}, srv.Client())

	res := c.Search(context.Background(), "露营 攻略", 3)
	require.True(t, res.Success(), res.JSON())
	results := res["results"].([]Result)
	require.Len(t, results, 1)
	assert.Equal(t, "露营清单", results[0].Title)
	assert.NotNil(t, res["raw"])
}

func TestSearch_Tavily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tv-key", body["api_key"])
		assert.Equal(t, float64(2), body["max_results"])
		assert.Equal(t, "advanced", body["search_depth"])
		assert.NotContains(t, body, "engine")
		_, _ = w.Write([]byte(`{"results":[{"title":"T","content":"c","url":"u"}]}`))
	}))
	defer srv.Close()

	settings := config.SearchSettings{
		Provider:    "Tavily",
		APIURL:      srv.URL,
		ExtraParams: map[string]string{"search_depth": "advanced", "engine": "ignored"},
	}

	t.Setenv("TAVILY_API_KEY", "")
	res := NewClient(settings, srv.Client()).Search(context.Background(), "q", 2)
	assert.Equal(t, ErrTavilyKeyMissing, res.ErrorKind())

	t.Setenv("TAVILY_API_KEY", "tv-key")
	res = NewClient(settings, srv.Client()).Search(context.Background(), "q", 2)
	require.True(t, res.Success(), res.JSON())
	assert.Equal(t, []Result{{Title: "T", Snippet: "c", URL: "u"}}, res["results"])
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := NewClient(config.SearchSettings{APIURL: srv.URL}, srv.Client()).Search(context.Background(), "q", 0)
	assert.Equal(t, ErrRequestFailed, res.ErrorKind())
	assert.Contains(t, res.Message(), "429")
}

func TestTool(t *testing.T) {
	tool := Tool(NewClient(config.SearchSettings{}, nil))
	assert.Equal(t, "web_search", tool.Name())

	res, err := tool.Execute(context.Background(), map[string]interface{}{"query": "  "})
	require.NoError(t, err)
	assert.Equal(t, types.ErrInvalidArguments, res.ErrorKind())

	res, err = tool.Execute(context.Background(), map[string]interface{}{"query": "x", "top_k": "3"})
	require.NoError(t, err)
	assert.Equal(t, ErrAPIURLMissing, res.ErrorKind())
}
