package config

import "sync"

// SectionIDSearch is the identifier for the web search section
const SectionIDSearch = "search"

// SearchSettings is a value copy of the search section.
type SearchSettings struct {
	Provider     string
	APIURL       string
	APIKey       string
	APIKeyParam  string
	APIKeyHeader string
	QueryParam   string
	ExtraParams  map[string]string
	TimeoutSec   int
}

// SearchSection configures the JSON search API behind web_search.
type SearchSection struct {
	settings SearchSettings
	mu       sync.RWMutex
}

// NewSearchSection creates the section with defaults.
func NewSearchSection() *SearchSection {
	s := &SearchSection{}
	s.Reset()
	return s
}

func (s *SearchSection) ID() string    { return SectionIDSearch }
func (s *SearchSection) Title() string { return "Web Search" }
func (s *SearchSection) Description() string {
	return "Search API endpoint. provider tavily uses the Tavily POST flow, anything else a GET with query_param."
}

func (s *SearchSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	extra := make(map[string]any, len(s.settings.ExtraParams))
	for k, v := range s.settings.ExtraParams {
		extra[k] = v
	}
	return map[string]any{
		"provider":       s.settings.Provider,
		"api_url":        s.settings.APIURL,
		"api_key":        s.settings.APIKey,
		"api_key_param":  s.settings.APIKeyParam,
		"api_key_header": s.settings.APIKeyHeader,
		"query_param":    s.settings.QueryParam,
		"extra_params":   extra,
		"timeout_sec":    s.settings.TimeoutSec,
	}
}

func (s *SearchSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asString(data["provider"]); ok {
		s.settings.Provider = v
	}
	if v, ok := asString(data["api_url"]); ok {
		s.settings.APIURL = v
	}
	if v, ok := asString(data["api_key"]); ok {
		s.settings.APIKey = v
	}
	if v, ok := asString(data["api_key_param"]); ok {
		s.settings.APIKeyParam = v
	}
	if v, ok := asString(data["api_key_header"]); ok {
		s.settings.APIKeyHeader = v
	}
	if v, ok := asString(data["query_param"]); ok && v != "" {
		s.settings.QueryParam = v
	}
	if v, ok := asStringMap(data["extra_params"]); ok {
		s.settings.ExtraParams = v
	}
	if v, ok := asInt(data["timeout_sec"]); ok && v > 0 {
		s.settings.TimeoutSec = v
	}
	return nil
}

// Validate accepts an empty api_url; web_search then reports search_api_url_missing.
func (s *SearchSection) Validate() error { return nil }

func (s *SearchSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = SearchSettings{QueryParam: "q", TimeoutSec: 15}
}

// Settings returns a copy of the current values.
func (s *SearchSection) Settings() SearchSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	out.ExtraParams = make(map[string]string, len(s.settings.ExtraParams))
	for k, v := range s.settings.ExtraParams {
		out.ExtraParams[k] = v
	}
	return out
}
