package config

import (
	"fmt"
	"os"
	"strings"
)

// Provider families and their default endpoints.
const (
	ProviderDashScope = "dashscope"
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"

	DashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DeepSeekBaseURL  = "https://api.deepseek.com"
)

// LLMCredentials is the resolved connection for the reasoning service.
type LLMCredentials struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Vision   string
}

// ResolveLLM resolves the reasoning service connection with precedence
// CLI flags > environment variables > config file > defaults.
//
// The provider family decides which environment key is consulted:
// dashscope (and any qwen model) reads DASHSCOPE_API_KEY, deepseek models read
// DEEPSEEK_API_KEY then OPENAI_API_KEY, anything else reads OPENAI_API_KEY.
func ResolveLLM(cliModel, cliBaseURL, cliAPIKey, defaultModel string) (LLMCredentials, error) {
	creds := LLMCredentials{
		Model:   cliModel,
		BaseURL: cliBaseURL,
		APIKey:  cliAPIKey,
		Vision:  VisionAuto,
	}

	fromFile := GetLLM()
	if fromFile != nil {
		creds.Provider = strings.ToLower(fromFile.GetProvider())
		creds.Vision = fromFile.GetVision()
		if creds.Model == "" || creds.Model == defaultModel {
			if m := fromFile.GetModel(); m != "" {
				creds.Model = m
			}
		}
	}
	if creds.Model == "" {
		creds.Model = defaultModel
	}
	if creds.Provider == "" {
		creds.Provider = inferProvider(creds.Model)
	}

	if creds.APIKey == "" {
		creds.APIKey = envKey(creds.Provider)
	}
	if creds.BaseURL == "" {
		creds.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if fromFile != nil {
		if creds.BaseURL == "" {
			creds.BaseURL = fromFile.GetBaseURL()
		}
		if creds.APIKey == "" {
			creds.APIKey = fromFile.GetAPIKey()
		}
	}
	if creds.BaseURL == "" {
		switch creds.Provider {
		case ProviderDashScope:
			creds.BaseURL = DashScopeBaseURL
		case ProviderDeepSeek:
			creds.BaseURL = DeepSeekBaseURL
		}
	}

	if creds.APIKey == "" {
		return creds, fmt.Errorf("API key is required for provider %s: set %s, use -api-key, or configure llm.api_key", creds.Provider, envKeyName(creds.Provider))
	}
	return creds, nil
}

func inferProvider(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "qwen"):
		return ProviderDashScope
	case strings.Contains(lower, "deepseek"):
		return ProviderDeepSeek
	default:
		return ProviderOpenAI
	}
}

func envKey(provider string) string {
	switch provider {
	case ProviderDashScope:
		return os.Getenv("DASHSCOPE_API_KEY")
	case ProviderDeepSeek:
		if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func envKeyName(provider string) string {
	switch provider {
	case ProviderDashScope:
		return "DASHSCOPE_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
