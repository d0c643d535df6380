// Package llm calls an LLM provider for the optional query analysis stage.
// OpenAI, Anthropic and local Ollama are supported; transient failures are
// retried with exponential backoff.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"

	"github.com/nsxbet/sql-analyzer/pkg/config"
)

// ProviderKind identifies an LLM backend.
type ProviderKind int

const (
	OpenAI ProviderKind = iota
	Anthropic
	Ollama
)

func (k ProviderKind) String() string {
	switch k {
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	default:
		return "ollama"
	}
}

// ParseProviderKind maps a user-facing provider name to a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(s) {
	case "openai":
		return OpenAI, nil
	case "anthropic":
		return Anthropic, nil
	case "", "ollama":
		return Ollama, nil
	default:
		return Ollama, errors.Errorf("unsupported LLM provider: %s", s)
	}
}

// DefaultModel returns the model used when none is configured.
func (k ProviderKind) DefaultModel() string {
	switch k {
	case OpenAI:
		return "gpt-4"
	case Anthropic:
		return "claude-sonnet-4-20250514"
	default:
		return "llama3.2"
	}
}

// Provider is a fully resolved provider configuration.
type Provider struct {
	Kind    ProviderKind
	APIKey  string
	Model   string
	BaseURL string // Ollama only
}

// BuildProvider validates credentials and assembles a Provider. Cloud
// providers require an API key; Ollama does not.
func BuildProvider(kind ProviderKind, apiKey, model, ollamaURL string) (Provider, error) {
	switch kind {
	case OpenAI:
		if apiKey == "" {
			return Provider{}, errors.New("API key required for OpenAI (use --api-key or LLM_API_KEY)")
		}
		return Provider{Kind: OpenAI, APIKey: apiKey, Model: model}, nil
	case Anthropic:
		if apiKey == "" {
			return Provider{}, errors.New("API key required for Anthropic (use --api-key or LLM_API_KEY)")
		}
		return Provider{Kind: Anthropic, APIKey: apiKey, Model: model}, nil
	default:
		return Provider{Kind: Ollama, Model: model, BaseURL: ollamaURL}, nil
	}
}

// HasAccess reports whether the LLM stage can run: cloud providers need a
// key, Ollama always works.
func HasAccess(apiKey string, kind ProviderKind) bool {
	return apiKey != "" || kind == Ollama
}

// EffectiveModel resolves the model name: explicit flag, then config file,
// then the provider default.
func EffectiveModel(model, configModel string, kind ProviderKind) string {
	if model != "" {
		return model
	}
	if configModel != "" {
		return configModel
	}
	return kind.DefaultModel()
}

// EffectiveOllamaURL prefers the config URL only when the flag still holds
// the built-in default; an explicitly set flag wins.
func EffectiveOllamaURL(url, configURL string) string {
	if url == config.DefaultOllamaURL && configURL != "" {
		return configURL
	}
	return url
}

// Client talks to one LLM provider with retry support.
type Client struct {
	provider   Provider
	httpClient *http.Client
	retryCfg   config.RetryConfig

	openAIBaseURL    string
	anthropicBaseURL string
}

// NewClient creates a client with the default retry configuration.
func NewClient(provider Provider) *Client {
	return NewClientWithRetry(provider, config.Default().Retry)
}

// NewClientWithRetry creates a client with a custom retry configuration.
func NewClientWithRetry(provider Provider, retryCfg config.RetryConfig) *Client {
	return &Client{
		provider:         provider,
		httpClient:       &http.Client{Timeout: 120 * time.Second},
		retryCfg:         retryCfg,
		openAIBaseURL:    "https://api.openai.com",
		anthropicBaseURL: "https://api.anthropic.com",
	}
}

// Analyze asks the provider to review the queries against the schema.
func (c *Client) Analyze(ctx context.Context, schemaSummary, queriesSummary string) (string, error) {
	prompt := "You are a database performance expert. Analyze the following SQL queries " +
		"for potential performance issues, especially regarding index usage.\n\n" +
		schemaSummary + "\n\n" + queriesSummary + "\n\n" +
		"For each query, identify:\n" +
		"1. Whether existing indexes can be used effectively\n" +
		"2. Missing indexes that would improve performance\n" +
		"3. Full table scans or inefficient operations\n" +
		"4. Suggestions for query optimization\n" +
		"Provide specific, actionable recommendations."
	return c.callWithRetry(ctx, prompt)
}

func (c *Client) callWithRetry(ctx context.Context, prompt string) (string, error) {
	backoff := retry.NewExponential(time.Duration(c.retryCfg.InitialDelayMS) * time.Millisecond)
	backoff = retry.WithCappedDuration(time.Duration(c.retryCfg.MaxDelayMS)*time.Millisecond, backoff)
	backoff = retry.WithMaxRetries(c.retryCfg.MaxRetries, backoff)

	var result string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := c.callProvider(ctx, prompt)
		if err != nil {
			if isRetryable(err) {
				slog.Warn("Retrying LLM request", "provider", c.provider.Kind.String(), "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "connection", "429", "rate limit", "500", "502", "503", "504",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) callProvider(ctx context.Context, prompt string) (string, error) {
	switch c.provider.Kind {
	case OpenAI:
		return c.callOpenAI(ctx, prompt)
	case Anthropic:
		return c.callAnthropic(ctx, prompt)
	default:
		return c.callOllama(ctx, prompt)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (c *Client) callOpenAI(ctx context.Context, prompt string) (string, error) {
	req := openAIRequest{
		Model:    c.provider.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.provider.APIKey}

	var resp openAIResponse
	if err := c.post(ctx, c.openAIBaseURL+"/v1/chat/completions", headers, req, &resp, "OpenAI"); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("Empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) callAnthropic(ctx context.Context, prompt string) (string, error) {
	req := anthropicRequest{
		Model:     c.provider.Model,
		MaxTokens: 4096,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.provider.APIKey,
		"anthropic-version": "2023-06-01",
	}

	var resp anthropicResponse
	if err := c.post(ctx, c.anthropicBaseURL+"/v1/messages", headers, req, &resp, "Anthropic"); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("Empty response from Anthropic")
	}
	return resp.Content[0].Text, nil
}

func (c *Client) callOllama(ctx context.Context, prompt string) (string, error) {
	req := ollamaRequest{
		Model:  c.provider.Model,
		Prompt: prompt,
		Stream: false,
	}
	url := strings.TrimRight(c.provider.BaseURL, "/") + "/api/generate"

	var resp ollamaResponse
	if err := c.post(ctx, url, nil, req, &resp, "Ollama"); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) post(ctx context.Context, url string, headers map[string]string, body, out interface{}, name string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return errors.Errorf("%s API error %d: %s", name, resp.StatusCode, string(text))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", name)
	}
	return nil
}
