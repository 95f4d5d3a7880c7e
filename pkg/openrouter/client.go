// Package openrouter is a minimal OpenRouter API client covering the
// web-search-capable responses endpoint used for evidence discovery.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client performs model calls against the OpenRouter API.
type Client interface {
	Responses(ctx context.Context, req ResponsesRequest) (*ResponsesResponse, error)
}

// ResponsesRequest is the request body for POST /responses.
type ResponsesRequest struct {
	Model   string   `json:"model"`
	Input   string   `json:"input"`
	Tools   []Tool   `json:"tools,omitempty"`
	Include []string `json:"include,omitempty"`
}

// Tool enables a built-in tool such as web search.
type Tool struct {
	Type    string       `json:"type"`
	Filters *ToolFilters `json:"filters,omitempty"`
}

// ToolFilters restricts a web search tool to specific domains.
type ToolFilters struct {
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// ResponsesResponse is the tolerantly-decoded response envelope. Providers
// differ in how they report output, so both the responses-style Output list
// and the chat-style Choices list are decoded.
type ResponsesResponse struct {
	ID      string          `json:"id"`
	Output  json.RawMessage `json:"output,omitempty"`
	Choices []Choice        `json:"choices,omitempty"`
	Error   *APIErrorBody   `json:"error,omitempty"`
	Usage   Usage           `json:"usage"`
}

// Choice is a chat-style completion choice.
type Choice struct {
	Message ChoiceMessage `json:"message"`
}

// ChoiceMessage is the message inside a chat-style choice.
type ChoiceMessage struct {
	Content string `json:"content"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
}

// InTokens returns prompt tokens under either naming scheme.
func (u Usage) InTokens() int64 {
	if u.InputTokens > 0 {
		return u.InputTokens
	}
	return u.PromptTokens
}

// OutTokens returns completion tokens under either naming scheme.
func (u Usage) OutTokens() int64 {
	if u.OutputTokens > 0 {
		return u.OutputTokens
	}
	return u.CompletionTokens
}

// APIErrorBody is an error reported inside a 200 response envelope.
type APIErrorBody struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// APIError is a non-2xx HTTP response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter: status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithReferer sets the HTTP-Referer attribution header.
func WithReferer(referer string) Option {
	return func(c *httpClient) {
		c.referer = referer
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	referer string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an OpenRouter API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 180 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Responses(ctx context.Context, req ResponsesRequest) (*ResponsesResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "openrouter: rate limit wait")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "openrouter: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "openrouter: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
		httpReq.Header.Set("X-Title", "nichescout")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "openrouter: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openrouter: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result ResponsesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "openrouter: unmarshal response")
	}

	return &result, nil
}
