package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses_SendsAuthAndBody(t *testing.T) {
	var gotAuth, gotReferer string
	var gotReq ResponsesRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp-1","output":"hello","usage":{"prompt_tokens":10,"completion_tokens":5}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithReferer("https://example.com/repo"))
	resp, err := client.Responses(context.Background(), ResponsesRequest{
		Model: "openai/gpt-4o:online",
		Input: "find threads",
		Tools: []Tool{{Type: "web_search", Filters: &ToolFilters{AllowedDomains: []string{"reddit.com"}}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "https://example.com/repo", gotReferer)
	assert.Equal(t, "openai/gpt-4o:online", gotReq.Model)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, []string{"reddit.com"}, gotReq.Tools[0].Filters.AllowedDomains)

	assert.Equal(t, "hello", resp.OutputText())
	assert.Equal(t, int64(10), resp.Usage.InTokens())
	assert.Equal(t, int64(5), resp.Usage.OutTokens())
}

func TestResponses_NonOKStatusReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Responses(context.Background(), ResponsesRequest{Model: "m", Input: "q"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestOutputText_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain string output", `{"output":"text here"}`, "text here"},
		{
			"responses message list",
			`{"output":[{"type":"web_search_call"},{"type":"message","content":[{"type":"output_text","text":"from message"}]}]}`,
			"from message",
		},
		{"entry with bare text", `{"output":[{"type":"other","text":"bare"}]}`, "bare"},
		{"chat choices fallback", `{"choices":[{"message":{"content":"from choice"}}]}`, "from choice"},
		{"nothing usable", `{"id":"x"}`, ""},
		{"malformed output list", `{"output":{"not":"a list"}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ResponsesResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.want, resp.OutputText())
		})
	}
}

func TestUsage_TokenAliases(t *testing.T) {
	u := Usage{InputTokens: 7, OutputTokens: 3}
	assert.Equal(t, int64(7), u.InTokens())
	assert.Equal(t, int64(3), u.OutTokens())

	u = Usage{PromptTokens: 11, CompletionTokens: 4}
	assert.Equal(t, int64(11), u.InTokens())
	assert.Equal(t, int64(4), u.OutTokens())
}
