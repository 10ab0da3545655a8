package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompleter_Complete(t *testing.T) {
	testCases := []struct {
		name            string
		status          int
		responseBody    string
		expected        *Completion
		expectedErr     error
		expectedErrText string
	}{
		{
			name:   "happy path - returns first choice and usage",
			status: http.StatusOK,
			responseBody: `{"id":"gen-1","object":"chat.completion","created":1,"model":"anthropic/claude-3.5-haiku",
				"choices":[{"index":0,"message":{"role":"assistant","content":"{\"headline\":\"h\"}"},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}}`,
			expected: &Completion{Text: `{"headline":"h"}`, PromptTokens: 120, CompletionTokens: 30},
		},
		{
			name:            "error case - provider returns 500",
			status:          http.StatusInternalServerError,
			responseBody:    `{"error":{"message":"upstream exploded","type":"server_error"}}`,
			expectedErr:     domain.ErrUpstream,
			expectedErrText: "failed to create chat completion",
		},
		{
			name:            "error case - provider returns 401",
			status:          http.StatusUnauthorized,
			responseBody:    `{"error":{"message":"bad key","type":"auth_error"}}`,
			expectedErr:     domain.ErrUpstream,
			expectedErrText: "bad key",
		},
		{
			name:   "error case - no choices",
			status: http.StatusOK,
			responseBody: `{"id":"gen-2","object":"chat.completion","created":1,"model":"m","choices":[],
				"usage":{"prompt_tokens":1,"completion_tokens":0,"total_tokens":1}}`,
			expectedErr:     domain.ErrMalformedResponse,
			expectedErrText: "no choices",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				assert.Equal(t, "https://digest.example", r.Header.Get("HTTP-Referer"))
				assert.Equal(t, "Trending Digest", r.Header.Get("X-Title"))

				var body struct {
					Model     string `json:"model"`
					MaxTokens int    `json:"max_tokens"`
					Messages  []struct {
						Role    string `json:"role"`
						Content string `json:"content"`
					} `json:"messages"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, DefaultLLMModel, body.Model)
				assert.Equal(t, DefaultLLMMaxTokens, body.MaxTokens)
				require.Len(t, body.Messages, 2)
				assert.Equal(t, "system", body.Messages[0].Role)
				assert.Equal(t, "sys", body.Messages[0].Content)
				assert.Equal(t, "user", body.Messages[1].Role)
				assert.Equal(t, "usr", body.Messages[1].Content)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.responseBody)
			}))
			defer server.Close()

			completer := NewOpenAICompleter("test-key", discardLogger(),
				WithLLMBaseURL(server.URL),
				WithLLMHeader("HTTP-Referer", "https://digest.example"),
				WithLLMHeader("X-Title", "Trending Digest"),
			)
			got, err := completer.Complete(context.Background(), CompletionRequest{System: "sys", User: "usr"})
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Contains(t, err.Error(), tc.expectedErrText)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, 150, got.TotalTokens())
		})
	}
}
