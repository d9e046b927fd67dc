package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  string
		wantText string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "chatcmpl-1",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ride_id\": \"BBC291376E29C9A1\"}"}}],
				"usage": {"prompt_tokens": 120, "completion_tokens": 40}
			}`,
			wantText: `{"ride_id": "BBC291376E29C9A1"}`,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "model not loaded"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				var req ChatCompletionRequest
				require.NoError(t, json.Unmarshal(body, &req))
				assert.Equal(t, "phi3:mini", req.Model)
				require.Len(t, req.Messages, 2)
				assert.Equal(t, "system", req.Messages[0].Role)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewOpenAIClient("", WithBaseURL(srv.URL))
			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{
					{Role: "system", Content: "You are a data cleaning expert."},
					{Role: "user", Content: "Clean this bike data row: ..."},
				},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Text())
			assert.Equal(t, 40, resp.Usage.CompletionTokens)
		})
	}
}

func TestChatCompletion_AuthHeader(t *testing.T) {
	t.Run("bearer token when key set", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"choices": []}`))
		}))
		defer srv.Close()

		client := NewOpenAIClient("secret", WithBaseURL(srv.URL))
		_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "phi3:mini"})
		require.NoError(t, err)
	})

	t.Run("no header for local servers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"choices": []}`))
		}))
		defer srv.Close()

		client := NewOpenAIClient("", WithBaseURL(srv.URL))
		_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "phi3:mini"})
		require.NoError(t, err)
	})
}

func TestChatCompletion_DefaultModel(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		got = req.Model
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("", WithBaseURL(srv.URL), WithModel("llama3:8b"))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "llama3:8b", got)
}

func TestResponse_Text(t *testing.T) {
	t.Parallel()

	var nilResp *ChatCompletionResponse
	assert.Equal(t, "", nilResp.Text())
	assert.Equal(t, "", (&ChatCompletionResponse{}).Text())

	resp := &ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "hi"}}}}
	assert.Equal(t, "hi", resp.Text())
}

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := New(ProviderOpenAI, "")
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = New(ProviderAnthropic, "sk-ant-test")
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = New(ProviderAnthropic, "sk-ant-test", WithBaseURL("http://localhost:8080"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not take client options")

	_, err = New("cohere", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
