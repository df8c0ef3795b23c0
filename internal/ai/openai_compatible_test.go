package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, chunks []string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			payload, _ := json.Marshal(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"delta": map[string]string{"content": chunk}},
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamCompleteDeliversChunksInOrder(t *testing.T) {
	var body map[string]interface{}
	server := sseServer(t, []string{"Hel", "lo", "!"}, &body)
	defer server.Close()

	client := NewOpenAICompatibleClient()
	cfg := ChatConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		Model:       "gpt-3.5-turbo",
		MaxTokens:   150,
		Temperature: 0.7,
	}

	var received []string
	full, err := client.StreamComplete(context.Background(), cfg, []ChatMessage{{Role: "user", Content: "hi"}}, func(chunk string) error {
		received = append(received, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", full)
	assert.Equal(t, []string{"Hel", "lo", "!"}, received)

	assert.Equal(t, "gpt-3.5-turbo", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, float64(150), body["max_tokens"])
	assert.Equal(t, 0.7, body["temperature"])
}

func TestStreamCompleteSkipsEmptyDeltas(t *testing.T) {
	server := sseServer(t, []string{"", "only", ""}, nil)
	defer server.Close()

	client := NewOpenAICompatibleClient()
	cfg := ChatConfig{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-3.5-turbo"}

	var received []string
	full, err := client.StreamComplete(context.Background(), cfg, nil, func(chunk string) error {
		received = append(received, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "only", full)
	assert.Equal(t, []string{"only"}, received)
}

func TestStreamCompleteOnChunkErrorAborts(t *testing.T) {
	server := sseServer(t, []string{"a", "b", "c"}, nil)
	defer server.Close()

	client := NewOpenAICompatibleClient()
	cfg := ChatConfig{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-3.5-turbo"}

	calls := 0
	_, err := client.StreamComplete(context.Background(), cfg, nil, func(chunk string) error {
		calls++
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestStreamCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAICompatibleClient()
	cfg := ChatConfig{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-3.5-turbo"}

	_, err := client.StreamComplete(context.Background(), cfg, nil, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteParsesChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "pong"}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAICompatibleClient()
	cfg := ChatConfig{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-3.5-turbo"}

	out, err := client.Complete(context.Background(), cfg, []ChatMessage{{Role: "user", Content: "ping"}})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}
