package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactor/backend/internal/prompt"
)

func TestOpenAIClientComplete(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llama3.1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Paris [1]."}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("ollama", server.URL, "llama3.1")

	answer, err := client.Complete(context.Background(), prompt.Payload{
		System: "system instructions",
		User:   "What is the capital of France?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris [1].", answer)

	assert.Equal(t, "llama3.1", gotBody["model"])
	messages := gotBody["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "system instructions", first["content"])
}

func TestOpenAIClientCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenAIClient("ollama", server.URL, "llama3.1")

	_, err := client.Complete(context.Background(), prompt.Payload{User: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIClientCompleteUnreachable(t *testing.T) {
	client := NewOpenAIClient("ollama", "http://127.0.0.1:1", "llama3.1")

	_, err := client.Complete(context.Background(), prompt.Payload{User: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIClientModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"id": "llama3.1", "object": "model", "created": 1723000000, "owned_by": "library"},
				{"id": "nomic-embed-text", "object": "model", "created": 1723000001, "owned_by": "library"}
			]
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("ollama", server.URL, "llama3.1")

	models, err := client.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.1", models[0].ID)
	assert.Equal(t, int64(1723000000), models[0].Created)
	assert.Equal(t, "library", models[0].OwnedBy)
}
