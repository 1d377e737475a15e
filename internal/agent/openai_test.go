package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		Timeout:     2 * time.Second,
	}, zap.NewNop())
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestDecide_SendsChatRequest(t *testing.T) {
	var got chatRequest
	var gotAuth, gotPath string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completionBody("Expand")))
	})

	decision, err := client.Decide(context.Background(), "system text", "prompt text")
	require.NoError(t, err)

	assert.Equal(t, "expand", decision, "reply is trimmed and lowercased")
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "system text"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "prompt text"}, got.Messages[1])
}

func TestDecide_NormalizesWhitespace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("  Attack the north flank \n")))
	})

	decision, err := client.Decide(context.Background(), "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "attack the north flank", decision)
}

func TestDecide_EmptyReplyDefaultsToHold(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("   ")))
	})

	decision, err := client.Decide(context.Background(), "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "hold", decision)
}

func TestDecide_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := client.Decide(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestDecide_NonOKStatusWithoutErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{}`))
	})

	_, err := client.Decide(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestDecide_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Decide(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestDecide_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.Decide(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding provider response")
}

func TestDecide_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Decide(ctx, "s", "p")
	require.Error(t, err)
}

func TestScripted_CyclesAndDefaults(t *testing.T) {
	s := NewScripted("expand", "attack")
	for i, want := range []string{"expand", "attack", "expand"} {
		got, err := s.Decide(context.Background(), "", "")
		require.NoError(t, err)
		assert.Equal(t, want, got, "call %d", i)
	}

	empty := NewScripted()
	got, err := empty.Decide(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "hold", got)
}
