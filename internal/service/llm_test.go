package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fridgechef/backend/internal/logging"
)

func newTestChatClient(url string) *ChatClient {
	c := NewChatClient("test-key", url, 5*time.Second, logging.Discard())
	c.retryDelay = time.Millisecond
	return c
}

func TestChatClientComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])

		fmt.Fprint(w, `{"choices":[{"message":{"content":"[\"egg\"]"}}]}`)
	}))
	defer ts.Close()

	content, err := newTestChatClient(ts.URL).Complete(context.Background(), ChatRequest{
		Model:    "gpt-test",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, `["egg"]`, content)
}

func TestChatClientRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer ts.Close()

	content, err := newTestChatClient(ts.URL).Complete(context.Background(), ChatRequest{Model: "m"})

	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestChatClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestChatClient(ts.URL).Complete(context.Background(), ChatRequest{Model: "m"})

	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestChatClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := newTestChatClient(ts.URL).Complete(context.Background(), ChatRequest{Model: "m"})

	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChatClientNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	_, err := newTestChatClient(ts.URL).Complete(context.Background(), ChatRequest{Model: "m"})

	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChatClientHonoursCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestChatClient(ts.URL).Complete(ctx, ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrProviderFailure)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `["a"]`, extractJSON("```json\n[\"a\"]\n```"))
	assert.Equal(t, `["a"]`, extractJSON("```\n[\"a\"]\n```"))
	assert.Equal(t, `{"x":1}`, extractJSON("  {\"x\":1}  "))
}
