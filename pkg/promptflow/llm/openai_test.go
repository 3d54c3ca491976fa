package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/randalmurphal/promptflow/pkg/promptflow/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(WithBaseURL(srv.URL+"/"), WithAPIKey("sk-test"))
}

func TestOpenAI_Complete(t *testing.T) {
	var got chatRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-2024",
			"choices": [{"message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	})

	req, err := NewRequest("hi", "gpt-4o", WithSystemPrompt("sys"), WithMaxTokens(10))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "gpt-4o-2024", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, TokenUsage{InputTokens: 5, OutputTokens: 1, TotalTokens: 6}, resp.Usage)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 10, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "hi"}, got.Messages[1])
}

func TestOpenAI_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		retryAfter string
		wantMsg    string
		wantAfter  *time.Duration
	}{
		{name: "rate limited", status: 429, body: `{"error":{"message":"slow down"}}`, retryAfter: "3", wantMsg: "slow down", wantAfter: durationPtr(3 * time.Second)},
		{name: "server error raw body", status: 502, body: "bad gateway", wantMsg: "bad gateway"},
		{name: "empty body uses status", status: 500, body: "", wantMsg: "500 Internal Server Error"},
		{name: "unauthorized", status: 401, body: `{"error":{"message":"bad key"}}`, wantMsg: "bad key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})

			var httpErr *pferrors.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
			assert.Equal(t, "/chat/completions", httpErr.Endpoint)
			assert.Equal(t, tt.wantAfter, httpErr.RetryAfter)
		})
	}
}

func TestOpenAI_MalformedBodyIsTransportError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"no choices", `{"choices": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})

			var te *pferrors.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "decode body", te.Op)
		})
	}
}

func TestOpenAI_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewOpenAI(WithBaseURL(url))
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})

	var te *pferrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "send", te.Op)
}

func TestOpenAI_ContextCanceled(t *testing.T) {
	client := newTestServer(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request should not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, CompletionRequest{Model: "m"})
	assert.ErrorIs(t, err, context.Canceled)

	var te *pferrors.TransportError
	assert.False(t, errors.As(err, &te), "cancellation is not a transport failure")
}

func TestOpenAI_RateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})
	WithRateLimit(1000, 1)(client)
	require.NotNil(t, client.limiter)

	for i := 0; i < 3; i++ {
		_, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())

	WithRateLimit(0, 0)(client)
	assert.Nil(t, client.limiter)
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestOpenAI_TemperatureZeroIsSent(t *testing.T) {
	var bodies []map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	})

	cold, err := NewRequest("hi", "gpt-4o", WithTemperature(0))
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), cold)
	require.NoError(t, err)

	unset, err := NewRequest("hi", "gpt-4o")
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), unset)
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	temp, ok := bodies[0]["temperature"]
	require.True(t, ok, "explicit zero temperature must be sent")
	assert.Equal(t, 0.0, temp)
	assert.NotContains(t, bodies[1], "temperature")
}

func TestOpenAI_TimeoutDoesNotMutateSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}

	c := NewOpenAI(WithHTTPClient(shared), WithHTTPTimeout(time.Second))
	assert.Equal(t, 5*time.Second, shared.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)

	c = NewOpenAI(WithHTTPTimeout(time.Second), WithHTTPClient(shared))
	assert.Equal(t, 5*time.Second, shared.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)

	c = NewOpenAI(WithHTTPClient(shared))
	assert.Same(t, shared, c.httpClient)
}

func TestOpenAI_NilHTTPClientKeepsDefault(t *testing.T) {
	var c *OpenAI
	require.NotPanics(t, func() {
		c = NewOpenAI(WithHTTPClient(nil), WithHTTPTimeout(3*time.Second))
	})
	require.NotNil(t, c.httpClient)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}

func TestErrorMessage_TruncatesOnRuneBoundary(t *testing.T) {
	// 511 ASCII bytes then a 3-byte rune straddling the 512 limit.
	body := strings.Repeat("a", 511) + "€" + "tail"

	msg := errorMessage([]byte(body), "500 Internal Server Error")
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, strings.Repeat("a", 511), msg)

	assert.Equal(t, "short", errorMessage([]byte("  short "), "500"))
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":{"message":"boom"}}`), "500"))
	assert.Equal(t, "502 Bad Gateway", errorMessage(nil, "502 Bad Gateway"))
}
