package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a Client at an httptest server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:    "sk-test",
		BaseURL:   srv.URL + "/v1",
		RateLimit: 1000,
		Burst:     100,
	})
	require.NoError(t, err)
	return c
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
		"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func writeStream(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range deltas {
		fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":%q,"code":%q}}`, msg, typ, typ)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestNew_ModelDefault(t *testing.T) {
	c, err := New(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, c.Model())

	c, err = New(Config{APIKey: "sk", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.Model())
}

func TestGenerate(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeCompletion(w, "  多喝温水。  ")
	})

	text, err := c.Generate(context.Background(), Prompt{System: "你是守护者", User: "痛经怎么办"})
	require.NoError(t, err)
	assert.Equal(t, "多喝温水。", text)

	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "痛经怎么办", msgs[1].(map[string]any)["content"])
	assert.Equal(t, defaultModel, gotBody["model"])
}

func TestGenerate_EmptyContentIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := c.Generate(context.Background(), Prompt{User: "hi"})
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.False(t, IsRetryable(err))
}

func TestGenerate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		typ       string
		wantKind  Kind
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, "invalid_api_key", KindAuth, false},
		{"forbidden", http.StatusForbidden, "permission_denied", KindAuth, false},
		{"rate limited", http.StatusTooManyRequests, "rate_limit_exceeded", KindQuota, false},
		{"quota in body", http.StatusBadRequest, "insufficient_quota", KindQuota, false},
		{"gemini exhausted", http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", KindQuota, false},
		{"server error", http.StatusInternalServerError, "server_error", KindTransient, true},
		{"unavailable", http.StatusServiceUnavailable, "overloaded", KindTransient, true},
		{"bad request", http.StatusBadRequest, "invalid_request_error", KindMalformed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status, tt.typ, "nope")
			})

			_, err := c.Generate(context.Background(), Prompt{User: "hi"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestGenerate_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{APIKey: "sk", BaseURL: url})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), Prompt{User: "hi"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestGenerateStream_AccumulatesMonotonically(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeStream(w, "宝", "贝", "", "放心")
	})

	var seen []string
	text, err := c.GenerateStream(context.Background(), Prompt{User: "hi"}, func(s string) {
		seen = append(seen, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "宝贝放心", text)
	assert.Equal(t, []string{"宝", "宝贝", "宝贝放心"}, seen)
}

func TestGenerateStream_EmptyStreamIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeStream(w)
	})

	_, err := c.GenerateStream(context.Background(), Prompt{User: "hi"}, nil)
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestGenerateStream_OpenFailureClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "slow down")
	})

	_, err := c.GenerateStream(context.Background(), Prompt{User: "hi"}, func(string) {})
	require.Error(t, err)
	assert.Equal(t, KindQuota, KindOf(err))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.False(t, IsRetryable(nil))

	wrapped := fmt.Errorf("outer: %w", &Error{Kind: KindAuth, Err: errors.New("bad key")})
	assert.Equal(t, KindAuth, KindOf(wrapped))
	assert.True(t, strings.HasPrefix((&Error{Kind: KindQuota, Err: errors.New("x")}).Error(), "quota:"))
}
