package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestOpenAIAdapterComplete(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer ts.Close()

	adapter := NewOpenAIAdapter(ts.URL, "test-key")
	res, err := adapter.Complete(context.Background(), Request{
		Model:        "gpt-4o-mini",
		SystemPrompt: "You are an evaluator.",
		UserPrompt:   "Evaluate this.",
		ForceJSON:    true,
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.Text != `{"ok":true}` {
		t.Fatalf("Complete() text = %q", res.Text)
	}

	if gotPath != "/v1/chat/completions" {
		t.Fatalf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf == nil || rf["type"] != "json_object" {
		t.Fatalf("response_format = %v, want json_object", gotBody["response_format"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", gotBody["messages"])
	}
}

func TestOpenAIAdapterNonRetryableStatusFailsFast(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	adapter := NewOpenAIAdapter(ts.URL, "test-key")
	_, err := adapter.Complete(context.Background(), Request{Model: "gpt-4o-mini", UserPrompt: "hi"})
	if err == nil {
		t.Fatalf("Complete() on 401: expected error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry status code: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("requests = %d, want no retries on auth failure", got)
	}
}

func TestOpenAIAdapterRetriesRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"recovered"}}]}`))
	}))
	defer ts.Close()

	adapter := NewOpenAIAdapter(ts.URL, "test-key")
	res, err := adapter.Complete(context.Background(), Request{Model: "gpt-4o-mini", UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if res.Text != "recovered" {
		t.Fatalf("Text = %q, want recovered", res.Text)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("requests = %d, want one retry", got)
	}
}

func TestOpenAIAdapterEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	adapter := NewOpenAIAdapter(ts.URL, "test-key")
	if _, err := adapter.Complete(context.Background(), Request{Model: "m", UserPrompt: "hi"}); err == nil {
		t.Fatalf("Complete() with no choices: expected error")
	}
}

func TestNewAdapterModes(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "mock"})
	if err != nil {
		t.Fatalf("NewAdapter(mock) error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("NewAdapter(mock) = %T", a)
	}

	a, err = NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewAdapter(auto) error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("NewAdapter(auto, no key) = %T, want mock", a)
	}

	a, err = NewAdapter(Config{Mode: "auto", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewAdapter(auto, key) error = %v", err)
	}
	if _, ok := a.(*OpenAIAdapter); !ok {
		t.Fatalf("NewAdapter(auto, key) = %T, want openai", a)
	}

	if _, err := NewAdapter(Config{Mode: "openai"}); err == nil {
		t.Fatalf("NewAdapter(openai, no key): expected error")
	}
	if _, err := NewAdapter(Config{Mode: "bogus"}); err == nil {
		t.Fatalf("NewAdapter(bogus): expected error")
	}
}

func TestMockAdapterJSONMode(t *testing.T) {
	res, err := NewMockAdapter().Complete(context.Background(), Request{ForceJSON: true, UserPrompt: "evaluate"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(res.Text), &parsed); err != nil {
		t.Fatalf("mock JSON reply does not parse: %v", err)
	}
	if _, ok := parsed["overallScore"]; !ok {
		t.Fatalf("mock JSON reply missing overallScore")
	}
}
